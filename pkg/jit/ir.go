// pkg/jit/ir.go
// Package jit implements the query JIT: an LLVM-like intermediate
// representation, a builder, a verifier, optimization passes, and the host
// that turns verified modules into invocable kernels.
package jit

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind enumerates the IR's primitive type kinds.
type TypeKind uint8

const (
	KindVoid TypeKind = iota
	KindI1
	KindI8
	KindI32
	KindI64
	KindF32
	KindF64
	KindPointer
)

// Type is an IR type; pointers carry their pointee type.
type Type struct {
	Kind TypeKind
	Elem *Type
}

var (
	VoidType = &Type{Kind: KindVoid}
	I1Type   = &Type{Kind: KindI1}
	I8Type   = &Type{Kind: KindI8}
	I32Type  = &Type{Kind: KindI32}
	I64Type  = &Type{Kind: KindI64}
	F32Type  = &Type{Kind: KindF32}
	F64Type  = &Type{Kind: KindF64}
)

// PointerTo returns the pointer type to elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem}
}

// String renders the type in LLVM spelling.
func (t *Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindI1:
		return "i1"
	case KindI8:
		return "i8"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF32:
		return "float"
	case KindF64:
		return "double"
	case KindPointer:
		return t.Elem.String() + "*"
	default:
		return "?"
	}
}

// SizeOf returns the in-memory size of the type in bytes.
func (t *Type) SizeOf() int64 {
	switch t.Kind {
	case KindI1, KindI8:
		return 1
	case KindI32, KindF32:
		return 4
	case KindI64, KindF64, KindPointer:
		return 8
	default:
		return 0
	}
}

// Equal reports structural type equality.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == KindPointer {
		return t.Elem.Equal(o.Elem)
	}
	return true
}

// Float reports whether the type is f32 or f64.
func (t *Type) Float() bool {
	return t.Kind == KindF32 || t.Kind == KindF64
}

// Integer reports whether the type is one of the integer kinds.
func (t *Type) Integer() bool {
	switch t.Kind {
	case KindI1, KindI8, KindI32, KindI64:
		return true
	}
	return false
}

// Value is anything an instruction can reference: an argument, a constant,
// or a prior instruction.
type Value interface {
	// Ref renders the operand reference, e.g. "%index" or "5.000000e+00".
	Ref() string
	Type() *Type
}

// refName renders a value name, quoting it when it falls outside LLVM's
// bare-name character set (e.g. "index < size", "column[i]").
func refName(name string) string {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '.' || c == '_' || c == '$') {
			return "%\"" + name + "\""
		}
	}
	return "%" + name
}

// Argument is a function parameter.
type Argument struct {
	name string
	typ  *Type
}

func (a *Argument) Ref() string {
	return refName(a.name)
}

func (a *Argument) Type() *Type {
	return a.typ
}

// ConstFloat is a floating-point constant.
type ConstFloat struct {
	typ   *Type
	Value float64
}

// NewConstFloat creates a floating constant of the given type.
func NewConstFloat(typ *Type, v float64) *ConstFloat {
	return &ConstFloat{typ: typ, Value: v}
}

func (c *ConstFloat) Ref() string {
	return fmt.Sprintf("%e", c.Value)
}

func (c *ConstFloat) Type() *Type {
	return c.typ
}

// ConstInt is an integer constant.
type ConstInt struct {
	typ   *Type
	Value int64
}

// NewConstInt creates an integer constant of the given type.
func NewConstInt(typ *Type, v int64) *ConstInt {
	return &ConstInt{typ: typ, Value: v}
}

func (c *ConstInt) Ref() string {
	return strconv.FormatInt(c.Value, 10)
}

func (c *ConstInt) Type() *Type {
	return c.typ
}

// Opcode enumerates the IR instructions.
type Opcode uint8

const (
	OpAlloca Opcode = iota + 1
	OpLoad
	OpStore
	OpGEP
	OpBitcast
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFCmp
	OpAnd
	OpOr
	OpAdd
	OpICmp
	OpSIToFP
	OpFPExt
	OpUIToFP
	OpBr
	OpCondBr
	OpRet
)

// String returns the LLVM mnemonic of the opcode.
func (op Opcode) String() string {
	switch op {
	case OpAlloca:
		return "alloca"
	case OpLoad:
		return "load"
	case OpStore:
		return "store"
	case OpGEP:
		return "getelementptr"
	case OpBitcast:
		return "bitcast"
	case OpFAdd:
		return "fadd"
	case OpFSub:
		return "fsub"
	case OpFMul:
		return "fmul"
	case OpFDiv:
		return "fdiv"
	case OpFCmp:
		return "fcmp"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpAdd:
		return "add"
	case OpICmp:
		return "icmp"
	case OpSIToFP:
		return "sitofp"
	case OpFPExt:
		return "fpext"
	case OpUIToFP:
		return "uitofp"
	case OpBr, OpCondBr:
		return "br"
	case OpRet:
		return "ret"
	default:
		return "unknown"
	}
}

// Predicate selects the comparison condition of fcmp and icmp.
type Predicate uint8

const (
	PredOLT Predicate = iota + 1
	PredOLE
	PredOEQ
	PredONE
	PredOGT
	PredOGE
	PredSLT
)

// String returns the LLVM predicate spelling.
func (p Predicate) String() string {
	switch p {
	case PredOLT:
		return "olt"
	case PredOLE:
		return "ole"
	case PredOEQ:
		return "oeq"
	case PredONE:
		return "one"
	case PredOGT:
		return "ogt"
	case PredOGE:
		return "oge"
	case PredSLT:
		return "slt"
	default:
		return "?"
	}
}

// Instruction is a single IR operation. Result-producing instructions act
// as Values for later operands.
type Instruction struct {
	Op       Opcode
	name     string
	typ      *Type
	Operands []Value
	Pred     Predicate
	Blocks   []*Block
	// Alloc is the allocated type of an alloca; Elem the element type of
	// a load or gep, or the destination type of a bitcast.
	Alloc *Type
	Elem  *Type
}

func (i *Instruction) Ref() string {
	return refName(i.name)
}

func (i *Instruction) Type() *Type {
	return i.typ
}

// Terminator reports whether the instruction ends a basic block.
func (i *Instruction) Terminator() bool {
	switch i.Op {
	case OpBr, OpCondBr, OpRet:
		return true
	}
	return false
}

// typed renders "type ref" for an operand.
func typed(v Value) string {
	return v.Type().String() + " " + v.Ref()
}

// String renders the instruction in LLVM textual style.
func (i *Instruction) String() string {
	switch i.Op {
	case OpAlloca:
		return fmt.Sprintf("%s = alloca %s", i.Ref(), i.Alloc)
	case OpLoad:
		return fmt.Sprintf("%s = load %s, %s", i.Ref(), i.typ, typed(i.Operands[0]))
	case OpStore:
		return fmt.Sprintf("store %s, %s", typed(i.Operands[0]), typed(i.Operands[1]))
	case OpGEP:
		return fmt.Sprintf("%s = getelementptr %s, %s, %s",
			i.Ref(), i.Elem, typed(i.Operands[0]), typed(i.Operands[1]))
	case OpBitcast:
		return fmt.Sprintf("%s = bitcast %s to %s", i.Ref(), typed(i.Operands[0]), i.typ)
	case OpFAdd, OpFSub, OpFMul, OpFDiv, OpAnd, OpOr, OpAdd:
		return fmt.Sprintf("%s = %s %s %s, %s",
			i.Ref(), i.Op, i.Operands[0].Type(), i.Operands[0].Ref(), i.Operands[1].Ref())
	case OpFCmp:
		return fmt.Sprintf("%s = fcmp %s %s %s, %s",
			i.Ref(), i.Pred, i.Operands[0].Type(), i.Operands[0].Ref(), i.Operands[1].Ref())
	case OpICmp:
		return fmt.Sprintf("%s = icmp %s %s %s, %s",
			i.Ref(), i.Pred, i.Operands[0].Type(), i.Operands[0].Ref(), i.Operands[1].Ref())
	case OpSIToFP, OpFPExt, OpUIToFP:
		return fmt.Sprintf("%s = %s %s to %s", i.Ref(), i.Op, typed(i.Operands[0]), i.typ)
	case OpBr:
		return fmt.Sprintf("br label %%%s", i.Blocks[0].Name)
	case OpCondBr:
		return fmt.Sprintf("br %s, label %%%s, label %%%s",
			typed(i.Operands[0]), i.Blocks[0].Name, i.Blocks[1].Name)
	case OpRet:
		return "ret void"
	default:
		return "<invalid instruction>"
	}
}

// Block is a named basic block holding an instruction sequence.
type Block struct {
	Name         string
	Instructions []*Instruction
	fn           *Function
}

// Function is one kernel: fixed void(double*, i64, i8**) signature,
// blocks in layout order.
type Function struct {
	Name   string
	Args   []*Argument
	Blocks []*Block

	names   map[string]int
	counter int
}

// NewBlock appends a block with the given name to the function.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Arg returns the i-th function argument.
func (f *Function) Arg(i int) *Argument {
	return f.Args[i]
}

// uniqueName allocates an SSA value name: numbered when base is empty,
// suffixed on collision like LLVM does.
func (f *Function) uniqueName(base string) string {
	if base == "" {
		f.counter++
		return strconv.Itoa(f.counter - 1)
	}
	n := f.names[base]
	f.names[base] = n + 1
	if n == 0 {
		return base
	}
	return base + strconv.Itoa(n)
}

// String renders the function definition.
func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString("define void @" + f.Name + "(")
	for i, a := range f.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(typed(a))
	}
	sb.WriteString(") {\n")
	for _, b := range f.Blocks {
		sb.WriteString(b.Name + ":\n")
		for _, ins := range b.Instructions {
			sb.WriteString("  " + ins.String() + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Module is a set of kernels compiled together; one fresh module exists
// per query compilation step.
type Module struct {
	Name  string
	Funcs []*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewFunction creates a kernel-signature function
// void @name(double* %result, i64 %n, i8** %inputs) in the module.
func (m *Module) NewFunction(name string) *Function {
	f := &Function{
		Name:  name,
		names: make(map[string]int),
	}
	f.Args = []*Argument{
		{name: f.uniqueName("result"), typ: PointerTo(F64Type)},
		{name: f.uniqueName("n"), typ: I64Type},
		{name: f.uniqueName("inputs"), typ: PointerTo(PointerTo(I8Type))},
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// String renders the module in LLVM textual style.
func (m *Module) String() string {
	var sb strings.Builder
	sb.WriteString("; ModuleID = '" + m.Name + "'\n")
	for _, f := range m.Funcs {
		sb.WriteString("\n")
		sb.WriteString(f.String())
	}
	return sb.String()
}
