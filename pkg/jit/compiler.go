// pkg/jit/compiler.go
package jit

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/Mytherin/RembranDB/pkg/sql/parser"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

var (
	// ErrNonBooleanLogic is returned when AND/OR is applied to operands
	// that are not comparisons.
	ErrNonBooleanLogic = errors.NewKind("logical operator %s requires boolean operands")
	// ErrUnrecognizedOperation is returned for an expression node the
	// code generator cannot lower.
	ErrUnrecognizedOperation = errors.NewKind("unrecognized operation")
)

// columnType maps a column's element type to its IR type.
func columnType(t storage.Type) *Type {
	switch t {
	case storage.TypeInt:
		return I32Type
	case storage.TypeLng:
		return I64Type
	case storage.TypeFlt:
		return F32Type
	case storage.TypeDbl:
		return F64Type
	default:
		return VoidType
	}
}

// Compiler lowers resolved expression trees into kernel functions of the
// active module.
type Compiler struct {
	module  *Module
	builder *Builder

	// per-function state: the alloca holding each bound column's input
	// pointer, keyed by the catalog column
	addrs map[*storage.Column]*Instruction
}

// NewCompiler creates a compiler emitting into m.
func NewCompiler(m *Module) *Compiler {
	return &Compiler{module: m, builder: NewBuilder()}
}

// CompileExpression emits one kernel for op: a counted loop over n rows
// that evaluates the expression per row and stores f64 results densely.
// cols is the expression's used-column list; inputs[k] binds to cols[k].
func (c *Compiler) CompileExpression(name string, op parser.Operation, cols []*storage.Column) (*Function, error) {
	fn := c.module.NewFunction(name)
	c.addrs = make(map[*storage.Column]*Instruction)

	entry := fn.NewBlock("entry")
	cond := fn.NewBlock("for.cond")
	body := fn.NewBlock("for.body")
	inc := fn.NewBlock("for.inc")
	end := fn.NewBlock("for.end")

	b := c.builder
	b.SetInsertPoint(entry)

	// spill the arguments so every later use is a plain load
	argAddrs := make([]*Instruction, 3)
	for i, arg := range fn.Args {
		argAddrs[i] = b.CreateAlloca(arg.Type(), "input_args")
		b.CreateStore(arg, argAddrs[i])
	}

	// bind inputs[k] to its column: load the raw pointer, cast it to the
	// column's element type, and keep it in a dedicated slot
	inputPtrs := b.CreateLoad(fn.Arg(2).Type(), argAddrs[2], "")
	for k, col := range cols {
		elemPtr := PointerTo(columnType(col.Type))
		slot := b.CreateAlloca(elemPtr, "input_arrays[i]")
		ptrPtr := b.CreateGEP(PointerTo(I8Type), inputPtrs, NewConstInt(I64Type, int64(k)), "inputs[i]")
		raw := b.CreateLoad(PointerTo(I8Type), ptrPtr, "")
		cast := b.CreateBitcast(raw, elemPtr, "")
		b.CreateStore(cast, slot)
		c.addrs[col] = slot
	}

	indexAddr := b.CreateAlloca(I64Type, "index")
	b.CreateStore(NewConstInt(I64Type, 0), indexAddr)
	b.CreateBr(cond)

	b.SetInsertPoint(cond)
	index := b.CreateLoad(I64Type, indexAddr, "index")
	size := b.CreateLoad(I64Type, argAddrs[1], "size")
	less := b.CreateICmp(PredSLT, index, size, "index < size")
	b.CreateCondBr(less, body, end)

	b.SetInsertPoint(body)
	index = b.CreateLoad(I64Type, indexAddr, "index")
	value, err := c.emit(op, index)
	if err != nil {
		return nil, err
	}
	// the kernel always stores f64; comparisons convert to 0.0/1.0
	if value.Type().Kind == KindI1 {
		value = b.CreateUIToFP(value, F64Type, "")
	}
	result := b.CreateLoad(fn.Arg(0).Type(), argAddrs[0], "resultptr")
	resultPtr := b.CreateGEP(F64Type, result, index, "result[index]")
	b.CreateStore(value, resultPtr)
	b.CreateBr(inc)

	b.SetInsertPoint(inc)
	index = b.CreateLoad(I64Type, indexAddr, "index")
	next := b.CreateAdd(index, NewConstInt(I64Type, 1), "index++")
	b.CreateStore(next, indexAddr)
	b.CreateBr(cond)

	b.SetInsertPoint(end)
	b.CreateRetVoid()

	return fn, nil
}

// emit evaluates the expression tree for the row at index, returning an
// f64 value for arithmetic and an i1 for comparisons and logic.
func (c *Compiler) emit(op parser.Operation, index Value) (Value, error) {
	b := c.builder
	switch o := op.(type) {
	case *parser.Constant:
		return NewConstFloat(F64Type, o.Value), nil

	case *parser.ColumnRef:
		elem := columnType(o.Column.Type)
		base := b.CreateLoad(PointerTo(elem), c.addrs[o.Column], "")
		ptr := b.CreateGEP(elem, base, index, "column[i]")
		value := b.CreateLoad(elem, ptr, "")
		// widen narrow loads to f64: floats extend, integers convert
		// with signed semantics
		switch o.Column.Type {
		case storage.TypeDbl:
			return value, nil
		case storage.TypeFlt:
			return b.CreateFPExt(value, F64Type, ""), nil
		default:
			return b.CreateSIToFP(value, F64Type, ""), nil
		}

	case *parser.Binary:
		lhs, err := c.emit(o.Left, index)
		if err != nil {
			return nil, err
		}
		rhs, err := c.emit(o.Right, index)
		if err != nil {
			return nil, err
		}
		switch o.Op {
		case parser.Mul:
			return b.CreateFMul(lhs, rhs, ""), nil
		case parser.Div:
			return b.CreateFDiv(lhs, rhs, ""), nil
		case parser.Add:
			return b.CreateFAdd(lhs, rhs, ""), nil
		case parser.Sub:
			return b.CreateFSub(lhs, rhs, ""), nil
		case parser.Lt:
			return b.CreateFCmp(PredOLT, lhs, rhs, ""), nil
		case parser.Le:
			return b.CreateFCmp(PredOLE, lhs, rhs, ""), nil
		case parser.Eq:
			return b.CreateFCmp(PredOEQ, lhs, rhs, ""), nil
		case parser.Ne:
			return b.CreateFCmp(PredONE, lhs, rhs, ""), nil
		case parser.Gt:
			return b.CreateFCmp(PredOGT, lhs, rhs, ""), nil
		case parser.Ge:
			return b.CreateFCmp(PredOGE, lhs, rhs, ""), nil
		case parser.And, parser.Or:
			// bitwise and/or on i1; the dialect has no short-circuit
			// semantics and no implicit coercion from f64
			if lhs.Type().Kind != KindI1 || rhs.Type().Kind != KindI1 {
				return nil, ErrNonBooleanLogic.New(o.OpText)
			}
			if o.Op == parser.And {
				return b.CreateAnd(lhs, rhs, ""), nil
			}
			return b.CreateOr(lhs, rhs, ""), nil
		}
		return nil, ErrUnrecognizedOperation.New()

	default:
		return nil, ErrUnrecognizedOperation.New()
	}
}
