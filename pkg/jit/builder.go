// pkg/jit/builder.go
package jit

// Builder emits instructions at an insert point, mirroring the LLVM
// IRBuilder model: SetInsertPoint selects a block, the Create methods
// append to it.
type Builder struct {
	block *Block
}

// NewBuilder creates a Builder with no insert point.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetInsertPoint directs subsequent instructions into blk.
func (b *Builder) SetInsertPoint(blk *Block) {
	b.block = blk
}

func (b *Builder) insert(ins *Instruction, name string) *Instruction {
	if ins.typ != nil && ins.typ.Kind != KindVoid {
		ins.name = b.block.fn.uniqueName(name)
	}
	b.block.Instructions = append(b.block.Instructions, ins)
	return ins
}

// CreateAlloca reserves a stack slot of the given type.
func (b *Builder) CreateAlloca(t *Type, name string) *Instruction {
	return b.insert(&Instruction{
		Op:    OpAlloca,
		typ:   PointerTo(t),
		Alloc: t,
	}, name)
}

// CreateLoad loads a value of type elem through ptr.
func (b *Builder) CreateLoad(elem *Type, ptr Value, name string) *Instruction {
	return b.insert(&Instruction{
		Op:       OpLoad,
		typ:      elem,
		Elem:     elem,
		Operands: []Value{ptr},
	}, name)
}

// CreateStore stores val through ptr.
func (b *Builder) CreateStore(val, ptr Value) *Instruction {
	return b.insert(&Instruction{
		Op:       OpStore,
		typ:      VoidType,
		Operands: []Value{val, ptr},
	}, "")
}

// CreateGEP computes &base[index] for elements of type elem.
func (b *Builder) CreateGEP(elem *Type, base, index Value, name string) *Instruction {
	return b.insert(&Instruction{
		Op:       OpGEP,
		typ:      PointerTo(elem),
		Elem:     elem,
		Operands: []Value{base, index},
	}, name)
}

// CreateBitcast reinterprets a pointer value as type to.
func (b *Builder) CreateBitcast(v Value, to *Type, name string) *Instruction {
	return b.insert(&Instruction{
		Op:       OpBitcast,
		typ:      to,
		Elem:     to,
		Operands: []Value{v},
	}, name)
}

func (b *Builder) binary(op Opcode, typ *Type, l, r Value, name string) *Instruction {
	return b.insert(&Instruction{
		Op:       op,
		typ:      typ,
		Operands: []Value{l, r},
	}, name)
}

// CreateFAdd emits a double addition.
func (b *Builder) CreateFAdd(l, r Value, name string) *Instruction {
	return b.binary(OpFAdd, F64Type, l, r, name)
}

// CreateFSub emits a double subtraction.
func (b *Builder) CreateFSub(l, r Value, name string) *Instruction {
	return b.binary(OpFSub, F64Type, l, r, name)
}

// CreateFMul emits a double multiplication.
func (b *Builder) CreateFMul(l, r Value, name string) *Instruction {
	return b.binary(OpFMul, F64Type, l, r, name)
}

// CreateFDiv emits a double division.
func (b *Builder) CreateFDiv(l, r Value, name string) *Instruction {
	return b.binary(OpFDiv, F64Type, l, r, name)
}

// CreateFCmp emits an ordered floating comparison producing an i1.
func (b *Builder) CreateFCmp(pred Predicate, l, r Value, name string) *Instruction {
	ins := b.binary(OpFCmp, I1Type, l, r, name)
	ins.Pred = pred
	return ins
}

// CreateAnd emits a bitwise and on i1 values.
func (b *Builder) CreateAnd(l, r Value, name string) *Instruction {
	return b.binary(OpAnd, I1Type, l, r, name)
}

// CreateOr emits a bitwise or on i1 values.
func (b *Builder) CreateOr(l, r Value, name string) *Instruction {
	return b.binary(OpOr, I1Type, l, r, name)
}

// CreateAdd emits an i64 addition.
func (b *Builder) CreateAdd(l, r Value, name string) *Instruction {
	return b.binary(OpAdd, I64Type, l, r, name)
}

// CreateICmp emits an integer comparison producing an i1.
func (b *Builder) CreateICmp(pred Predicate, l, r Value, name string) *Instruction {
	ins := b.binary(OpICmp, I1Type, l, r, name)
	ins.Pred = pred
	return ins
}

func (b *Builder) cast(op Opcode, v Value, to *Type, name string) *Instruction {
	return b.insert(&Instruction{
		Op:       op,
		typ:      to,
		Operands: []Value{v},
	}, name)
}

// CreateSIToFP converts a signed integer to floating point.
func (b *Builder) CreateSIToFP(v Value, to *Type, name string) *Instruction {
	return b.cast(OpSIToFP, v, to, name)
}

// CreateFPExt extends a float to a wider float type.
func (b *Builder) CreateFPExt(v Value, to *Type, name string) *Instruction {
	return b.cast(OpFPExt, v, to, name)
}

// CreateUIToFP converts an unsigned integer (here: an i1 truth value) to
// floating point.
func (b *Builder) CreateUIToFP(v Value, to *Type, name string) *Instruction {
	return b.cast(OpUIToFP, v, to, name)
}

// CreateBr emits an unconditional branch.
func (b *Builder) CreateBr(target *Block) *Instruction {
	return b.insert(&Instruction{
		Op:     OpBr,
		typ:    VoidType,
		Blocks: []*Block{target},
	}, "")
}

// CreateCondBr branches to then when cond is true, otherwise to els.
func (b *Builder) CreateCondBr(cond Value, then, els *Block) *Instruction {
	return b.insert(&Instruction{
		Op:       OpCondBr,
		typ:      VoidType,
		Operands: []Value{cond},
		Blocks:   []*Block{then, els},
	}, "")
}

// CreateRetVoid emits a void return.
func (b *Builder) CreateRetVoid() *Instruction {
	return b.insert(&Instruction{
		Op:  OpRet,
		typ: VoidType,
	}, "")
}
