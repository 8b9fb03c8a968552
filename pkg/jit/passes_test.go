package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mytherin/RembranDB/pkg/sql/parser"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

func instructionCount(f *Function) int {
	n := 0
	for _, blk := range f.Blocks {
		n += len(blk.Instructions)
	}
	return n
}

func countOpcode(f *Function, op Opcode) int {
	n := 0
	for _, blk := range f.Blocks {
		for _, ins := range blk.Instructions {
			if ins.Op == op {
				n++
			}
		}
	}
	return n
}

// compileExpr builds a kernel for the expression without optimizing.
func compileExpr(t *testing.T, op parser.Operation) *Function {
	t.Helper()
	module := NewModule("RembranDB")
	fn, err := NewCompiler(module).CompileExpression("select_0", op, nil)
	require.NoError(t, err)
	return fn
}

func TestInstCombineFoldsConstants(t *testing.T) {
	// 2 + 3 collapses to a constant; the fadd disappears after DCE
	fn := compileExpr(t, bin(parser.Add, "+",
		&parser.Constant{Value: 2}, &parser.Constant{Value: 3}))

	require.Equal(t, 1, countOpcode(fn, OpFAdd))
	changed := InstCombine{}.Run(fn)
	assert.True(t, changed)
	SimplifyCFG{}.Run(fn)
	assert.Equal(t, 0, countOpcode(fn, OpFAdd))
	require.NoError(t, verifyFunction(fn))
}

func TestInstCombineIdentities(t *testing.T) {
	// x * 1 and x + 0 reduce to x
	x := dblColumn("x", 1, 2)
	fn := func() *Function {
		module := NewModule("RembranDB")
		op := bin(parser.Add, "+",
			bin(parser.Mul, "*", ref(x), &parser.Constant{Value: 1}),
			&parser.Constant{Value: 0})
		f, err := NewCompiler(module).CompileExpression("select_0", op, []*storage.Column{x})
		require.NoError(t, err)
		return f
	}()

	InstCombine{}.Run(fn)
	SimplifyCFG{}.Run(fn)
	assert.Equal(t, 0, countOpcode(fn, OpFAdd))
	assert.Equal(t, 0, countOpcode(fn, OpFMul))
	require.NoError(t, verifyFunction(fn))
}

func TestReassociateMovesConstantsRight(t *testing.T) {
	fn := compileExpr(t, bin(parser.Add, "+",
		&parser.Constant{Value: 2},
		bin(parser.Mul, "*", &parser.Constant{Value: 3}, &parser.Constant{Value: 4})))

	changed := Reassociate{}.Run(fn)
	assert.True(t, changed)
	for _, blk := range fn.Blocks {
		for _, ins := range blk.Instructions {
			if ins.Op == OpFAdd || ins.Op == OpFMul {
				_, lconst := ins.Operands[0].(*ConstFloat)
				_, rconst := ins.Operands[1].(*ConstFloat)
				if lconst {
					assert.True(t, rconst, "constant left operand without constant right")
				}
			}
		}
	}
}

func TestGVNEliminatesDuplicates(t *testing.T) {
	// (2*3) + (2*3): the two products are identical fmuls
	fn := compileExpr(t, bin(parser.Add, "+",
		bin(parser.Mul, "*", &parser.Constant{Value: 2}, &parser.Constant{Value: 3}),
		bin(parser.Mul, "*", &parser.Constant{Value: 2}, &parser.Constant{Value: 3})))

	require.Equal(t, 2, countOpcode(fn, OpFMul))
	changed := GVN{}.Run(fn)
	assert.True(t, changed)
	SimplifyCFG{}.Run(fn)
	assert.Equal(t, 1, countOpcode(fn, OpFMul))
	require.NoError(t, verifyFunction(fn))
}

func TestSimplifyCFGRemovesDeadCode(t *testing.T) {
	fn := compileExpr(t, &parser.Constant{Value: 1})
	before := instructionCount(fn)

	// constants need no inputs: the whole input binding chain is dead
	changed := SimplifyCFG{}.Run(fn)
	assert.True(t, changed)
	assert.Less(t, instructionCount(fn), before)
	require.NoError(t, verifyFunction(fn))
}

func TestLICMHoistsInvariants(t *testing.T) {
	fn := compileExpr(t, bin(parser.Add, "+",
		&parser.Constant{Value: 2}, &parser.Constant{Value: 3}))

	body := blockByName(fn, "for.body")
	entry := blockByName(fn, "entry")
	require.NotNil(t, body)
	require.NotNil(t, entry)

	faddsInBody := 0
	for _, ins := range body.Instructions {
		if ins.Op == OpFAdd {
			faddsInBody++
		}
	}
	require.Equal(t, 1, faddsInBody)

	changed := LICM{}.Run(fn)
	assert.True(t, changed)
	for _, ins := range body.Instructions {
		assert.NotEqual(t, OpFAdd, ins.Op, "invariant fadd left in loop body")
	}
	// entry still ends in its branch
	last := entry.Instructions[len(entry.Instructions)-1]
	assert.True(t, last.Terminator())
	require.NoError(t, verifyFunction(fn))
}

func TestPassManagerReportsChange(t *testing.T) {
	fn := compileExpr(t, bin(parser.Add, "+",
		&parser.Constant{Value: 2}, &parser.Constant{Value: 3}))

	pm := NewPassManager()
	for _, p := range StandardPasses() {
		pm.Add(p)
	}
	assert.True(t, pm.Run(fn))
	require.NoError(t, verifyFunction(fn))
}

func TestStandardPassesPreserveResults(t *testing.T) {
	x := dblColumn("x", 3, 6, 9)
	op := bin(parser.Div, "/",
		bin(parser.Add, "+", ref(x), bin(parser.Sub, "-",
			&parser.Constant{Value: 10}, &parser.Constant{Value: 10})),
		&parser.Constant{Value: 3})

	plain := compileAndRun(t, op, []*storage.Column{x}, 3, false)
	optimized := compileAndRun(t, op, []*storage.Column{x}, 3, true)
	assert.Equal(t, plain, optimized)
	assert.Equal(t, []float64{1, 2, 3}, plain)
}
