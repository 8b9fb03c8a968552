package jit

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mytherin/RembranDB/pkg/sql/parser"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

func dblColumn(name string, values ...float64) *storage.Column {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return &storage.Column{Name: name, Type: storage.TypeDbl, Length: int64(len(values)), Data: data}
}

func intColumn(name string, values ...int32) *storage.Column {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return &storage.Column{Name: name, Type: storage.TypeInt, Length: int64(len(values)), Data: data}
}

func lngColumn(name string, values ...int64) *storage.Column {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], uint64(v))
	}
	return &storage.Column{Name: name, Type: storage.TypeLng, Length: int64(len(values)), Data: data}
}

func fltColumn(name string, values ...float32) *storage.Column {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return &storage.Column{Name: name, Type: storage.TypeFlt, Length: int64(len(values)), Data: data}
}

func ref(col *storage.Column) *parser.ColumnRef {
	return &parser.ColumnRef{Name: col.Name, Column: col}
}

func bin(op parser.BinaryKind, text string, l, r parser.Operation) *parser.Binary {
	return &parser.Binary{Op: op, OpText: text, Left: l, Right: r}
}

// compileAndRun compiles op over cols, verifies, links, and runs the
// kernel over n rows.
func compileAndRun(t *testing.T, op parser.Operation, cols []*storage.Column, n int64, optimize bool) []float64 {
	t.Helper()
	module := NewModule("RembranDB")
	_, err := NewCompiler(module).CompileExpression("select_0", op, cols)
	require.NoError(t, err)

	if optimize {
		pm := NewPassManager()
		for _, p := range StandardPasses() {
			pm.Add(p)
		}
		pm.Run(module.Funcs[0])
	}
	require.NoError(t, Verify(module))

	host := NewHost()
	handle := host.AddModule(module)
	defer host.RemoveModule(handle)
	kernel := host.Lookup("select_0")

	result := make([]float64, n)
	inputs := make([]unsafe.Pointer, len(cols))
	for i, col := range cols {
		if len(col.Data) > 0 {
			inputs[i] = unsafe.Pointer(&col.Data[0])
		}
	}
	kernel(result, n, inputs)
	return result
}

func TestCompileColumnPassthrough(t *testing.T) {
	x := dblColumn("x", 1, 2, 3, 4, 5)
	got := compileAndRun(t, ref(x), []*storage.Column{x}, 5, false)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got)
}

func TestCompileConstant(t *testing.T) {
	x := dblColumn("x", 1, 2, 3)
	got := compileAndRun(t, &parser.Constant{Value: 7.5}, nil, x.Length, false)
	assert.Equal(t, []float64{7.5, 7.5, 7.5}, got)
}

func TestCompileArithmetic(t *testing.T) {
	x := dblColumn("x", 1, 2, 3, 4, 5)
	y := dblColumn("y", 10, 20, 30, 40, 50)

	// (x + y) * 2
	op := bin(parser.Mul, "*",
		bin(parser.Add, "+", ref(x), ref(y)),
		&parser.Constant{Value: 2})
	got := compileAndRun(t, op, []*storage.Column{x, y}, 5, false)
	assert.Equal(t, []float64{22, 44, 66, 88, 110}, got)
}

func TestCompileDivision(t *testing.T) {
	x := dblColumn("x", 1, 2, 4)
	op := bin(parser.Div, "/", ref(x), &parser.Constant{Value: 2})
	got := compileAndRun(t, op, []*storage.Column{x}, 3, false)
	assert.Equal(t, []float64{0.5, 1, 2}, got)
}

func TestCompileComparisonProducesMask(t *testing.T) {
	y := dblColumn("y", 10, 20, 30, 40, 50)
	op := bin(parser.Gt, ">", ref(y), &parser.Constant{Value: 25})
	got := compileAndRun(t, op, []*storage.Column{y}, 5, false)
	assert.Equal(t, []float64{0, 0, 1, 1, 1}, got)
}

func TestCompileLogicalAnd(t *testing.T) {
	x := dblColumn("x", 1, 2, 3, 4, 5)
	y := dblColumn("y", 10, 20, 30, 40, 50)
	op := bin(parser.And, "AND",
		bin(parser.Ge, ">=", ref(x), &parser.Constant{Value: 2}),
		bin(parser.Le, "<=", ref(y), &parser.Constant{Value: 40}))
	got := compileAndRun(t, op, []*storage.Column{x, y}, 5, false)
	assert.Equal(t, []float64{0, 1, 1, 1, 0}, got)
}

func TestCompileLogicalOr(t *testing.T) {
	x := dblColumn("x", 1, 2, 3, 4, 5)
	op := bin(parser.Or, "OR",
		bin(parser.Eq, "==", ref(x), &parser.Constant{Value: 2}),
		bin(parser.Eq, "==", ref(x), &parser.Constant{Value: 4}))
	got := compileAndRun(t, op, []*storage.Column{x}, 5, false)
	assert.Equal(t, []float64{0, 1, 0, 1, 0}, got)
}

func TestCompileNotEqual(t *testing.T) {
	x := dblColumn("x", 1, 2, 3)
	op := bin(parser.Ne, "<>", ref(x), &parser.Constant{Value: 2})
	got := compileAndRun(t, op, []*storage.Column{x}, 3, false)
	assert.Equal(t, []float64{1, 0, 1}, got)
}

func TestCompileWidening(t *testing.T) {
	// int and lng widen with signed semantics, flt extends
	i := intColumn("i", -3, 7)
	got := compileAndRun(t, ref(i), []*storage.Column{i}, 2, false)
	assert.Equal(t, []float64{-3, 7}, got)

	l := lngColumn("l", -1<<40, 12)
	got = compileAndRun(t, ref(l), []*storage.Column{l}, 2, false)
	assert.Equal(t, []float64{float64(-1 << 40), 12}, got)

	f := fltColumn("f", 1.25, -0.5)
	got = compileAndRun(t, ref(f), []*storage.Column{f}, 2, false)
	assert.Equal(t, []float64{1.25, -0.5}, got)
}

func TestCompileMultiColumnInputOrder(t *testing.T) {
	// inputs[k] binds to cols[k], not to expression position
	x := dblColumn("x", 1, 2)
	y := dblColumn("y", 10, 20)
	op := bin(parser.Sub, "-", ref(y), ref(x))
	got := compileAndRun(t, op, []*storage.Column{x, y}, 2, false)
	assert.Equal(t, []float64{9, 18}, got)
}

func TestCompileRejectsNonBooleanLogic(t *testing.T) {
	x := dblColumn("x", 1)
	y := dblColumn("y", 2)
	op := bin(parser.And, "AND", ref(x), ref(y))
	module := NewModule("RembranDB")
	_, err := NewCompiler(module).CompileExpression("select_0", op, []*storage.Column{x, y})
	require.Error(t, err)
	assert.True(t, ErrNonBooleanLogic.Is(err))
}

func TestCompileZeroRows(t *testing.T) {
	x := &storage.Column{Name: "x", Type: storage.TypeDbl, Length: 0, Data: []byte{}}
	got := compileAndRun(t, ref(x), []*storage.Column{x}, 0, false)
	assert.Empty(t, got)
}

func TestCompiledModuleDump(t *testing.T) {
	x := dblColumn("x", 1)
	module := NewModule("RembranDB")
	_, err := NewCompiler(module).CompileExpression("select_0",
		bin(parser.Add, "+", ref(x), &parser.Constant{Value: 5}),
		[]*storage.Column{x})
	require.NoError(t, err)

	dump := module.String()
	assert.Contains(t, dump, "; ModuleID = 'RembranDB'")
	assert.Contains(t, dump, "define void @select_0(double* %result, i64 %n, i8** %inputs)")
	for _, block := range []string{"entry:", "for.cond:", "for.body:", "for.inc:", "for.end:"} {
		assert.Contains(t, dump, block)
	}
	assert.Contains(t, dump, "fadd")
	assert.Contains(t, dump, "icmp slt")
	assert.Contains(t, dump, "ret void")
	// the loop allocates an explicit index in entry
	assert.Contains(t, dump, "%index = alloca i64")
	assert.True(t, strings.Contains(dump, "br label"))
}

func TestOptimizedAndUnoptimizedAgree(t *testing.T) {
	x := dblColumn("x", 1, 2, 3, 4, 5)
	op := bin(parser.Add, "+",
		bin(parser.Mul, "*", ref(x), &parser.Constant{Value: 1}),
		bin(parser.Add, "+", &parser.Constant{Value: 2}, &parser.Constant{Value: 3}))
	cols := []*storage.Column{x}

	plain := compileAndRun(t, op, cols, 5, false)
	optimized := compileAndRun(t, op, cols, 5, true)
	assert.Equal(t, plain, optimized)
	assert.Equal(t, []float64{6, 7, 8, 9, 10}, plain)
}

func TestLookupMissingSymbolPanics(t *testing.T) {
	host := NewHost()
	assert.Panics(t, func() { host.Lookup("nope") })
}

func TestRemoveModuleReleasesKernels(t *testing.T) {
	x := dblColumn("x", 1)
	module := NewModule("RembranDB")
	_, err := NewCompiler(module).CompileExpression("select_0", ref(x), []*storage.Column{x})
	require.NoError(t, err)

	host := NewHost()
	handle := host.AddModule(module)
	require.NotNil(t, host.Lookup("select_0"))
	host.RemoveModule(handle)
	assert.Panics(t, func() { host.Lookup("select_0") })
}
