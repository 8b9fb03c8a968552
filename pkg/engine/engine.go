// pkg/engine/engine.go
// Package engine orchestrates query execution: parse, resolve, compile to
// IR, optimize, link into the JIT host, invoke the kernels, and assemble
// the result table.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/Mytherin/RembranDB/pkg/jit"
	"github.com/Mytherin/RembranDB/pkg/sql/parser"
	"github.com/Mytherin/RembranDB/pkg/sql/resolver"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

// Options configure query compilation and output.
type Options struct {
	// Optimize runs the standard pass pipeline on every kernel.
	Optimize bool
	// DumpIR writes each compiled module to IRWriter before linking.
	DumpIR bool
	// IRWriter receives IR dumps; defaults to stdout.
	IRWriter io.Writer
}

// Engine owns the catalog, the JIT host, and the query pipeline. One
// engine serves one process; queries run sequentially on the caller's
// goroutine.
type Engine struct {
	catalog *storage.Catalog
	host    *jit.Host
	opts    Options
	log     *logrus.Entry
}

// New creates an engine over the catalog.
func New(catalog *storage.Catalog, opts Options) *Engine {
	if opts.IRWriter == nil {
		opts.IRWriter = os.Stdout
	}
	return &Engine{
		catalog: catalog,
		host:    jit.NewHost(),
		opts:    opts,
		log:     logrus.WithField("component", "engine"),
	}
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *storage.Catalog {
	return e.catalog
}

// Result is the outcome of one query: a fresh table owned by the caller
// plus the time spent compiling and running its kernels.
type Result struct {
	Table   *storage.Table
	Compile time.Duration
	Execute time.Duration
}

// Query parses, compiles, and executes one statement. Errors are local to
// the query: the engine's state is unchanged and the caller may submit
// the next statement.
func (e *Engine) Query(ctx context.Context, statement string) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "query")
	defer span.Finish()

	log := e.log.WithField("query_id", uuid.New().String())

	parseSpan, _ := opentracing.StartSpanFromContext(ctx, "parse")
	q, err := parser.Parse(statement, e.catalog)
	parseSpan.Finish()
	if err != nil {
		return nil, err
	}

	resolveSpan, _ := opentracing.StartSpanFromContext(ctx, "resolve")
	err = resolver.Resolve(q, e.catalog)
	resolveSpan.Finish()
	if err != nil {
		return nil, err
	}

	res := &Result{Table: &storage.Table{Name: "Result Table"}}
	n := q.Table.Rows()

	// the WHERE predicate compiles to its own kernel; its output is a
	// mask over the full row count, and rows whose value is non-zero are
	// kept
	var mask []float64
	if q.Where != nil {
		mask, err = e.runKernel(ctx, res, "where", q.Where, q.WhereColumns, n)
		if err != nil {
			return nil, err
		}
	}

	for i, op := range q.Select {
		name := fmt.Sprintf("select_%d", i)
		values, err := e.runKernel(ctx, res, name, op, q.SelectColumns[i], n)
		if err != nil {
			return nil, err
		}
		if mask != nil {
			values = compact(values, mask)
		}
		res.Table.Columns = append(res.Table.Columns, storage.NewResultColumn(op.String(), values))
	}

	log.WithFields(logrus.Fields{
		"rows":    res.Table.Rows(),
		"compile": res.Compile,
		"execute": res.Execute,
	}).Debug("query complete")
	return res, nil
}

// runKernel compiles one expression into a fresh module, links it, runs
// it over n rows, and releases the module. Every expression gets its own
// module so kernel names can never collide across compilations.
func (e *Engine) runKernel(ctx context.Context, res *Result, name string, op parser.Operation, cols []*storage.Column, n int64) ([]float64, error) {
	compileSpan, _ := opentracing.StartSpanFromContext(ctx, "compile")
	tic := time.Now()

	module := jit.NewModule("RembranDB")
	compiler := jit.NewCompiler(module)
	fn, err := compiler.CompileExpression(name, op, cols)
	if err != nil {
		compileSpan.Finish()
		return nil, err
	}

	pm := jit.NewPassManager()
	if e.opts.Optimize {
		for _, p := range jit.StandardPasses() {
			pm.Add(p)
		}
	}
	pm.Run(fn)

	if err := jit.Verify(module); err != nil {
		compileSpan.Finish()
		return nil, err
	}
	if e.opts.DumpIR {
		fmt.Fprint(e.opts.IRWriter, module.String())
	}

	handle := e.host.AddModule(module)
	defer e.host.RemoveModule(handle)
	kernel := e.host.Lookup(name)
	res.Compile += time.Since(tic)
	compileSpan.Finish()

	executeSpan, _ := opentracing.StartSpanFromContext(ctx, "execute")
	tic = time.Now()
	values := invokeKernel(kernel, n, cols)
	res.Execute += time.Since(tic)
	executeSpan.Finish()
	return values, nil
}

// compact keeps the values whose mask entry is non-zero, preserving input
// order.
func compact(values, mask []float64) []float64 {
	kept := make([]float64, 0, len(values))
	for i, v := range values {
		if mask[i] != 0 {
			kept = append(kept, v)
		}
	}
	return kept
}
