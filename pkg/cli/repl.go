// pkg/cli/repl.go
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mytherin/RembranDB/pkg/engine"
)

// REPL drives the interactive session: it reads statements, dispatches
// meta-commands, and executes queries against the engine. Query errors
// print a one-line diagnostic and return control to the prompt.
type REPL struct {
	engine      *engine.Engine
	shell       *Shell
	output      io.Writer
	errOutput   io.Writer
	printResult bool
}

// NewREPL creates a REPL over the engine.
func NewREPL(e *engine.Engine, input io.Reader, output, errOutput io.Writer, printResult bool) *REPL {
	return &REPL{
		engine:      e,
		shell:       NewShell(input, output),
		output:      output,
		errOutput:   errOutput,
		printResult: printResult,
	}
}

// Run reads and executes statements until \q, a caret line, or end of
// input.
func (r *REPL) Run() {
	for {
		stmt := r.shell.ReadStatement()
		if !r.Dispatch(stmt) {
			return
		}
	}
}

// Dispatch handles one statement or meta-command. It returns false when
// the session should end.
func (r *REPL) Dispatch(stmt string) bool {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == `\q` || strings.HasPrefix(trimmed, "^") {
		return false
	}
	if trimmed == `\d` {
		PrintTables(r.output, r.engine.Catalog().Tables())
		return true
	}
	if strings.HasPrefix(trimmed, `\`) {
		fmt.Fprintf(r.errOutput, "Unrecognized command %s\n", trimmed)
		return true
	}
	r.Execute(stmt)
	return true
}

// Execute runs one query and prints its timing report and result table.
func (r *REPL) Execute(stmt string) {
	tic := time.Now()
	res, err := r.engine.Query(context.Background(), stmt)
	total := time.Since(tic)
	if err != nil {
		fmt.Fprintf(r.errOutput, "%v\n", err)
		return
	}

	fmt.Fprintf(r.output, "Compile: %f seconds\n", res.Compile.Seconds())
	fmt.Fprintf(r.output, "Runtime: %f seconds\n", res.Execute.Seconds())
	fmt.Fprintf(r.output, "Total Runtime: %f seconds\n", total.Seconds())
	if r.printResult {
		PrintTable(r.output, res.Table)
	}
}
