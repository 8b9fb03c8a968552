// cmd/rembrandb/main.go
//
// RembranDB - a read-only analytical query engine that JIT-compiles each
// query's expressions into vector-loop kernels.
//
// Usage:
//
//	rembrandb [-opt] [-no-print] [-no-llvm] [-s "stmt"]
//
// Without -s, an interactive session reads statements until \q.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Mytherin/RembranDB/pkg/cli"
	"github.com/Mytherin/RembranDB/pkg/config"
	"github.com/Mytherin/RembranDB/pkg/engine"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

const configFile = "rembrandb.yml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	optimize := false
	printResult := true
	dumpIR := true
	oneShot := false
	statement := ""

	for _, arg := range args {
		switch arg {
		case "--help":
			fmt.Println("RembranDB Options.")
			fmt.Println("  -opt              Enable  LLVM optimizations.")
			fmt.Println("  -no-print         Do not print query results.")
			fmt.Println("  -no-llvm          Do not print LLVM instructions.")
			fmt.Println("  -s \"stmnt\"        Execute \"stmnt\" and exit.")
			return 0
		case "-opt":
			fmt.Println("Optimizations enabled.")
			optimize = true
		case "-no-print":
			fmt.Println("Printing output disabled.")
			printResult = false
		case "-no-llvm":
			fmt.Println("Printing LLVM disabled.")
			dumpIR = false
		case "-s":
			oneShot = true
		default:
			if oneShot && statement == "" {
				statement = arg
				continue
			}
			fmt.Printf("Unrecognized command line option %q.\n", arg)
			return 1
		}
	}

	logrus.SetOutput(os.Stderr)

	cfg, err := config.LoadIfPresent(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	catalog := storage.NewCatalog(cfg.DataDir)
	loaded := 0
	for _, table := range cfg.Tables {
		if err := catalog.LoadTable(table); err != nil {
			if table == "demo" {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return 1
			}
			logrus.WithField("table", table).WithError(err).Warn("skipping table")
			continue
		}
		loaded++
	}
	if loaded == 0 {
		fmt.Fprintln(os.Stderr, "no tables could be loaded")
		return 1
	}

	if !oneShot {
		fmt.Println("# RembranDB server v0.0.0.1")
		fmt.Println("# Serving table \"demo\", with no support for multithreading")
		fmt.Println("# Did not find any available memory (didn't look for any either)")
		fmt.Println("# Not listening to any connection requests.")
		fmt.Println("# RembranDB/SQL module loaded")
	}

	eng := engine.New(catalog, engine.Options{
		Optimize: optimize,
		DumpIR:   dumpIR,
		IRWriter: os.Stdout,
	})

	repl := cli.NewREPL(eng, os.Stdin, os.Stdout, os.Stderr, printResult)
	if oneShot {
		repl.Dispatch(statement)
		return 0
	}
	repl.Run()
	return 0
}
