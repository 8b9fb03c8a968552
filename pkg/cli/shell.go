// pkg/cli/shell.go
// Package cli implements the interactive session: the statement reader,
// the REPL with its meta-commands, and the result table printer.
package cli

import (
	"bufio"
	"io"
	"strings"
)

// Shell reads statements from an input stream. A statement ends at a
// semicolon and may span multiple lines; a line whose first character is
// a backslash or caret is a meta-command and is returned immediately.
type Shell struct {
	reader *bufio.Reader
	output io.Writer
	prompt string
}

// NewShell creates a shell reading from input and prompting on output.
func NewShell(input io.Reader, output io.Writer) *Shell {
	return &Shell{
		reader: bufio.NewReader(input),
		output: output,
		prompt: "> ",
	}
}

// ReadStatement reads until a semicolon terminates the statement or a
// meta-command line appears. At end of input it returns the quit command.
func (s *Shell) ReadStatement() string {
	var parts []string
	for {
		if s.output != nil {
			io.WriteString(s.output, s.prompt)
		}
		line, err := s.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, `\`) || strings.HasPrefix(trimmed, "^") {
			return trimmed
		}

		if i := strings.Index(line, ";"); i >= 0 {
			parts = append(parts, line[:i])
			return strings.Join(parts, " ")
		}
		parts = append(parts, line)

		if err != nil {
			// end of input quits the session
			if s.output != nil {
				io.WriteString(s.output, "\n")
			}
			return `\q`
		}
	}
}
