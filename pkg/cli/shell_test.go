package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellReadsSingleLineStatement(t *testing.T) {
	var out bytes.Buffer
	s := NewShell(strings.NewReader("SELECT x FROM demo;\n"), &out)
	assert.Equal(t, "SELECT x FROM demo", s.ReadStatement())
	assert.Contains(t, out.String(), "> ")
}

func TestShellReadsMultiLineStatement(t *testing.T) {
	var out bytes.Buffer
	input := "SELECT x\nFROM demo\nWHERE x > 2;\n"
	s := NewShell(strings.NewReader(input), &out)
	assert.Equal(t, "SELECT x FROM demo WHERE x > 2", s.ReadStatement())
	// one prompt per line read
	assert.Equal(t, 3, strings.Count(out.String(), "> "))
}

func TestShellDiscardsTextAfterSemicolon(t *testing.T) {
	s := NewShell(strings.NewReader("SELECT x FROM demo; trailing\n"), nil)
	assert.Equal(t, "SELECT x FROM demo", s.ReadStatement())
}

func TestShellReturnsMetaCommandImmediately(t *testing.T) {
	s := NewShell(strings.NewReader("\\d\n"), nil)
	assert.Equal(t, `\d`, s.ReadStatement())

	s = NewShell(strings.NewReader("^\n"), nil)
	assert.Equal(t, "^", s.ReadStatement())
}

func TestShellQuitsOnEndOfInput(t *testing.T) {
	var out bytes.Buffer
	s := NewShell(strings.NewReader(""), &out)
	assert.Equal(t, `\q`, s.ReadStatement())
}

func TestShellQuitsOnEOFMidStatement(t *testing.T) {
	s := NewShell(strings.NewReader("SELECT x"), nil)
	assert.Equal(t, `\q`, s.ReadStatement())
}
