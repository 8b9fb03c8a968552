package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mytherin/RembranDB/pkg/storage"
)

func resultTable(name string, cols map[string][]float64, order ...string) *storage.Table {
	table := &storage.Table{Name: name}
	for _, colName := range order {
		table.Columns = append(table.Columns, storage.NewResultColumn(colName, cols[colName]))
	}
	return table
}

func TestPrintTableLayout(t *testing.T) {
	table := resultTable("Result Table",
		map[string][]float64{"x": {1, 2}}, "x")

	var out bytes.Buffer
	PrintTable(&out, table)
	text := out.String()

	assert.Contains(t, text, "Result Table")
	assert.Contains(t, text, "|")
	assert.Contains(t, text, "1.000000")
	assert.Contains(t, text, "2.000000")
	// no truncation trailer for small results
	assert.NotContains(t, text, "additional")
}

func TestPrintTableHeaderUsesColumnNames(t *testing.T) {
	table := resultTable("Result Table",
		map[string][]float64{"x": {1}, "(x + 5)": {6}}, "x", "(x + 5)")

	var out bytes.Buffer
	PrintTable(&out, table)
	assert.Contains(t, out.String(), "x")
	assert.Contains(t, out.String(), "(x + 5)")
}

func TestPrintTableCapsAtFiftyRows(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = float64(i)
	}
	table := resultTable("Result Table", map[string][]float64{"x": values}, "x")

	var out bytes.Buffer
	PrintTable(&out, table)
	text := out.String()

	assert.Contains(t, text, "An additional 10 rows were not printed (total results: 60).")
	assert.Contains(t, text, "49.000000")
	assert.NotContains(t, text, "50.000000")
}

func TestPrintTableEmpty(t *testing.T) {
	var out bytes.Buffer
	PrintTable(&out, &storage.Table{Name: "Result Table"})
	assert.Empty(t, out.String())
}

func TestPrintTableIntegerColumns(t *testing.T) {
	data := make([]byte, 4)
	data[0] = 42
	table := &storage.Table{
		Name: "demo",
		Columns: []*storage.Column{
			{Name: "i", Type: storage.TypeInt, Length: 1, Data: data},
		},
	}
	var out bytes.Buffer
	PrintTable(&out, table)
	require.Contains(t, out.String(), "42")
	assert.NotContains(t, out.String(), "42.0")
}

func TestPrintTables(t *testing.T) {
	tables := []*storage.Table{
		{Name: "demo"},
		{Name: "benchmark"},
	}
	var out bytes.Buffer
	PrintTables(&out, tables)
	text := out.String()

	assert.Contains(t, text, "Tables")
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var rows []string
	for _, line := range lines {
		if strings.HasPrefix(line, "|") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0], "demo")
	assert.Contains(t, rows[1], "benchmark")
}
