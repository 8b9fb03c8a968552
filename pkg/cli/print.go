// pkg/cli/print.go
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Mytherin/RembranDB/pkg/storage"
)

// printedRowCap bounds how many result rows are printed.
const printedRowCap = 50

// columnWidth returns the print width of a column: a fixed width per type,
// widened for long names.
func columnWidth(col *storage.Column) int {
	width := 0
	switch col.Type {
	case storage.TypeInt:
		width = 10
	case storage.TypeLng, storage.TypeFlt:
		width = 20
	case storage.TypeDbl:
		width = 30
	}
	if len(col.Name) > width {
		width = len(col.Name)
	}
	return width
}

// printPadded centers s in a field of the given width, filling with pad.
func printPadded(w io.Writer, s string, width int, pad byte) {
	if len(s) >= width {
		io.WriteString(w, s)
		return
	}
	fill := string(pad)
	side := (width - len(s)) / 2
	io.WriteString(w, strings.Repeat(fill, side))
	io.WriteString(w, s)
	io.WriteString(w, strings.Repeat(fill, side))
	if len(s)+2*side != width {
		io.WriteString(w, fill)
	}
}

// formatValue renders element i of the column: integers plainly, floats
// with six decimals.
func formatValue(col *storage.Column, i int64) string {
	switch col.Type {
	case storage.TypeInt, storage.TypeLng:
		return fmt.Sprintf("%d", col.Int64(i))
	default:
		return fmt.Sprintf("%f", col.Float64(i))
	}
}

// PrintTable writes the table in the fixed bordered layout, capped at 50
// rows.
func PrintTable(w io.Writer, table *storage.Table) {
	if table == nil || len(table.Columns) == 0 {
		return
	}

	width := 0
	for _, col := range table.Columns {
		width += columnWidth(col) + 2
	}

	printPadded(w, "", width, '-')
	fmt.Fprintln(w)
	printPadded(w, table.Name, width, '-')
	fmt.Fprintln(w)
	printPadded(w, "", width, '-')
	fmt.Fprintln(w)

	for _, col := range table.Columns {
		io.WriteString(w, "|")
		printPadded(w, col.Name, columnWidth(col), ' ')
		io.WriteString(w, "|")
	}
	fmt.Fprintln(w)
	printPadded(w, "", width, '-')
	fmt.Fprintln(w)

	rows := table.Rows()
	var index int64
	for ; index < rows && index < printedRowCap; index++ {
		for _, col := range table.Columns {
			io.WriteString(w, "|")
			printPadded(w, formatValue(col, index), columnWidth(col), ' ')
			io.WriteString(w, "|")
		}
		fmt.Fprintln(w)
	}
	printPadded(w, "", width, '-')
	fmt.Fprintln(w)

	if index < rows {
		fmt.Fprintf(w, "An additional %d rows were not printed (total results: %d).\n",
			rows-index, rows)
	}
}

// PrintTables writes the table listing shown by the \d meta-command.
func PrintTables(w io.Writer, tables []*storage.Table) {
	width := 0
	for _, t := range tables {
		if len(t.Name)+4 > width {
			width = len(t.Name) + 4
		}
	}
	if width < len("Tables")+2 {
		width = len("Tables") + 2
	}

	printPadded(w, "", width, '-')
	fmt.Fprintln(w)
	printPadded(w, "Tables", width, '-')
	fmt.Fprintln(w)
	printPadded(w, "", width, '-')
	fmt.Fprintln(w)
	for _, t := range tables {
		io.WriteString(w, "|")
		printPadded(w, t.Name, width-2, ' ')
		io.WriteString(w, "|")
		fmt.Fprintln(w)
	}
	printPadded(w, "", width, '-')
	fmt.Fprintln(w)
}
