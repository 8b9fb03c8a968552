// pkg/storage/table.go
package storage

import (
	"encoding/binary"
	"math"
)

// Table is a named, ordered list of columns sharing a common row count.
// Catalog tables are created at startup and never mutated; result tables
// are freshly owned per query.
type Table struct {
	Name    string
	Columns []*Column
}

// Column returns the column with the given name, exact case-sensitive
// match, or nil if the table has no such column.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Rows returns the table's row count.
func (t *Table) Rows() int64 {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Length
}

// NewResultColumn packs query output values into a fresh dbl column.
func NewResultColumn(name string, values []float64) *Column {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return &Column{
		Name:   name,
		Type:   TypeDbl,
		Length: int64(len(values)),
		Data:   data,
	}
}
