// pkg/sql/resolver/resolver.go
// Package resolver binds column references to catalog columns and computes
// the ordered, deduplicated used-column lists the code generator packs
// kernel inputs by.
package resolver

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/Mytherin/RembranDB/pkg/sql/parser"
	"github.com/Mytherin/RembranDB/pkg/storage"
)

// ErrUnknownColumn is returned when an expression names a column the FROM
// table does not have.
var ErrUnknownColumn = errors.NewKind("Unrecognized column name %s")

// Resolve binds every ColumnRef in the query to a column of the FROM
// table, loading column buffers on first binding, and fills the query's
// used-column lists. Resolving an already-resolved query is a no-op and
// does not reload buffers.
func Resolve(q *parser.Query, catalog *storage.Catalog) error {
	if q.Star {
		expandStar(q)
	}

	q.SelectColumns = make([][]*storage.Column, len(q.Select))
	for i, op := range q.Select {
		cols, err := columns(op, q.Table, catalog)
		if err != nil {
			return err
		}
		q.SelectColumns[i] = cols
	}

	q.WhereColumns = nil
	if q.Where != nil {
		cols, err := columns(q.Where, q.Table, catalog)
		if err != nil {
			return err
		}
		q.WhereColumns = cols
	}

	// query-wide union: each SELECT list in order, then the WHERE list
	q.UsedColumns = nil
	for _, cols := range q.SelectColumns {
		q.UsedColumns = appendUnique(q.UsedColumns, cols...)
	}
	q.UsedColumns = appendUnique(q.UsedColumns, q.WhereColumns...)
	return nil
}

// expandStar replaces a bare * select list with one reference per table
// column, in table order.
func expandStar(q *parser.Query) {
	q.Select = make([]parser.Operation, 0, len(q.Table.Columns))
	for _, col := range q.Table.Columns {
		q.Select = append(q.Select, &parser.ColumnRef{Name: col.Name})
	}
	q.Star = false
}

// columns walks the expression depth-first left to right, binding every
// column reference and recording each distinct column on first encounter.
func columns(op parser.Operation, table *storage.Table, catalog *storage.Catalog) ([]*storage.Column, error) {
	var cols []*storage.Column
	err := walk(op, table, catalog, &cols)
	return cols, err
}

func walk(op parser.Operation, table *storage.Table, catalog *storage.Catalog, cols *[]*storage.Column) error {
	switch o := op.(type) {
	case *parser.Binary:
		if err := walk(o.Left, table, catalog, cols); err != nil {
			return err
		}
		return walk(o.Right, table, catalog, cols)
	case *parser.ColumnRef:
		if o.Column == nil {
			col := table.Column(o.Name)
			if col == nil {
				return ErrUnknownColumn.New(o.Name)
			}
			o.Column = col
		}
		if err := catalog.LoadColumn(o.Column); err != nil {
			return err
		}
		*cols = appendUnique(*cols, o.Column)
		return nil
	case *parser.Constant:
		return nil
	default:
		return nil
	}
}

func appendUnique(dst []*storage.Column, cols ...*storage.Column) []*storage.Column {
	for _, col := range cols {
		found := false
		for _, have := range dst {
			if have == col {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, col)
		}
	}
	return dst
}
