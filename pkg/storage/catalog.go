// pkg/storage/catalog.go
package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	errors "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrManifestNotFound is returned when a table's .tbl manifest cannot
	// be opened.
	ErrManifestNotFound = errors.NewKind("unable to open table manifest %s")
	// ErrManifestFormat is returned on a malformed manifest line.
	ErrManifestFormat = errors.NewKind("expected [name] [type] [size] in %s")
	// ErrUnknownType is returned when a manifest names a type that is not
	// one of int, lng, flt, dbl.
	ErrUnknownType = errors.NewKind("unknown column type %s in %s")
	// ErrColumnFile is returned when a column's .col file cannot be opened.
	ErrColumnFile = errors.NewKind("unable to open file %s")
	// ErrShortColumn is returned when a .col file holds fewer bytes than
	// the manifest promises.
	ErrShortColumn = errors.NewKind("column file %s holds %d bytes, expected %d")
	// ErrTableNotFound is returned when looking up an unregistered table.
	ErrTableNotFound = errors.NewKind("Unrecognized table: %s")
)

// Catalog maps table names to their ordered column lists. It is populated
// once at startup and read-only thereafter; column buffers load lazily on
// first use and persist for the process lifetime.
type Catalog struct {
	dir    string
	tables []*Table
	log    *logrus.Entry
}

// NewCatalog creates a catalog rooted at dir; table manifests are expected
// at dir/Tables/<table>.tbl.
func NewCatalog(dir string) *Catalog {
	return &Catalog{
		dir: dir,
		log: logrus.WithField("component", "catalog"),
	}
}

// LoadTable parses Tables/<name>.tbl and registers the table. Column data
// is not read; buffers load on first binding.
func (c *Catalog) LoadTable(name string) error {
	path := filepath.Join(c.dir, "Tables", name+".tbl")
	c.log.WithFields(logrus.Fields{"table": name, "manifest": path}).Info("load table")

	f, err := os.Open(path)
	if err != nil {
		return ErrManifestNotFound.New(path)
	}
	defer f.Close()

	table := &Table{Name: name}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return ErrManifestFormat.New(path)
		}
		typ, ok := ParseType(fields[1])
		if !ok {
			return ErrUnknownType.New(fields[1], path)
		}
		length, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || length < 0 {
			return ErrManifestFormat.New(path)
		}
		location := filepath.Join(c.dir, "Tables", name, fields[0]+".col")
		if _, err := os.Stat(location); err != nil {
			return ErrColumnFile.New(location)
		}
		table.Columns = append(table.Columns, &Column{
			Name:         fields[0],
			Type:         typ,
			Length:       length,
			DataLocation: location,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	c.Register(table)
	return nil
}

// Register adds a table to the catalog. LoadTable uses it for manifest
// tables; result tables are never registered.
func (c *Catalog) Register(table *Table) {
	c.tables = append(c.tables, table)
}

// Table returns the registered table with the given name, or nil.
func (c *Catalog) Table(name string) *Table {
	for _, t := range c.tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Tables returns the registered tables in load order.
func (c *Catalog) Tables() []*Table {
	return c.tables
}

// LoadColumn makes the column's buffer resident. Buffers load at most
// once; loading an already-resident column is a no-op.
func (c *Catalog) LoadColumn(col *Column) error {
	if col.Loaded() {
		return nil
	}
	size := col.Length * col.Type.Size()
	data, err := mapColumn(col.DataLocation, size)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrColumnFile.New(col.DataLocation)
		}
		return err
	}
	col.Data = data
	c.log.WithFields(logrus.Fields{
		"column": col.Name,
		"bytes":  size,
	}).Debug("column buffer loaded")
	return nil
}
