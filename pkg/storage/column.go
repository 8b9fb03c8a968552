// pkg/storage/column.go
// Package storage implements the on-disk column catalog: tables described by
// .tbl manifests whose column data lives in raw little-endian .col files.
package storage

import (
	"encoding/binary"
	"math"
)

// Type identifies the primitive element type of a column.
type Type uint8

const (
	TypeInt Type = iota + 1 // 32-bit signed integer
	TypeLng                 // 64-bit signed integer
	TypeFlt                 // 32-bit float
	TypeDbl                 // 64-bit float
)

// ParseType maps a manifest type name to a Type.
func ParseType(s string) (Type, bool) {
	switch s {
	case "int":
		return TypeInt, true
	case "lng":
		return TypeLng, true
	case "flt":
		return TypeFlt, true
	case "dbl":
		return TypeDbl, true
	default:
		return 0, false
	}
}

// String returns the manifest name of the type.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLng:
		return "lng"
	case TypeFlt:
		return "flt"
	case TypeDbl:
		return "dbl"
	default:
		return "unknown"
	}
}

// Size returns the element size in bytes.
func (t Type) Size() int64 {
	switch t {
	case TypeInt, TypeFlt:
		return 4
	case TypeLng, TypeDbl:
		return 8
	default:
		return 0
	}
}

// Column is a named, typed, fixed-length vector of one primitive type.
// Data is nil until the column is loaded; once loaded it holds exactly
// Length*Type.Size() bytes and stays valid for the process lifetime.
// The Catalog exclusively owns column buffers.
type Column struct {
	Name         string
	Type         Type
	Length       int64
	DataLocation string
	Data         []byte
}

// Loaded reports whether the column buffer is resident.
func (c *Column) Loaded() bool {
	return c.Data != nil
}

// Float64 returns element i widened to f64: flt via floating-point
// extension, int and lng via signed conversion, dbl as-is.
func (c *Column) Float64(i int64) float64 {
	switch c.Type {
	case TypeInt:
		return float64(int32(binary.LittleEndian.Uint32(c.Data[i*4:])))
	case TypeLng:
		return float64(int64(binary.LittleEndian.Uint64(c.Data[i*8:])))
	case TypeFlt:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(c.Data[i*4:])))
	case TypeDbl:
		return math.Float64frombits(binary.LittleEndian.Uint64(c.Data[i*8:]))
	default:
		return 0
	}
}

// Int64 returns element i of an integer column without widening to float.
func (c *Column) Int64(i int64) int64 {
	switch c.Type {
	case TypeInt:
		return int64(int32(binary.LittleEndian.Uint32(c.Data[i*4:])))
	case TypeLng:
		return int64(binary.LittleEndian.Uint64(c.Data[i*8:]))
	default:
		return 0
	}
}
