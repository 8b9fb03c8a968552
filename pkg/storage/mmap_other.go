//go:build !unix

// pkg/storage/mmap_other.go
package storage

import "os"

// mapColumn reads a .col file into memory on platforms without mmap
// support. The buffer persists for the process lifetime like its mapped
// counterpart.
func mapColumn(path string, size int64) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < size {
		return nil, ErrShortColumn.New(path, len(data), size)
	}
	return data[:size], nil
}
