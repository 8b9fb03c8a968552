//go:build unix

// pkg/storage/mmap_unix.go
package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapColumn maps a .col file read-only. Column buffers are never unmapped:
// they stay valid until process exit, matching the catalog's ownership
// contract.
func mapColumn(path string, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() < size {
		return nil, ErrShortColumn.New(path, stat.Size(), size)
	}
	if size == 0 {
		return []byte{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return data, nil
}
