// Package store provides the byte-addressable resources the viewer engine
// reads and mutates.
//
// The main types are:
//   - [Store]: random-access read/write/truncate over a named resource
//   - [File]: production implementation backed by [os.File]
//   - [Memory]: in-memory implementation for tests and scratch data
//   - [Faulty]: testing wrapper that injects I/O failures
//
// A store makes no attempt to detect mutation by other processes. Callers
// that know the underlying data changed must refresh explicitly.
package store

import (
	"errors"
	"fmt"
	"io"
)

// Store is a byte-addressable resource with a mutable size.
//
// ReadAt follows [io.ReaderAt]: a read that reaches the end returns the bytes
// that exist together with [io.EOF]. Other failures are reported as *IOError.
type Store interface {
	io.ReaderAt
	io.WriterAt

	// Size returns the current size in bytes.
	Size() (int64, error)

	// Truncate changes the size. Growing fills the new bytes with zeros.
	Truncate(size int64) error

	// Path identifies the store in errors and logs.
	Path() string

	Close() error
}

// ReadFullAt reads len(p) bytes at off, stopping early only at the end of the
// store. It returns the number of bytes read; reaching the end is not an error.
func ReadFullAt(st Store, p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		n, err := st.ReadAt(p[total:], off+int64(total))
		total += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, ioErr("read", st.Path(), off+int64(total), err)
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}

// WriteFullAt writes all of p at off.
func WriteFullAt(st Store, p []byte, off int64) error {
	n, err := st.WriteAt(p, off)
	if err != nil {
		return ioErr("write", st.Path(), off+int64(n), err)
	}
	if n != len(p) {
		return &IOError{Op: "write", Path: st.Path(), Offset: off + int64(n), Err: io.ErrShortWrite}
	}
	return nil
}

// ReadRange returns a copy of [off, off+n). It is meant for small ranges such
// as a marked selection; the range must lie inside the store.
func ReadRange(st Store, off, n int64) ([]byte, error) {
	size, err := st.Size()
	if err != nil {
		return nil, ioErr("size", st.Path(), -1, err)
	}
	if off < 0 || n < 0 || off > size || n > size-off {
		return nil, fmt.Errorf("range of %d bytes at %d outside %d bytes: %w", n, off, size, ErrNotFound)
	}
	data := make([]byte, n)
	got, err := ReadFullAt(st, data, off)
	if err != nil {
		return nil, err
	}
	if int64(got) != n {
		return nil, &IOError{Op: "read", Path: st.Path(), Offset: off + int64(got), Err: io.ErrUnexpectedEOF}
	}
	return data, nil
}
