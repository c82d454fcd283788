package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Mode selects how a file store is opened.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// File implements [Store] over an [os.File].
type File struct {
	f    *os.File
	path string
	mode Mode
}

// Open opens an existing file. A missing path is reported as [ErrNotFound].
func Open(path string, mode Mode) (*File, error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, ioErr("open", path, -1, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ioErr("stat", path, -1, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory: %w", path, ErrNotFound)
	}
	return &File{f: f, path: path, mode: mode}, nil
}

// Create creates or truncates path and opens it read-write.
func Create(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ioErr("create", path, -1, err)
	}
	return &File{f: f, path: path, mode: ReadWrite}, nil
}

func (s *File) Path() string { return s.path }

func (s *File) Writable() bool { return s.mode == ReadWrite }

func (s *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.f.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, ioErr("read", s.path, off, err)
	}
	return n, err
}

func (s *File) WriteAt(p []byte, off int64) (int, error) {
	if s.mode != ReadWrite {
		return 0, ioErr("write", s.path, off, ErrReadOnly)
	}
	n, err := s.f.WriteAt(p, off)
	return n, ioErr("write", s.path, off, err)
}

func (s *File) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, ioErr("size", s.path, -1, err)
	}
	return info.Size(), nil
}

func (s *File) Truncate(size int64) error {
	if s.mode != ReadWrite {
		return ioErr("truncate", s.path, size, ErrReadOnly)
	}
	return ioErr("truncate", s.path, size, s.f.Truncate(size))
}

func (s *File) Close() error {
	return ioErr("close", s.path, -1, s.f.Close())
}

var _ Store = (*File)(nil)
