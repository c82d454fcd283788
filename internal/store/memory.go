package store

import (
	"errors"
	"io"
	"sync"
)

// Memory is a [Store] held entirely in memory.
type Memory struct {
	mu   sync.RWMutex
	name string
	data []byte
}

// NewMemory returns a store holding a copy of data.
func NewMemory(name string, data []byte) *Memory {
	return &Memory{name: name, data: append([]byte(nil), data...)}
}

func (m *Memory) Path() string { return m.name }

func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ioErr("read", m.name, off, errors.New("negative offset"))
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ioErr("write", m.name, off, errors.New("negative offset"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if end := off + int64(len(p)); end > int64(len(m.data)) {
		m.grow(end)
	}
	return copy(m.data[off:], p), nil
}

func (m *Memory) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data)), nil
}

func (m *Memory) Truncate(size int64) error {
	if size < 0 {
		return ioErr("truncate", m.name, size, errors.New("negative size"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	m.grow(size)
	return nil
}

// Bytes returns a copy of the current contents.
func (m *Memory) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

func (m *Memory) Close() error { return nil }

func (m *Memory) grow(size int64) {
	if size <= int64(cap(m.data)) {
		old := len(m.data)
		m.data = m.data[:size]
		clear(m.data[old:])
		return
	}
	next := make([]byte, size)
	copy(next, m.data)
	m.data = next
}

var _ Store = (*Memory)(nil)
