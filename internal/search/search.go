// Package search scans a store for a byte pattern in fixed-size chunks.
//
// Consecutive chunks overlap by len(pattern)-1 bytes, so a match that crosses
// a chunk boundary inside the store is found. With wraparound the scan
// continues at offset 0 after the end of the store and stops before the start
// offset. Chunks are never joined across the physical end of the store: a
// match that begins near the end and continues at offset 0 is not reported.
package search

import (
	"bytes"
	"context"
	"io"

	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/store"
)

// DefaultChunkSize is the read size of one scan step.
const DefaultChunkSize = 1 << 20

type Options struct {
	// Wrap continues at offset 0 when the end is reached.
	Wrap bool
	// ChunkSize is raised to the pattern length when smaller.
	ChunkSize int
	Progress  progress.Func
}

// Scanner performs one search a chunk per Step.
type Scanner struct {
	st      store.Store
	pattern []byte
	buf     []byte
	size    int64
	start   int64

	pos     int64 // next candidate position
	limit   int64 // candidates of the current pass are < limit
	wrapped bool
	visited int64

	found int64
	done  bool
}

// NewScanner prepares a search for pattern beginning at start.
func NewScanner(st store.Store, pattern []byte, start int64, opts Options) (*Scanner, error) {
	if len(pattern) == 0 {
		return nil, store.ErrEmptyPattern
	}
	size, err := st.Size()
	if err != nil {
		return nil, err
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	if chunk < len(pattern) {
		chunk = len(pattern)
	}
	if int64(chunk) > size {
		chunk = max(int(size), len(pattern))
	}
	if start < 0 {
		start = 0
	}
	s := &Scanner{
		st:      st,
		pattern: append([]byte(nil), pattern...),
		buf:     make([]byte, chunk),
		size:    size,
		found:   -1,
	}
	switch {
	case start < size:
		s.start = start
		s.pos, s.limit = start, size
		s.wrapped = !opts.Wrap || start == 0
	case opts.Wrap && size > 0:
		s.start = 0
		s.pos, s.limit = 0, size
		s.wrapped = true
	default:
		s.start = start
		s.done = true
	}
	return s, nil
}

// Result returns the match offset, if one was found.
func (s *Scanner) Result() (int64, bool) {
	return s.found, s.found >= 0
}

// Visited is the number of candidate start positions checked.
func (s *Scanner) Visited() int64 { return s.visited }

func (s *Scanner) Done() bool { return s.done }

func (s *Scanner) Progress() (int64, int64) { return s.visited, s.size }

// Step reads and checks one chunk.
func (s *Scanner) Step() (bool, error) {
	if s.done {
		return true, nil
	}
	plen := int64(len(s.pattern))
	// Bytes needed to test the last candidate of this pass.
	readLimit := s.limit - 1 + plen
	if readLimit > s.size {
		readLimit = s.size
	}
	readEnd := s.pos + int64(len(s.buf))
	if readEnd > readLimit {
		readEnd = readLimit
	}
	n := readEnd - s.pos
	got, err := store.ReadFullAt(s.st, s.buf[:n], s.pos)
	if err != nil {
		return false, err
	}
	if int64(got) != n {
		return false, &store.IOError{Op: "read", Path: s.st.Path(), Offset: s.pos + int64(got), Err: io.ErrUnexpectedEOF}
	}

	if i := bytes.Index(s.buf[:n], s.pattern); i >= 0 && s.pos+int64(i) < s.limit {
		s.found = s.pos + int64(i)
		s.visited += int64(i) + 1
		s.done = true
		return true, nil
	}

	if readEnd == readLimit {
		s.visited += s.limit - s.pos
		return s.nextPass(), nil
	}
	next := readEnd - plen + 1
	s.visited += next - s.pos
	s.pos = next
	return false, nil
}

func (s *Scanner) nextPass() bool {
	if s.wrapped || s.start == 0 {
		s.done = true
		return true
	}
	s.wrapped = true
	s.pos, s.limit = 0, s.start
	return false
}

// Find returns the offset of the first match of pattern at or after start, in
// scan order. Cancellation is reported as store.ErrCancelled.
func Find(ctx context.Context, st store.Store, pattern []byte, start int64, opts Options) (int64, bool, error) {
	s, err := NewScanner(st, pattern, start, opts)
	if err != nil {
		return -1, false, err
	}
	if err := progress.Run(ctx, s, opts.Progress); err != nil {
		return -1, false, err
	}
	off, ok := s.Result()
	return off, ok, nil
}
