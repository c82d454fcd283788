package store

import (
	"sync"
	"syscall"
)

// Op names a store operation for fault injection.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpSize
	OpTruncate
	opCount
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpSize:
		return "size"
	case OpTruncate:
		return "truncate"
	}
	return "unknown"
}

// Faulty wraps a [Store] and fails chosen calls with EIO.
//
// Faults are deterministic: FailAfter(op, n) lets n-1 further calls of op
// through and fails the n-th one. Sticky faults fail every call until Reset.
type Faulty struct {
	Store

	mu     sync.Mutex
	calls  [opCount]int
	armed  [opCount]int
	sticky [opCount]bool
}

// NewFaulty returns a passthrough wrapper around st.
func NewFaulty(st Store) *Faulty {
	return &Faulty{Store: st}
}

// FailAfter arms a single fault on the n-th next call of op.
func (f *Faulty) FailAfter(op Op, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[op] = n
}

// Fail makes every call of op fail until Reset.
func (f *Faulty) Fail(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sticky[op] = true
}

// Reset disarms all faults. Call counters are kept.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = [opCount]int{}
	f.sticky = [opCount]bool{}
}

// Calls returns how many times op was invoked, failed calls included.
func (f *Faulty) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Faulty) inject(op Op, off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	fail := f.sticky[op]
	if f.armed[op] > 0 {
		f.armed[op]--
		if f.armed[op] == 0 {
			fail = true
		}
	}
	if !fail {
		return nil
	}
	return &IOError{Op: op.String(), Path: f.Path(), Offset: off, Err: syscall.EIO}
}

func (f *Faulty) ReadAt(p []byte, off int64) (int, error) {
	if err := f.inject(OpRead, off); err != nil {
		return 0, err
	}
	return f.Store.ReadAt(p, off)
}

func (f *Faulty) WriteAt(p []byte, off int64) (int, error) {
	if err := f.inject(OpWrite, off); err != nil {
		return 0, err
	}
	return f.Store.WriteAt(p, off)
}

func (f *Faulty) Size() (int64, error) {
	if err := f.inject(OpSize, -1); err != nil {
		return 0, err
	}
	return f.Store.Size()
}

func (f *Faulty) Truncate(size int64) error {
	if err := f.inject(OpTruncate, size); err != nil {
		return err
	}
	return f.Store.Truncate(size)
}

var _ Store = (*Faulty)(nil)
