package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing path or a range outside the store.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRegion reports a resize region that does not fit the store.
	ErrInvalidRegion = fmt.Errorf("invalid region: %w", ErrNotFound)

	// ErrCancelled is returned when a chunked operation stops on request.
	// It is a normal termination path, not a failure.
	ErrCancelled = errors.New("cancelled")

	// ErrOutOfMemory reports a buffer that cannot be allocated for a session.
	ErrOutOfMemory = errors.New("out of memory")

	ErrEmptyPattern = errors.New("empty search pattern")
	ErrReadOnly     = errors.New("store is read-only")
)

// IOError wraps a failed read, write, size or truncate call on a store.
type IOError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s at %d: %v", e.Op, e.Path, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// IsCancelled reports whether err ends a cancelled operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// ioErr returns err unchanged when it already is an *IOError.
func ioErr(op, path string, off int64, err error) error {
	if err == nil {
		return nil
	}
	var ie *IOError
	if errors.As(err, &ie) {
		return err
	}
	return &IOError{Op: op, Path: path, Offset: off, Err: err}
}
