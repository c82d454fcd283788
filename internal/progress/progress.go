// Package progress drives chunked operations one step at a time.
//
// Long operations (region shifts, pattern scans) are exposed as a [Stepper]
// whose Step performs exactly one chunk of I/O. The chunk boundary is the only
// place where an operation can be suspended or cancelled; [Run] checks the
// context and the progress callback there and nowhere else.
package progress

import (
	"context"

	"github.com/kobzarvs/qview/internal/store"
)

// Func receives the amount of work done so far before each chunk.
// Returning false cancels the operation.
type Func func(done, total int64) bool

// Stepper is a chunked operation.
type Stepper interface {
	// Step performs one chunk and reports whether the operation finished.
	Step() (bool, error)
	Progress() (done, total int64)
}

// Check is the per-chunk cancellation point.
func Check(ctx context.Context, s Stepper, report Func) error {
	if ctx != nil && ctx.Err() != nil {
		return store.ErrCancelled
	}
	if report != nil {
		done, total := s.Progress()
		if !report(done, total) {
			return store.ErrCancelled
		}
	}
	return nil
}

// Run steps s to completion, checking for cancellation before every chunk.
func Run(ctx context.Context, s Stepper, report Func) error {
	for {
		if err := Check(ctx, s, report); err != nil {
			return err
		}
		finished, err := s.Step()
		if err != nil {
			return err
		}
		if finished {
			if report != nil {
				done, total := s.Progress()
				report(done, total)
			}
			return nil
		}
	}
}

// Percent forwards only reports that change the integer percentage.
// Reports in between continue the operation.
func Percent(report func(percent int) bool) Func {
	last := -1
	return func(done, total int64) bool {
		p := 100
		if total > 0 {
			p = int(done * 100 / total)
		}
		if p == last {
			return true
		}
		last = p
		return report(p)
	}
}
