// Package resize grows or shrinks a byte region of a store in place.
//
// The bytes after the region are shifted through a bounded scratch buffer,
// one chunk per step. Growing shifts from the highest offsets down, shrinking
// from the lowest offsets up, so a chunk is always read before the write that
// could overwrite it.
//
// There is no journal. A shift that fails or is cancelled part way leaves the
// store partially shifted and is not rolled back; callers must treat the
// affected range as undefined and refresh any view of the store.
package resize

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/store"
)

// DefaultScratchSize bounds the memory used to shift bytes.
const DefaultScratchSize = 1 << 20

// Region describes the resize of [Start, Start+OldLen) to NewLen bytes.
type Region struct {
	Start  int64
	OldLen int64
	NewLen int64
}

// Delta is the change of the store size.
func (r Region) Delta() int64 { return r.NewLen - r.OldLen }

func (r Region) String() string {
	return fmt.Sprintf("[%d+%d -> %d]", r.Start, r.OldLen, r.NewLen)
}

type Options struct {
	// ScratchSize caps the shift buffer; DefaultScratchSize when zero.
	ScratchSize int
	// Progress is called before every chunk; returning false cancels.
	Progress progress.Func
}

// Job is one resize, performed a chunk per Step.
type Job struct {
	st      store.Store
	region  Region
	size    int64 // store size before the resize
	tail    int64 // first byte after the old region
	scratch []byte
	pos     int64 // next chunk boundary of the shift
	shifted int64
	started bool
	done    bool
}

// NewJob validates region against the store and prepares the shift. The
// scratch buffer is never larger than the bytes to move.
func NewJob(st store.Store, region Region, scratchSize int) (*Job, error) {
	size, err := st.Size()
	if err != nil {
		return nil, err
	}
	if region.Start < 0 || region.OldLen < 0 || region.NewLen < 0 ||
		region.Start > size || region.OldLen > size-region.Start ||
		region.NewLen > math.MaxInt64-(size-region.OldLen) {
		return nil, fmt.Errorf("resize %s of %d bytes: %w", region, size, store.ErrInvalidRegion)
	}
	if scratchSize <= 0 {
		scratchSize = DefaultScratchSize
	}
	tail := region.Start + region.OldLen
	bufSize := size - tail
	if bufSize > int64(scratchSize) {
		bufSize = int64(scratchSize)
	}
	j := &Job{
		st:      st,
		region:  region,
		size:    size,
		tail:    tail,
		scratch: make([]byte, bufSize),
		done:    region.NewLen == region.OldLen,
	}
	if region.Delta() > 0 {
		j.pos = size
	} else {
		j.pos = tail
	}
	return j, nil
}

func (j *Job) Region() Region { return j.region }

// Delta is the change of the store size once the job completes.
func (j *Job) Delta() int64 { return j.region.Delta() }

// Done reports whether the resize completed.
func (j *Job) Done() bool { return j.done }

// Progress returns the bytes shifted so far and the bytes to shift.
func (j *Job) Progress() (int64, int64) {
	return j.shifted, j.size - j.tail
}

// Step shifts one chunk. A grow extends the store before its first chunk;
// a shrink truncates after its last.
func (j *Job) Step() (bool, error) {
	if j.done {
		return true, nil
	}
	delta := j.region.Delta()
	if delta > 0 {
		return j.stepGrow(delta)
	}
	return j.stepShrink(-delta)
}

func (j *Job) stepGrow(delta int64) (bool, error) {
	if !j.started {
		if err := j.st.Truncate(j.size + delta); err != nil {
			return false, err
		}
		j.started = true
	}
	if j.pos > j.tail {
		n := j.pos - j.tail
		if n > int64(len(j.scratch)) {
			n = int64(len(j.scratch))
		}
		rpos := j.pos - n
		if err := j.move(rpos, rpos+delta, n); err != nil {
			return false, err
		}
		j.pos = rpos
	}
	j.done = j.pos <= j.tail
	return j.done, nil
}

func (j *Job) stepShrink(delta int64) (bool, error) {
	j.started = true
	if j.pos < j.size {
		n := j.size - j.pos
		if n > int64(len(j.scratch)) {
			n = int64(len(j.scratch))
		}
		if err := j.move(j.pos, j.pos-delta, n); err != nil {
			return false, err
		}
		j.pos += n
	}
	if j.pos < j.size {
		return false, nil
	}
	if err := j.st.Truncate(j.size - delta); err != nil {
		return false, err
	}
	j.done = true
	return true, nil
}

// move reads the whole chunk before writing it to its new location.
func (j *Job) move(from, to, n int64) error {
	buf := j.scratch[:n]
	got, err := store.ReadFullAt(j.st, buf, from)
	if err != nil {
		return err
	}
	if int64(got) != n {
		return &store.IOError{Op: "read", Path: j.st.Path(), Offset: from + int64(got), Err: io.ErrUnexpectedEOF}
	}
	if err := store.WriteFullAt(j.st, buf, to); err != nil {
		return err
	}
	j.shifted += n
	return nil
}

// Resize grows or shrinks region in place. The new region content is left
// as whatever bytes were there; use Replace to write it.
func Resize(ctx context.Context, st store.Store, region Region, opts Options) error {
	j, err := NewJob(st, region, opts.ScratchSize)
	if err != nil {
		return err
	}
	return progress.Run(ctx, j, opts.Progress)
}
