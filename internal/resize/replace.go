package resize

import (
	"context"

	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/store"
)

// Replace substitutes [start, start+oldLen) with data, resizing the region
// first when the lengths differ. Insert with oldLen 0, delete with empty data.
func Replace(ctx context.Context, st store.Store, start, oldLen int64, data []byte, opts Options) error {
	j, err := NewReplace(st, start, oldLen, data, opts.ScratchSize)
	if err != nil {
		return err
	}
	return progress.Run(ctx, j, opts.Progress)
}

// ReplaceJob is a Replace split into resize steps followed by one write.
type ReplaceJob struct {
	*Job
	data    []byte
	written bool
}

func NewReplace(st store.Store, start, oldLen int64, data []byte, scratchSize int) (*ReplaceJob, error) {
	j, err := NewJob(st, Region{Start: start, OldLen: oldLen, NewLen: int64(len(data))}, scratchSize)
	if err != nil {
		return nil, err
	}
	return &ReplaceJob{Job: j, data: data}, nil
}

// Step finishes the resize, then writes the replacement bytes.
func (r *ReplaceJob) Step() (bool, error) {
	if !r.Job.Done() {
		if _, err := r.Job.Step(); err != nil {
			return false, err
		}
		if !r.Job.Done() {
			return false, nil
		}
	}
	if !r.written && len(r.data) > 0 {
		if err := store.WriteFullAt(r.st, r.data, r.region.Start); err != nil {
			return false, err
		}
	}
	r.written = true
	return true, nil
}

func (r *ReplaceJob) Done() bool { return r.written }
