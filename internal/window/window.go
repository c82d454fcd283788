// Package window keeps a fixed-size view of a store at a moving offset.
//
// Repositioning keeps the bytes shared by the old and new ranges and reads
// only the difference. Two buffers of the window's capacity are allocated up
// front: the next view is assembled in the spare one and swapped in only
// after every read succeeded, so a failed reposition leaves the previous view
// intact.
package window

import (
	"fmt"

	"github.com/kobzarvs/qview/internal/store"
)

// MaxCapacity bounds the buffer allocated for one session.
const MaxCapacity = 256 << 20

// View is the window content after a reposition. Data is owned by the window
// and is only valid until the next reposition.
type View struct {
	Offset int64
	Size   int64 // store size at the last refresh
	Data   []byte
	Valid  int // leading bytes of Data backed by the store; the rest is zero
}

// At returns the byte at absolute offset pos if the view holds it.
func (v View) At(pos int64) (byte, bool) {
	i := pos - v.Offset
	if i < 0 || i >= int64(v.Valid) {
		return 0, false
	}
	return v.Data[i], true
}

// Stats counts store reads issued by a window.
type Stats struct {
	Reads     int
	BytesRead int64
}

type Window struct {
	st     store.Store
	buf    []byte
	spare  []byte
	offset int64
	size   int64
	loaded bool
	stats  Stats
}

// New allocates a window of capacity bytes over st. No I/O happens until the
// first Reposition.
func New(st store.Store, capacity int) (*Window, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("window capacity %d: %w", capacity, store.ErrOutOfMemory)
	}
	return &Window{
		st:    st,
		buf:   make([]byte, capacity),
		spare: make([]byte, capacity),
	}, nil
}

func (w *Window) Capacity() int { return len(w.buf) }

func (w *Window) Offset() int64 { return w.offset }

// Size returns the store size seen at the last refresh.
func (w *Window) Size() int64 { return w.size }

func (w *Window) Stats() Stats { return w.stats }

// MaxOffset is the greatest offset a reposition can reach.
func (w *Window) MaxOffset() int64 {
	return maxOffset(w.size, len(w.buf))
}

// View returns the current content without I/O.
func (w *Window) View() View {
	valid := w.size - w.offset
	if valid < 0 {
		valid = 0
	}
	if valid > int64(len(w.buf)) {
		valid = int64(len(w.buf))
	}
	return View{Offset: w.offset, Size: w.size, Data: w.buf, Valid: int(valid)}
}

// Reposition moves the window to offset, clamped to [0, MaxOffset].
//
// With forceRefresh the store size is re-read and the whole window reloaded;
// callers must request this after any mutation of the store. Otherwise only
// the bytes not shared with the current range are read. On error the window
// is unchanged.
func (w *Window) Reposition(offset int64, forceRefresh bool) (View, error) {
	if forceRefresh || !w.loaded {
		return w.reload(offset)
	}
	offset = clamp(offset, maxOffset(w.size, len(w.buf)))
	if offset == w.offset {
		return w.View(), nil
	}

	capacity := int64(len(w.buf))
	next := w.spare
	if offset < w.offset {
		// Old head [w.offset, offset+capacity) becomes the new tail.
		overlap := offset + capacity - w.offset
		if overlap < 0 {
			overlap = 0
		}
		copy(next[capacity-overlap:], w.buf[:overlap])
		if err := w.fill(next[:capacity-overlap], offset); err != nil {
			return View{}, err
		}
	} else {
		// Old tail [offset, w.offset+capacity) becomes the new head.
		overlap := w.offset + capacity - offset
		if overlap < 0 {
			overlap = 0
		}
		copy(next[:overlap], w.buf[capacity-overlap:])
		if err := w.fill(next[overlap:], offset+overlap); err != nil {
			return View{}, err
		}
	}
	w.buf, w.spare = next, w.buf
	w.offset = offset
	return w.View(), nil
}

func (w *Window) reload(offset int64) (View, error) {
	size, err := w.st.Size()
	if err != nil {
		return View{}, err
	}
	offset = clamp(offset, maxOffset(size, len(w.buf)))
	prevSize := w.size
	w.size = size
	err = w.fill(w.spare, offset)
	if err != nil {
		w.size = prevSize
		return View{}, err
	}
	w.buf, w.spare = w.spare, w.buf
	w.offset = offset
	w.loaded = true
	return w.View(), nil
}

// fill reads dst from the store at off and zeroes whatever lies past the end.
func (w *Window) fill(dst []byte, off int64) error {
	want := w.size - off
	if want < 0 {
		want = 0
	}
	if want > int64(len(dst)) {
		want = int64(len(dst))
	}
	n := 0
	if want > 0 {
		var err error
		n, err = store.ReadFullAt(w.st, dst[:want], off)
		w.stats.Reads++
		w.stats.BytesRead += int64(n)
		if err != nil {
			return err
		}
	}
	clear(dst[n:])
	return nil
}

func maxOffset(size int64, capacity int) int64 {
	m := size - int64(capacity)
	if m < 0 {
		return 0
	}
	return m
}

func clamp(offset, hi int64) int64 {
	if offset < 0 {
		return 0
	}
	if offset > hi {
		return hi
	}
	return offset
}
