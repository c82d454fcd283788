package window

// Session drives a window from a caller loop that proposes a desired offset
// every tick. I/O happens only when the desired offset moves the window or a
// refresh was requested.
type Session struct {
	w       *Window
	desired int64
	refresh bool
	started bool
}

func NewSession(w *Window) *Session {
	return &Session{w: w}
}

func (s *Session) Window() *Window { return s.w }

// Request records the offset for the next Step.
func (s *Session) Request(offset int64) { s.desired = offset }

// Desired returns the last requested offset.
func (s *Session) Desired() int64 { return s.desired }

// Invalidate forces the next Step to reload from the store.
func (s *Session) Invalidate() { s.refresh = true }

// Step repositions the window to the requested offset. changed reports
// whether the view differs from the one returned by the previous Step.
// A failed step keeps the pending refresh so the next tick retries it.
func (s *Session) Step() (view View, changed bool, err error) {
	if s.started && !s.refresh && clamp(s.desired, s.w.MaxOffset()) == s.w.Offset() {
		return s.w.View(), false, nil
	}
	prev := s.w.Offset()
	force := s.refresh
	view, err = s.w.Reposition(s.desired, force)
	if err != nil {
		return s.w.View(), false, err
	}
	changed = !s.started || force || view.Offset != prev
	s.started = true
	s.refresh = false
	return view, changed, nil
}

// AlignDown rounds offset down to a multiple of row.
func AlignDown(offset int64, row int) int64 {
	if row <= 1 || offset <= 0 {
		if offset < 0 {
			return 0
		}
		return offset
	}
	return offset - offset%int64(row)
}

// RowMaxOffset is the greatest row-aligned display offset that still shows
// the last byte of a store of size bytes in a display of shown bytes.
func RowMaxOffset(size int64, shown, row int) int64 {
	if size <= int64(shown) {
		return 0
	}
	if row < 1 {
		row = 1
	}
	rounded := size
	if rem := size % int64(row); rem != 0 {
		rounded += int64(row) - rem
	}
	return rounded - int64(shown)
}
