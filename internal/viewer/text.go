package viewer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/linemap"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/search"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/store"
	"github.com/kobzarvs/qview/internal/window"
)

const hscrollStep = 4

// Text shows a store as lines. The window holds many screens of lines and
// is recentred on the top line when scrolling comes close to either edge.
//
// offset, the store offset of the top line, is the only scroll state; the
// top line index is derived from it against the current line map.
type Text struct {
	core
	win  *window.Window
	sess *window.Session
	view window.View

	buf    []byte
	lm     linemap.LineMap
	stale  bool
	loaded bool

	nul       int64 // first NUL byte, -1 when absent or not scanned
	offset    int64
	toEnd     bool
	wrap      bool
	hscroll   int
	pending   bool
	match     int64
	matchLen  int
	lastMatch int64
}

// NewText opens a text view with its top line at or before start.
func NewText(st store.Store, cfg config.Config, start int64, wrap bool, width, height int) (*Text, error) {
	capacity := cfg.Text.BufferLines * cfg.Text.MaxLineLength
	if capacity > window.MaxCapacity {
		capacity = window.MaxCapacity
	}
	w, err := window.New(st, capacity)
	if err != nil {
		return nil, err
	}
	t := &Text{
		core:      newCore(st, cfg, cfg.Keymap.Text, width, height),
		win:       w,
		sess:      window.NewSession(w),
		nul:       -1,
		offset:    max(start, 0),
		wrap:      wrap,
		pending:   true,
		match:     -1,
		lastMatch: -1,
	}
	t.sess.Request(t.centred(t.offset))
	if cfg.Text.StopAtNUL {
		t.scanNUL()
	}
	return t, nil
}

func (t *Text) centred(off int64) int64 {
	return max(off-int64(t.win.Capacity()/2), 0)
}

// limit is the end of the displayed text.
func (t *Text) limit() int64 {
	if t.nul >= 0 && t.nul < t.view.Size {
		return t.nul
	}
	return t.view.Size
}

func (t *Text) wrapLen() int {
	if t.wrap {
		return max(t.width, 1)
	}
	return t.cfg.Text.MaxLineLength
}

func (t *Text) scanNUL() {
	sc, err := search.NewScanner(t.st, []byte{0}, 0, search.Options{ChunkSize: t.cfg.Engine.SearchChunk})
	if err != nil {
		t.setError(err)
		return
	}
	t.start("scanning", sc, func(err error) {
		t.nul = -1
		if off, ok := sc.Result(); ok && err == nil {
			t.nul = off
			logger.Debug("text stops at NUL", "path", t.st.Path(), "offset", off)
		}
		if err != nil {
			t.finished("scan", err)
		}
		t.stale = true
		t.pending = true
	})
}

func (t *Text) Busy() bool { return t.job != nil || t.pending }

// Tick repositions the window when needed, otherwise advances the job.
func (t *Text) Tick() {
	if t.pending {
		t.stepWindow()
		return
	}
	t.tickJob()
}

func (t *Text) stepWindow() {
	t.pending = false
	view, changed, err := t.sess.Step()
	if err != nil {
		logger.Error("text reposition failed", "path", t.st.Path(), "offset", t.sess.Desired(), "err", err)
		t.setError(err)
		return
	}
	t.view = view
	t.loaded = true
	if changed || t.stale {
		t.remap()
	}
	t.settle()
}

func (t *Text) remap() {
	n := t.limit() - t.view.Offset
	if n < 0 {
		n = 0
	}
	if n > int64(t.view.Valid) {
		n = int64(t.view.Valid)
	}
	t.buf = t.view.Data[:n]
	t.lm = linemap.Map(t.buf, t.wrapLen())
	t.stale = false
}

func (t *Text) bufEnd() int64 { return t.view.Offset + int64(len(t.buf)) }

// atEnd reports whether the buffer reaches the end of the text.
func (t *Text) atEnd() bool { return t.bufEnd() >= t.limit() }

func (t *Text) topLine() int {
	return linemap.LineForOffset(t.lm, int(t.offset-t.view.Offset))
}

// settle snaps offset to a line start of the current map and recentres the
// window when offset left it or came within a few screens of its edges.
func (t *Text) settle() {
	if !t.loaded {
		return
	}
	t.offset = min(max(t.offset, 0), t.limit())
	if t.offset < t.view.Offset || t.offset > t.bufEnd() {
		t.request(t.centred(t.offset))
		return
	}
	if t.toEnd && t.atEnd() {
		t.toEnd = false
		if len(t.lm) > 0 {
			t.offset = t.view.Offset + int64(t.lm[t.lm.TopMax(t.viewRows())].Start)
		}
	}
	if len(t.lm) > 0 {
		t.offset = t.view.Offset + int64(t.lm[t.topLine()].Start)
	}

	safe := int64(min(t.viewRows()*t.cfg.Text.MaxLineLength, t.win.Capacity()/4))
	nearHead := t.offset-t.view.Offset < safe && t.view.Offset > 0
	nearTail := t.bufEnd()-t.offset < safe && !t.atEnd()
	if nearHead || nearTail {
		t.request(t.centred(t.offset))
	}
}

func (t *Text) request(off int64) {
	hi := t.win.MaxOffset()
	if off > hi {
		off = hi
	}
	if off != t.view.Offset {
		t.sess.Request(off)
		t.pending = true
	}
}

// moveLines scrolls by n display lines within the current map.
func (t *Text) moveLines(n int) {
	if len(t.lm) == 0 {
		return
	}
	top := t.topLine()
	next := top + n
	if next < 0 {
		if t.view.Offset > 0 {
			// Step into the bytes before the window; settle brings them in.
			t.offset = t.view.Offset - 1
			t.settle()
			return
		}
		next = 0
	}
	maxTop := len(t.lm) - 1
	if t.atEnd() {
		maxTop = t.lm.TopMax(t.viewRows())
	}
	if next > maxTop {
		next = maxTop
	}
	if n > 0 && next < top {
		next = top
	}
	t.offset = t.view.Offset + int64(t.lm[next].Start)
	t.settle()
}

func (t *Text) HandleKey(ev *tcell.EventKey) Command {
	if t.handleCommon(ev) {
		return None
	}
	rows := t.viewRows()
	switch t.keymap[keyString(ev)] {
	case "line_up":
		t.moveLines(-1)
	case "line_down":
		t.moveLines(1)
	case "page_up":
		t.moveLines(-rows)
	case "page_down":
		t.moveLines(rows)
	case "scroll_left":
		t.hscroll = max(t.hscroll-hscrollStep, 0)
	case "scroll_right":
		if !t.wrap {
			t.hscroll += hscrollStep
		}
	case "file_start":
		t.toEnd = false
		t.offset = 0
		t.settle()
	case "file_end":
		t.toEnd = true
		t.offset = t.limit()
		t.settle()
	case "toggle_wrap":
		t.wrap = !t.wrap
		t.hscroll = 0
		t.remap()
		t.settle()
	case "find":
		t.ask("/", func(text string) {
			pattern, err := search.ParsePattern(text)
			if err != nil {
				t.setError(err)
				return
			}
			t.lastPattern = pattern
			t.find(t.offset)
		})
	case "find_next":
		if t.lastPattern == nil {
			t.setMessage("no previous search")
			break
		}
		from := t.offset
		if t.lastMatch >= 0 {
			from = t.lastMatch + 1
		}
		t.find(from)
	case "refresh":
		t.sess.Invalidate()
		t.pending = true
		if t.cfg.Text.StopAtNUL {
			t.scanNUL()
		}
	case "switch_view":
		return Switch
	case "quit":
		return Quit
	}
	return None
}

func (t *Text) find(from int64) {
	pattern := t.lastPattern
	sc, err := search.NewScanner(t.st, pattern, from, search.Options{Wrap: true, ChunkSize: t.cfg.Engine.SearchChunk})
	if err != nil {
		t.setError(err)
		return
	}
	t.start("search", sc, func(err error) {
		if err != nil {
			t.finished("search", err)
			return
		}
		off, ok := sc.Result()
		if !ok {
			t.match = -1
			t.setMessage("pattern not found")
			return
		}
		t.lastMatch = off
		if off >= t.limit() {
			t.match = -1
			t.setMessage("match at 0x%X is past the end of text", off)
			return
		}
		t.match, t.matchLen = off, len(pattern)
		t.toEnd = false
		t.offset = off
		t.settle()
		t.setMessage("found at 0x%X", off)
	})
}

func (t *Text) Resize(width, height int) {
	widthChanged := width != t.width
	t.width, t.height = width, height
	if t.wrap && widthChanged {
		t.remap()
	}
	t.settle()
}

func (t *Text) Position() session.Position {
	return session.Position{Offset: t.offset, Mode: ModeText, Wrap: t.wrap, Size: t.view.Size}
}

// displayRune maps the rune at the start of b to what is drawn.
func displayRune(b []byte) (rune, int) {
	r, n := utf8.DecodeRune(b)
	switch {
	case r == utf8.RuneError && n <= 1:
		return '.', 1
	case r == '\t':
		return ' ', n
	case unicode.IsControl(r):
		return '.', n
	}
	return r, n
}

func (t *Text) Render(s tcell.Screen) {
	rows := t.viewRows()
	top := 0
	if len(t.lm) > 0 {
		top = t.topLine()
	}
	for row := 0; row < rows; row++ {
		clearLine(s, row, t.width, t.styles.main)
		li := top + row
		if li >= len(t.lm) {
			continue
		}
		line := t.lm.Text(t.buf, li)
		base := t.view.Offset + int64(t.lm[li].Start)
		col, x := 0, 0
		for i := 0; i < len(line) && x < t.width; {
			r, n := displayRune(line[i:])
			w := runewidth.RuneWidth(r)
			if col >= t.hscroll || t.wrap {
				if x+w > t.width {
					break
				}
				style := t.styles.main
				pos := base + int64(i)
				if t.match >= 0 && pos >= t.match && pos < t.match+int64(t.matchLen) {
					style = t.styles.match
				}
				s.SetContent(x, row, r, nil, style)
				x += w
			}
			col += w
			i += n
		}
	}

	left := fmt.Sprintf(" %s [text]", t.st.Path())
	if t.wrap {
		left += " [wrap]"
	}
	if t.nul >= 0 {
		left += fmt.Sprintf(" [NUL at 0x%X]", t.nul)
	}
	right := fmt.Sprintf("0x%X / 0x%X  %d%% ", t.offset, t.limit(), percent(t.offset, t.limit()))
	t.renderBottom(s, left, right)
	s.Show()
}
