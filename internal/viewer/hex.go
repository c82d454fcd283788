package viewer

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/resize"
	"github.com/kobzarvs/qview/internal/search"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/store"
	"github.com/kobzarvs/qview/internal/window"
)

const offsetWidth = 10 // "%08X" and two spaces

// Hex shows a store as rows of hex bytes with an ASCII column. The window
// holds exactly one screen of rows.
type Hex struct {
	core
	win  *window.Window
	sess *window.Session
	view window.View
	cols int

	top     int64 // row-aligned offset of the first displayed byte
	cursor  int64
	pending bool

	selecting bool
	anchor    int64

	match    int64
	matchLen int
}

// NewHex opens a hex view with the cursor at start.
func NewHex(st store.Store, cfg config.Config, start int64, width, height int) (*Hex, error) {
	h := &Hex{
		core:   newCore(st, cfg, cfg.Keymap.Hex, width, height),
		cols:   cfg.Hex.Columns,
		cursor: start,
		match:  -1,
	}
	if err := h.open(); err != nil {
		return nil, err
	}
	h.top = window.AlignDown(start, h.cols)
	h.sess.Request(h.top)
	return h, nil
}

func (h *Hex) open() error {
	capacity := h.viewRows() * h.cols
	w, err := window.New(h.st, capacity)
	if err != nil {
		return err
	}
	h.win = w
	h.sess = window.NewSession(w)
	h.pending = true
	return nil
}

func (h *Hex) shown() int { return h.win.Capacity() }

func (h *Hex) size() int64 { return h.view.Size }

func (h *Hex) Busy() bool { return h.job != nil || h.pending }

func (h *Hex) Tick() {
	if h.tickJob() {
		return
	}
	if !h.pending {
		return
	}
	h.pending = false
	view, _, err := h.sess.Step()
	if err != nil {
		logger.Error("hex reposition failed", "path", h.st.Path(), "offset", h.sess.Desired(), "err", err)
		h.setError(err)
		return
	}
	h.view = view
	h.settle()
}

// settle clamps the cursor to the store and scrolls it into view. It marks
// the view pending when the display moved.
func (h *Hex) settle() {
	size := h.size()
	if h.cursor >= size {
		h.cursor = size - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
	shown := int64(h.shown())
	top := h.top
	row := window.AlignDown(h.cursor, h.cols)
	switch {
	case h.cursor < top:
		top = row
	case h.cursor >= top+shown:
		top = row - shown + int64(h.cols)
	}
	if hi := window.RowMaxOffset(size, h.shown(), h.cols); top > hi {
		top = hi
	}
	if top < 0 {
		top = 0
	}
	if top != h.top || top != h.sess.Desired() {
		h.top = top
		h.sess.Request(top)
		h.pending = true
	}
}

// moveTo places the cursor at pos and keeps the display offset when pos
// is still on screen.
func (h *Hex) moveTo(pos int64) {
	h.cursor = pos
	h.settle()
}

// scroll moves display and cursor together by delta bytes.
func (h *Hex) scroll(delta int64) {
	h.top += delta
	if h.top < 0 {
		h.top = 0
	}
	h.cursor += delta
	h.settle()
}

func (h *Hex) HandleKey(ev *tcell.EventKey) Command {
	if h.handleCommon(ev) {
		return None
	}
	cols := int64(h.cols)
	page := int64(h.shown())
	switch h.keymap[keyString(ev)] {
	case "row_up":
		h.moveTo(h.cursor - cols)
	case "row_down":
		if h.cursor+cols < h.size() {
			h.moveTo(h.cursor + cols)
		}
	case "byte_left":
		h.moveTo(h.cursor - 1)
	case "byte_right":
		h.moveTo(h.cursor + 1)
	case "page_up":
		h.scroll(-page)
	case "page_down":
		h.scroll(page)
	case "fast_page_up":
		h.scroll(-page * int64(h.cfg.Hex.FastMultiplier))
	case "fast_page_down":
		h.scroll(page * int64(h.cfg.Hex.FastMultiplier))
	case "file_start":
		h.top = 0
		h.moveTo(0)
	case "file_end":
		h.top = window.RowMaxOffset(h.size(), h.shown(), h.cols)
		h.moveTo(h.size() - 1)
	case "toggle_select":
		h.selecting = !h.selecting
		h.anchor = h.cursor
	case "clear_select":
		h.selecting = false
		h.match = -1
	case "replace":
		h.editPrompt("replace", "replace: ")
	case "insert":
		h.editPrompt("insert", "insert: ")
	case "append":
		h.editPrompt("append", "append: ")
	case "delete":
		h.edit("delete", nil)
	case "find":
		h.ask("/", func(text string) {
			pattern, err := search.ParsePattern(text)
			if err != nil {
				h.setError(err)
				return
			}
			h.lastPattern = pattern
			h.find(h.cursor)
		})
	case "find_next":
		if h.lastPattern == nil {
			h.setMessage("no previous search")
			break
		}
		h.find(h.cursor + 1)
	case "goto":
		h.ask(":", func(text string) {
			off, err := parseOffset(text, h.cursor)
			if err != nil {
				h.setError(err)
				return
			}
			h.moveTo(off)
		})
	case "refresh":
		h.sess.Invalidate()
		h.pending = true
	case "switch_view":
		return Switch
	case "quit":
		return Quit
	}
	return None
}

// selection returns the marked range, or the byte under the cursor.
func (h *Hex) selection() (int64, int64) {
	if !h.selecting {
		return h.cursor, 1
	}
	lo, hi := h.anchor, h.cursor
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi >= h.size() {
		hi = h.size() - 1
	}
	return lo, hi - lo + 1
}

func (h *Hex) editPrompt(what, label string) {
	if !h.writable() {
		h.setError(store.ErrReadOnly)
		return
	}
	h.ask(label, func(text string) {
		data, err := search.ParsePattern(text)
		if err != nil {
			h.setError(err)
			return
		}
		h.edit(what, data)
	})
}

// edit starts the region resize for one of the editing actions.
func (h *Hex) edit(what string, data []byte) {
	if !h.writable() {
		h.setError(store.ErrReadOnly)
		return
	}
	size := h.size()
	var start, oldLen int64
	switch what {
	case "replace":
		if h.selecting {
			start, oldLen = h.selection()
		} else {
			start, oldLen = h.cursor, min(int64(len(data)), size-h.cursor)
		}
	case "insert":
		start = h.cursor
	case "append":
		start = min(h.cursor+1, size)
	case "delete":
		if size == 0 {
			return
		}
		start, oldLen = h.selection()
	}
	if start < 0 {
		start = 0
	}
	j, err := resize.NewReplace(h.st, start, oldLen, data, h.cfg.Engine.ScratchSize)
	if err != nil {
		h.setError(err)
		return
	}
	region := j.Region()
	h.start(what, j, func(err error) {
		h.selecting = false
		h.match = -1
		h.sess.Invalidate()
		h.pending = true
		if err == nil {
			logger.Info("edit", "op", what, "path", h.st.Path(), "region", region.String())
		}
		h.finished(what, err)
	})
}

func (h *Hex) find(start int64) {
	pattern := h.lastPattern
	sc, err := search.NewScanner(h.st, pattern, start, search.Options{Wrap: true, ChunkSize: h.cfg.Engine.SearchChunk})
	if err != nil {
		h.setError(err)
		return
	}
	h.start("search", sc, func(err error) {
		if err != nil {
			h.finished("search", err)
			return
		}
		off, ok := sc.Result()
		if !ok {
			h.match = -1
			h.setMessage("pattern not found")
			return
		}
		h.match, h.matchLen = off, len(pattern)
		h.moveTo(off)
		h.setMessage("found at 0x%X", off)
	})
}

func (h *Hex) Resize(width, height int) {
	h.width, h.height = width, height
	if h.viewRows()*h.cols == h.win.Capacity() {
		return
	}
	if err := h.open(); err != nil {
		h.setError(err)
		return
	}
	h.sess.Request(h.top)
}

func (h *Hex) Position() session.Position {
	return session.Position{Offset: h.cursor, Mode: ModeHex, Size: h.size()}
}

func (h *Hex) byteStyle(pos int64, base tcell.Style) tcell.Style {
	switch {
	case pos == h.cursor:
		return base.Reverse(true)
	case h.match >= 0 && pos >= h.match && pos < h.match+int64(h.matchLen):
		return h.styles.match
	case h.selecting:
		lo, n := h.selection()
		if pos >= lo && pos < lo+n {
			return h.styles.selection
		}
	}
	return base
}

func (h *Hex) Render(s tcell.Screen) {
	asciiX := offsetWidth + h.cols*3 + (h.cols-1)/8 + 1
	size := h.size()
	rows := h.viewRows()
	for row := 0; row < rows; row++ {
		clearLine(s, row, h.width, h.styles.main)
		off := h.top + int64(row*h.cols)
		if off >= size {
			continue
		}
		drawString(s, 0, row, h.width, fmt.Sprintf("%08X", off), h.styles.offset)
		for i := 0; i < h.cols; i++ {
			pos := off + int64(i)
			b, ok := h.view.At(pos)
			if !ok {
				break
			}
			x := offsetWidth + i*3 + i/8
			drawString(s, x, row, h.width, fmt.Sprintf("%02X", b), h.byteStyle(pos, h.styles.main))
			drawString(s, asciiX+i, row, h.width, string(printable(b)), h.byteStyle(pos, h.styles.ascii))
		}
	}

	left := fmt.Sprintf(" %s [hex]", h.st.Path())
	if !h.writable() {
		left += " [ro]"
	}
	if h.selecting {
		lo, n := h.selection()
		left += fmt.Sprintf(" sel 0x%X+%d", lo, n)
	}
	right := fmt.Sprintf("0x%X / 0x%X  %d%% ", h.cursor, size, percent(h.cursor+1, size))
	h.renderBottom(s, left, right)
	s.Show()
}
