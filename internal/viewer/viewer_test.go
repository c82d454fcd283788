package viewer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Hex.Columns = 4
	cfg.Hex.FastMultiplier = 2
	cfg.Engine.ScratchSize = 8
	cfg.Engine.SearchChunk = 16
	cfg.Text.MaxLineLength = 16
	cfg.Text.BufferLines = 8
	return cfg
}

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(s.Fini)
	s.SetSize(w, h)
	return s
}

func rowText(s tcell.SimulationScreen, y int) string {
	cells, w, _ := s.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) == 0 {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(c.Runes[0])
	}
	return strings.TrimRight(b.String(), " ")
}

func drain(t *testing.T, v Viewer) {
	t.Helper()
	for i := 0; v.Busy(); i++ {
		if i > 100000 {
			t.Fatalf("viewer still busy after %d ticks", i)
		}
		v.Tick()
	}
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func namedKey(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func press(t *testing.T, v Viewer, evs ...*tcell.EventKey) Command {
	t.Helper()
	cmd := None
	for _, ev := range evs {
		cmd = v.HandleKey(ev)
		drain(t, v)
	}
	return cmd
}

func typeText(t *testing.T, v Viewer, text string) {
	t.Helper()
	for _, r := range text {
		v.HandleKey(runeKey(r))
	}
	press(t, v, namedKey(tcell.KeyEnter))
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want string
	}{
		{runeKey('a'), "a"},
		{runeKey('G'), "G"},
		{runeKey(' '), "space"},
		{namedKey(tcell.KeyEnter), "enter"},
		{namedKey(tcell.KeyTab), "tab"},
		{namedKey(tcell.KeyBackspace2), "backspace"},
		{namedKey(tcell.KeyEscape), "esc"},
		{namedKey(tcell.KeyDelete), "del"},
		{namedKey(tcell.KeyPgDn), "pgdn"},
		{tcell.NewEventKey(tcell.KeyCtrlL, 0, tcell.ModCtrl), "ctrl+l"},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModAlt), "alt+up"},
		{tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModCtrl), "ctrl+home"},
		{tcell.NewEventKey(tcell.KeyPgDn, 0, tcell.ModCtrl), "ctrl+pgdn"},
	}
	for _, tt := range tests {
		if got := keyString(tt.ev); got != tt.want {
			t.Fatalf("keyString(%v) = %q, want %q", tt.ev.Name(), got, tt.want)
		}
	}
}

func TestModifiedKeysAreBound(t *testing.T) {
	data := make([]byte, 64)
	h, err := NewHex(store.NewMemory("mem", data), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)

	press(t, h, tcell.NewEventKey(tcell.KeyEnd, 0, tcell.ModCtrl))
	if h.cursor != 63 {
		t.Fatalf("after ctrl+end cursor = %d, want 63", h.cursor)
	}
	press(t, h, tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModCtrl))
	if h.cursor != 0 || h.top != 0 {
		t.Fatalf("after ctrl+home cursor=%d top=%d, want 0 0", h.cursor, h.top)
	}
	press(t, h, tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModAlt))
	if h.cursor == 0 {
		t.Fatalf("alt+down did not page")
	}

	cfg := config.Default()
	for _, km := range []map[string]string{cfg.Keymap.Hex, cfg.Keymap.Text} {
		for _, key := range []string{"ctrl+home", "ctrl+end", "alt+up", "alt+down"} {
			if km[key] == "" {
				t.Fatalf("default keymap leaves %s unbound", key)
			}
		}
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		base    int64
		want    int64
		wantErr bool
	}{
		{"16", 0, 16, false},
		{"0x10", 0, 16, false},
		{" 42 ", 7, 42, false},
		{"+4", 10, 14, false},
		{"-0x2", 10, 8, false},
		{"", 0, 0, true},
		{"zz", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in, tt.base)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseOffset(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("parseOffset(%q, %d) = %d, want %d", tt.in, tt.base, got, tt.want)
		}
	}
}

func TestPrintable(t *testing.T) {
	if got := string([]rune{printable('A'), printable(0), printable('\n'), printable(0x07), printable(0xff)}); got != "A  .." {
		t.Fatalf("printable = %q", got)
	}
}

func TestHexRender(t *testing.T) {
	st := store.NewMemory("mem", []byte("ABCDEFGHIJ"))
	h, err := NewHex(st, testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	s := newScreen(t, 40, 5)
	h.Render(s)

	if got, want := rowText(s, 0), "00000000  41 42 43 44  ABCD"; got != want {
		t.Fatalf("row 0 = %q, want %q", got, want)
	}
	if got, want := rowText(s, 2), "00000008  49 4A"+strings.Repeat(" ", 8)+"IJ"; got != want {
		t.Fatalf("row 2 = %q, want %q", got, want)
	}
	if got := rowText(s, 3); !strings.Contains(got, "mem [hex]") || !strings.Contains(got, "0x0 / 0xA") {
		t.Fatalf("status = %q", got)
	}
}

func TestHexNavigation(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	h, err := NewHex(store.NewMemory("mem", data), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)

	for i := 0; i < 5; i++ {
		press(t, h, namedKey(tcell.KeyDown))
	}
	if h.cursor != 20 || h.top != 12 {
		t.Fatalf("after 5 rows down cursor=%d top=%d, want 20 12", h.cursor, h.top)
	}
	if h.win.Offset() != 12 {
		t.Fatalf("window offset = %d, want 12", h.win.Offset())
	}

	press(t, h, namedKey(tcell.KeyEnd))
	if h.cursor != 63 || h.top != 52 {
		t.Fatalf("file end cursor=%d top=%d, want 63 52", h.cursor, h.top)
	}
	press(t, h, namedKey(tcell.KeyDown))
	if h.cursor != 63 {
		t.Fatalf("row down at end moved cursor to %d", h.cursor)
	}

	press(t, h, runeKey('['))
	if h.cursor != 39 || h.top != 28 {
		t.Fatalf("fast page up cursor=%d top=%d, want 39 28", h.cursor, h.top)
	}

	press(t, h, namedKey(tcell.KeyHome))
	if h.cursor != 0 || h.top != 0 {
		t.Fatalf("file start cursor=%d top=%d", h.cursor, h.top)
	}

	press(t, h, runeKey(':'))
	typeText(t, h, "0x30")
	if h.cursor != 48 {
		t.Fatalf("goto cursor = %d, want 48", h.cursor)
	}
	if pos := h.Position(); pos.Offset != 48 || pos.Mode != ModeHex || pos.Size != 64 {
		t.Fatalf("Position() = %+v", pos)
	}
}

func TestHexStartOffsetIsClamped(t *testing.T) {
	h, err := NewHex(store.NewMemory("mem", make([]byte, 30)), testConfig(), 1000, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	if h.cursor != 29 {
		t.Fatalf("cursor = %d, want 29", h.cursor)
	}
	if want := int64(20); h.top != want {
		t.Fatalf("top = %d, want %d", h.top, want)
	}
}

func TestHexEdits(t *testing.T) {
	st := store.NewMemory("mem", []byte("0123456789"))
	h, err := NewHex(st, testConfig(), 2, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)

	press(t, h, runeKey('i'))
	typeText(t, h, "ab")
	if got := string(st.Bytes()); got != "01ab23456789" {
		t.Fatalf("after insert = %q", got)
	}
	if h.message != "insert done" {
		t.Fatalf("message = %q", h.message)
	}

	press(t, h, runeKey('d'))
	if got := string(st.Bytes()); got != "01b23456789" {
		t.Fatalf("after delete = %q", got)
	}

	press(t, h, runeKey('v'), runeKey('l'), runeKey('l'), runeKey('d'))
	if got := string(st.Bytes()); got != "01456789" {
		t.Fatalf("after selection delete = %q", got)
	}

	press(t, h, runeKey('r'))
	typeText(t, h, "hex:41 42")
	if got := string(st.Bytes()); got != "0145AB89" {
		t.Fatalf("after replace = %q", got)
	}

	press(t, h, namedKey(tcell.KeyEnd), runeKey('a'))
	typeText(t, h, "!")
	if got := string(st.Bytes()); got != "0145AB89!" {
		t.Fatalf("after append = %q", got)
	}

	s := newScreen(t, 40, 5)
	h.Render(s)
	if got := rowText(s, 1); !strings.HasSuffix(got, "AB89") {
		t.Fatalf("row 1 after edits = %q", got)
	}
}

func TestHexReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.bin")
	if err := os.WriteFile(path, []byte("abcdef"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(path, store.ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	h, err := NewHex(st, testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	press(t, h, runeKey('d'))
	if !h.isErr || !strings.Contains(h.message, "read-only") {
		t.Fatalf("message = %q, want read-only error", h.message)
	}
	if h.prompt != nil || h.job != nil {
		t.Fatalf("read-only edit started work")
	}
}

func TestHexFind(t *testing.T) {
	data := bytes.Repeat([]byte{'.'}, 100)
	copy(data[40:], "needle")
	h, err := NewHex(store.NewMemory("mem", data), testConfig(), 50, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)

	press(t, h, runeKey('/'))
	typeText(t, h, "needle")
	if h.cursor != 40 {
		t.Fatalf("cursor after wrapped find = %d, want 40", h.cursor)
	}
	if h.message != "found at 0x28" {
		t.Fatalf("message = %q", h.message)
	}

	press(t, h, runeKey('n'))
	if h.cursor != 40 {
		t.Fatalf("find next with a single match moved to %d", h.cursor)
	}

	press(t, h, runeKey('/'))
	typeText(t, h, "hay")
	if h.message != "pattern not found" || h.cursor != 40 {
		t.Fatalf("missing pattern: message %q cursor %d", h.message, h.cursor)
	}
}

func TestJobCancel(t *testing.T) {
	h, err := NewHex(store.NewMemory("mem", make([]byte, 4096)), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)

	press(t, h, runeKey('/'))
	for _, r := range "zzz" {
		h.HandleKey(runeKey(r))
	}
	h.HandleKey(namedKey(tcell.KeyEnter))
	h.Tick()
	if !h.Busy() {
		t.Fatalf("search finished in one tick")
	}

	s := newScreen(t, 40, 5)
	h.Render(s)
	if got := rowText(s, 4); !strings.HasPrefix(got, "search ") {
		t.Fatalf("command line during search = %q", got)
	}

	h.HandleKey(runeKey('j'))
	if h.cursor != 0 {
		t.Fatalf("movement while busy moved the cursor to %d", h.cursor)
	}
	h.HandleKey(namedKey(tcell.KeyEscape))
	drain(t, h)
	if h.message != "search cancelled" {
		t.Fatalf("message = %q", h.message)
	}
}

func TestQuitWhileBusy(t *testing.T) {
	h, err := NewHex(store.NewMemory("mem", make([]byte, 4096)), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	h.lastPattern = []byte("zzz")
	h.find(0)
	h.Tick()
	if cmd := h.HandleKey(runeKey('q')); cmd != Quit {
		t.Fatalf("q while busy = %v, want Quit", cmd)
	}
	if h.Busy() {
		t.Fatalf("job still running after quit")
	}
}

func TestHexCommands(t *testing.T) {
	h, err := NewHex(store.NewMemory("mem", []byte("x")), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	if cmd := h.HandleKey(namedKey(tcell.KeyTab)); cmd != Switch {
		t.Fatalf("tab = %v, want Switch", cmd)
	}
	if cmd := h.HandleKey(runeKey('q')); cmd != Quit {
		t.Fatalf("q = %v, want Quit", cmd)
	}
}

func TestHexResizeRebuildsWindow(t *testing.T) {
	h, err := NewHex(store.NewMemory("mem", make([]byte, 100)), testConfig(), 0, 40, 5)
	if err != nil {
		t.Fatalf("NewHex: %v", err)
	}
	drain(t, h)
	h.Resize(40, 10)
	drain(t, h)
	if got := h.win.Capacity(); got != 32 {
		t.Fatalf("capacity after resize = %d, want 32", got)
	}
}

func TestTextRender(t *testing.T) {
	st := store.NewMemory("notes.txt", []byte("alpha\nbeta\r\n\tgamma\n"))
	v, err := NewText(st, testConfig(), 0, false, 20, 5)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	s := newScreen(t, 20, 5)
	v.Render(s)
	for i, want := range []string{"alpha", "beta", " gamma"} {
		if got := rowText(s, i); got != want {
			t.Fatalf("row %d = %q, want %q", i, got, want)
		}
	}
}

func TestTextStopsAtNUL(t *testing.T) {
	data := []byte("line1\nline2\x00hidden\n")

	v, err := NewText(store.NewMemory("m", data), testConfig(), 0, false, 40, 5)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	s := newScreen(t, 40, 5)
	v.Render(s)
	if got := rowText(s, 1); got != "line2" {
		t.Fatalf("row 1 = %q, want line2", got)
	}
	if got := rowText(s, 2); got != "" {
		t.Fatalf("row 2 = %q, want empty", got)
	}
	if got := rowText(s, 3); !strings.Contains(got, "NUL at 0xB") {
		t.Fatalf("status = %q", got)
	}

	cfg := testConfig()
	cfg.Text.StopAtNUL = false
	v, err = NewText(store.NewMemory("m", data), cfg, 0, false, 40, 5)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	v.Render(s)
	if got := rowText(s, 1); got != "line2.hidden" {
		t.Fatalf("row 1 without NUL stop = %q", got)
	}
}

func numberedLines(n int) []byte {
	var b bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "line %03d\n", i)
	}
	return b.Bytes()
}

func TestTextScrollsAcrossWindow(t *testing.T) {
	st := store.NewMemory("m", numberedLines(200))
	v, err := NewText(st, testConfig(), 0, false, 20, 6)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	s := newScreen(t, 20, 6)

	for i := 0; i < 100; i++ {
		press(t, v, namedKey(tcell.KeyDown))
	}
	v.Render(s)
	if got := rowText(s, 0); got != "line 100" {
		t.Fatalf("top after 100 lines down = %q", got)
	}
	if v.win.Offset() == 0 {
		t.Fatalf("window never moved")
	}

	press(t, v, namedKey(tcell.KeyPgUp))
	v.Render(s)
	if got := rowText(s, 0); got != "line 096" {
		t.Fatalf("top after page up = %q", got)
	}

	press(t, v, namedKey(tcell.KeyEnd))
	v.Render(s)
	for i, want := range []string{"line 196", "line 197", "line 198", "line 199"} {
		if got := rowText(s, i); got != want {
			t.Fatalf("file end row %d = %q, want %q", i, got, want)
		}
	}
	press(t, v, namedKey(tcell.KeyDown))
	v.Render(s)
	if got := rowText(s, 0); got != "line 196" {
		t.Fatalf("line down at end = %q", got)
	}

	press(t, v, namedKey(tcell.KeyHome))
	v.Render(s)
	if got := rowText(s, 0); got != "line 000" {
		t.Fatalf("file start = %q", got)
	}
	for i := 0; i < 3; i++ {
		press(t, v, namedKey(tcell.KeyUp))
	}
	v.Render(s)
	if got := rowText(s, 0); got != "line 000" {
		t.Fatalf("line up at start = %q", got)
	}
}

func TestTextScrollsUpAcrossWindowHead(t *testing.T) {
	st := store.NewMemory("m", numberedLines(200))
	start := int64(150 * 9)
	v, err := NewText(st, testConfig(), start, false, 20, 6)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	s := newScreen(t, 20, 6)
	v.Render(s)
	if got := rowText(s, 0); got != "line 150" {
		t.Fatalf("restored top = %q", got)
	}
	for i := 0; i < 50; i++ {
		press(t, v, namedKey(tcell.KeyUp))
	}
	v.Render(s)
	if got := rowText(s, 0); got != "line 100" {
		t.Fatalf("top after 50 lines up = %q", got)
	}
}

func TestTextWrap(t *testing.T) {
	st := store.NewMemory("m", []byte("aaaa bbbb cccc\nz\n"))
	v, err := NewText(st, testConfig(), 0, true, 8, 6)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)
	s := newScreen(t, 8, 6)
	v.Render(s)
	for i, want := range []string{"aaaa", "bbbb", "cccc", "z"} {
		if got := rowText(s, i); got != want {
			t.Fatalf("wrapped row %d = %q, want %q", i, got, want)
		}
	}

	press(t, v, runeKey('w'))
	v.Render(s)
	if got := rowText(s, 0); got != "aaaa bbb" {
		t.Fatalf("unwrapped row 0 = %q", got)
	}
	if got := rowText(s, 1); got != "z" {
		t.Fatalf("unwrapped row 1 = %q", got)
	}
	press(t, v, namedKey(tcell.KeyRight))
	v.Render(s)
	if got := rowText(s, 0); got != " bbbb cc" {
		t.Fatalf("scrolled row 0 = %q", got)
	}
	if v.Position().Wrap {
		t.Fatalf("Position().Wrap after toggle = true")
	}
}

func TestTextFind(t *testing.T) {
	st := store.NewMemory("m", numberedLines(200))
	v, err := NewText(st, testConfig(), 0, false, 20, 6)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	drain(t, v)

	press(t, v, runeKey('/'))
	typeText(t, v, "line 123")
	s := newScreen(t, 20, 6)
	v.Render(s)
	if got := rowText(s, 0); got != "line 123" {
		t.Fatalf("top after find = %q", got)
	}
	if v.Position().Offset != 123*9 {
		t.Fatalf("offset = %d, want %d", v.Position().Offset, 123*9)
	}

	press(t, v, runeKey('/'))
	typeText(t, v, "hex:39 0A")
	press(t, v, runeKey('n'))
	v.Render(s)
	if got := rowText(s, 0); got != "line 139" {
		t.Fatalf("top after find next = %q", got)
	}
}
