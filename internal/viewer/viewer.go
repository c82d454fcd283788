// Package viewer drives the engine from a terminal screen.
//
// A viewer never blocks on long work: searches and region edits are started
// as jobs and advanced one chunk per Tick. The caller redraws and polls input
// between ticks, and keeps ticking while Busy reports true.
package viewer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/store"
)

// Command is what a key asks of the caller.
type Command int

const (
	None Command = iota
	Quit
	Switch // toggle between the hex and text viewer at the current offset
)

const (
	ModeHex  = "hex"
	ModeText = "text"
)

type Viewer interface {
	HandleKey(ev *tcell.EventKey) Command
	// Tick performs at most one chunk of I/O.
	Tick()
	Busy() bool
	Render(s tcell.Screen)
	Resize(width, height int)
	Position() session.Position
}

type job struct {
	label     string
	step      progress.Stepper
	cancelled bool
	finish    func(err error)
}

type prompt struct {
	label  string
	input  []rune
	submit func(text string)
}

// core holds what both viewers share: the store, key handling for jobs and
// prompts, and the two bottom lines of the screen.
type core struct {
	st     store.Store
	cfg    config.Config
	styles styles
	keymap map[string]string
	width  int
	height int

	job     *job
	prompt  *prompt
	message string
	isErr   bool

	lastPattern []byte
}

func newCore(st store.Store, cfg config.Config, keymap map[string]string, width, height int) core {
	km := make(map[string]string, len(keymap))
	for k, v := range keymap {
		km[k] = v
	}
	return core{
		st:     st,
		cfg:    cfg,
		styles: newStyles(cfg.Theme),
		keymap: km,
		width:  width,
		height: height,
	}
}

// viewRows is the number of screen rows above the status and command lines.
func (c *core) viewRows() int {
	if c.height < 3 {
		return 1
	}
	return c.height - 2
}

func (c *core) Busy() bool { return c.job != nil }

func (c *core) start(label string, s progress.Stepper, finish func(err error)) {
	logger.Debug("job started", "job", label, "path", c.st.Path())
	c.job = &job{label: label, step: s, finish: finish}
	c.message = ""
}

// tickJob advances the running job by one step.
func (c *core) tickJob() bool {
	j := c.job
	if j == nil {
		return false
	}
	var err error
	finished := j.cancelled
	if j.cancelled {
		err = store.ErrCancelled
	} else {
		finished, err = j.step.Step()
	}
	if err == nil && !finished {
		return true
	}
	c.job = nil
	done, total := j.step.Progress()
	switch {
	case store.IsCancelled(err):
		logger.Info("job cancelled", "job", j.label, "done", done, "total", total)
	case err != nil:
		logger.Error("job failed", "job", j.label, "err", err)
	default:
		logger.Debug("job finished", "job", j.label, "done", done)
	}
	j.finish(err)
	return true
}

// handleCommon consumes keys aimed at a running job or an open prompt.
func (c *core) handleCommon(ev *tcell.EventKey) bool {
	if c.job != nil {
		switch key := keyString(ev); {
		case key == "esc":
			c.job.cancelled = true
		case c.keymap[key] == "quit":
			logger.Warn("quit with a running job", "job", c.job.label)
			c.job = nil
			return false
		}
		return true
	}
	if c.prompt == nil {
		c.message = ""
		return false
	}
	p := c.prompt
	switch ev.Key() {
	case tcell.KeyEscape:
		c.prompt = nil
	case tcell.KeyEnter:
		c.prompt = nil
		p.submit(string(p.input))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.input) > 0 {
			p.input = p.input[:len(p.input)-1]
		}
	case tcell.KeyRune:
		p.input = append(p.input, ev.Rune())
	}
	return true
}

func (c *core) ask(label string, submit func(text string)) {
	c.prompt = &prompt{label: label, submit: submit}
}

func (c *core) setMessage(format string, args ...any) {
	c.message = fmt.Sprintf(format, args...)
	c.isErr = false
}

func (c *core) setError(err error) {
	c.message = err.Error()
	c.isErr = true
}

// finished reports the outcome of a job in the command line.
func (c *core) finished(what string, err error) {
	switch {
	case store.IsCancelled(err):
		c.setMessage("%s cancelled", what)
	case err != nil:
		c.setError(fmt.Errorf("%s: %w", what, err))
	default:
		c.setMessage("%s done", what)
	}
}

func (c *core) writable() bool {
	if w, ok := c.st.(interface{ Writable() bool }); ok {
		return w.Writable()
	}
	return true
}

func (c *core) renderBottom(s tcell.Screen, left, right string) {
	if c.height < 2 {
		return
	}
	drawStatusLine(s, c.height-2, c.width, left, right, c.styles.status)

	y := c.height - 1
	clearLine(s, y, c.width, c.styles.command)
	switch {
	case c.prompt != nil:
		x := drawString(s, 0, y, c.width, c.prompt.label+string(c.prompt.input), c.styles.command)
		s.ShowCursor(x, y)
		return
	case c.job != nil:
		done, total := c.job.step.Progress()
		text := fmt.Sprintf("%s %d%% (esc to cancel)", c.job.label, percent(done, total))
		drawString(s, 0, y, c.width, text, c.styles.command)
	case c.message != "":
		style := c.styles.command
		if c.isErr {
			style = c.styles.err
		}
		drawString(s, 0, y, c.width, c.message, style)
	}
	s.HideCursor()
}

var errEmptyInput = errors.New("empty input")

// parseOffset accepts decimal, 0x-prefixed hex, and a leading + or - for
// a position relative to base.
func parseOffset(text string, base int64) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, errEmptyInput
	}
	sign := 0
	switch text[0] {
	case '+':
		sign = 1
		text = text[1:]
	case '-':
		sign = -1
		text = text[1:]
	}
	n, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("offset %q: %w", text, err)
	}
	if sign != 0 {
		return base + int64(sign)*n, nil
	}
	return n, nil
}
