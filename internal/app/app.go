package app

import (
	"errors"
	"io/fs"
	"path/filepath"
	"runtime"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/multierr"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/session"
	"github.com/kobzarvs/qview/internal/store"
	"github.com/kobzarvs/qview/internal/viewer"
)

// Options select what the viewer opens.
type Options struct {
	Path string
	// Mode is viewer.ModeHex or viewer.ModeText. Empty uses the saved mode.
	Mode string
	// Offset is the start offset; negative restores the saved position.
	Offset   int64
	ReadOnly bool
}

// App is the top-level runtime for qview.
type App struct {
	cfg  config.Config
	opts Options

	st       store.Store
	absPath  string
	sessions *session.Manager
	v        viewer.Viewer
	wrap     bool
}

func New(cfg config.Config, opts Options) *App {
	return &App{cfg: cfg, opts: opts, wrap: cfg.Text.WordWrap}
}

func (a *App) Run() error {
	runtime.LockOSThread()
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	return a.RunOnScreen(s)
}

// RunOnScreen runs the event loop on an initialized screen until the viewer
// asks to quit or the screen is finalized.
func (a *App) RunOnScreen(s tcell.Screen) (err error) {
	if err := a.open(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.close()) }()

	mode, offset := a.startPosition()
	w, h := s.Size()
	if err := a.startViewer(mode, offset, w, h); err != nil {
		return err
	}

	a.v.Tick()
	a.v.Render(s)
	for {
		if a.v.Busy() {
			// Wakes PollEvent so the next step runs without input.
			_ = s.PostEvent(tcell.NewEventInterrupt(nil))
		}
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			switch a.v.HandleKey(ev) {
			case viewer.Quit:
				return nil
			case viewer.Switch:
				if err := a.switchViewer(w, h); err != nil {
					return err
				}
			}
		case *tcell.EventResize:
			s.Sync()
			w, h = s.Size()
			a.v.Resize(w, h)
		case *tcell.EventInterrupt:
		}
		a.v.Tick()
		a.v.Render(s)
	}
}

func (a *App) open() error {
	abs, err := filepath.Abs(a.opts.Path)
	if err != nil {
		abs = a.opts.Path
	}
	a.absPath = abs

	mode := store.ReadWrite
	if a.opts.ReadOnly {
		mode = store.ReadOnly
	}
	st, err := store.Open(a.opts.Path, mode)
	if err != nil && mode == store.ReadWrite && errors.Is(err, fs.ErrPermission) {
		logger.Warn("opening read-only", "path", a.opts.Path, "err", err)
		st, err = store.Open(a.opts.Path, store.ReadOnly)
	}
	if err != nil {
		return err
	}
	a.st = st

	sm, err := session.NewManager()
	if err != nil {
		logger.Warn("position memory disabled", "err", err)
	}
	a.sessions = sm
	logger.Info("opened", "path", abs, "read_only", !st.Writable())
	return nil
}

// startPosition applies the saved position when the file size still matches.
func (a *App) startPosition() (string, int64) {
	mode := a.opts.Mode
	offset := a.opts.Offset
	if a.sessions != nil && offset < 0 {
		size, err := a.st.Size()
		pos, ok := a.sessions.Position(a.absPath)
		switch {
		case !ok || err != nil:
		case pos.Size != size:
			a.sessions.Forget(a.absPath)
			logger.Debug("dropped stale position", "path", a.absPath, "saved_size", pos.Size, "size", size)
		default:
			offset = pos.Offset
			if mode == "" {
				mode = pos.Mode
			}
			a.wrap = pos.Wrap
			logger.Debug("restored position", "path", a.absPath, "offset", offset, "mode", mode)
		}
	}
	if mode != viewer.ModeText {
		mode = viewer.ModeHex
	}
	return mode, max(offset, 0)
}

func (a *App) startViewer(mode string, offset int64, w, h int) error {
	var err error
	if mode == viewer.ModeText {
		a.v, err = viewer.NewText(a.st, a.cfg, offset, a.wrap, w, h)
	} else {
		a.v, err = viewer.NewHex(a.st, a.cfg, offset, w, h)
	}
	return err
}

func (a *App) switchViewer(w, h int) error {
	pos := a.v.Position()
	next := viewer.ModeText
	if pos.Mode == viewer.ModeText {
		next = viewer.ModeHex
		a.wrap = pos.Wrap
	}
	logger.Debug("switch view", "mode", next, "offset", pos.Offset)
	return a.startViewer(next, pos.Offset, w, h)
}

func (a *App) close() error {
	var err error
	if a.sessions != nil {
		if a.v != nil {
			a.sessions.SetPosition(a.absPath, a.v.Position())
		}
		err = multierr.Append(err, a.sessions.Stop())
	}
	if a.st != nil {
		err = multierr.Append(err, a.st.Close())
	}
	return err
}
