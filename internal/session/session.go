package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Position is the remembered view state of one file.
type Position struct {
	Offset int64  `json:"offset"`
	Mode   string `json:"mode"` // "hex", "text"
	Wrap   bool   `json:"wrap,omitempty"`
	Size   int64  `json:"size"` // file size when saved
}

// Session stores the remembered positions keyed by absolute path.
type Session struct {
	Files     map[string]Position `json:"files"`
	LastSaved time.Time           `json:"last_saved"`
}

// Manager handles session persistence
type Manager struct {
	mu      sync.RWMutex
	session Session
	path    string
	dirty   bool
}

// NewManager loads the session from the state directory.
func NewManager() (*Manager, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	return Open(path), nil
}

// Open loads the session stored at path. A missing or unreadable file
// starts an empty session.
func Open(path string) *Manager {
	m := &Manager{
		session: Session{Files: make(map[string]Position)},
		path:    path,
	}
	m.load()
	return m
}

func sessionPath() (string, error) {
	stateDir := os.Getenv("QVIEW_STATE_HOME")
	if stateDir == "" {
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			stateDir = filepath.Join(xdg, "qview")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			stateDir = filepath.Join(home, ".local", "state", "qview")
		}
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "session.json"), nil
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	// Hand-edited state files may carry comments or trailing commas.
	data, err = hujson.Standardize(data)
	if err != nil {
		return
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return
	}
	if session.Files == nil {
		session.Files = make(map[string]Position)
	}
	m.session = session
}

// Save persists the session to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	m.session.LastSaved = time.Now()
	data, err := json.MarshalIndent(m.session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	if err := atomic.WriteFile(m.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	m.dirty = false
	return nil
}

// Position returns the saved position for a file
func (m *Manager) Position(absPath string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.session.Files[absPath]
	return pos, ok
}

// SetPosition updates the position for a file.
func (m *Manager) SetPosition(absPath string, pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Files[absPath] = pos
	m.dirty = true
}

// Forget drops the saved position for a file.
func (m *Manager) Forget(absPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.session.Files[absPath]; !ok {
		return
	}
	delete(m.session.Files, absPath)
	m.dirty = true
}

// Stop saves pending changes.
func (m *Manager) Stop() error {
	return m.Save()
}
