package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
)

type Keymap struct {
	Hex  map[string]string `toml:"hex"`
	Text map[string]string `toml:"text"`
}

type EngineOptions struct {
	ScratchSize int `toml:"scratch-size"`
	SearchChunk int `toml:"search-chunk"`
}

type HexOptions struct {
	Columns        int `toml:"columns"`
	FastMultiplier int `toml:"fast-multiplier"`
}

type TextOptions struct {
	MaxLineLength int  `toml:"max-line-length"`
	BufferLines   int  `toml:"buffer-lines"`
	StopAtNUL     bool `toml:"stop-at-nul"`
	WordWrap      bool `toml:"word-wrap"`
}

type Theme struct {
	Theme                 string `toml:"theme"`
	Foreground            string `toml:"foreground"`
	Background            string `toml:"background"`
	StatuslineForeground  string `toml:"statusline-foreground"`
	StatuslineBackground  string `toml:"statusline-background"`
	CommandlineForeground string `toml:"commandline-foreground"`
	CommandlineBackground string `toml:"commandline-background"`
	OffsetForeground      string `toml:"offset-foreground"`
	AsciiForeground       string `toml:"ascii-foreground"`
	SelectionForeground   string `toml:"selection-foreground"`
	SelectionBackground   string `toml:"selection-background"`
	SearchMatchForeground string `toml:"search-foreground"`
	SearchMatchBackground string `toml:"search-background"`
	ErrorForeground       string `toml:"error-foreground"`
}

type Config struct {
	Engine EngineOptions `toml:"engine"`
	Hex    HexOptions    `toml:"hex"`
	Text   TextOptions   `toml:"text"`
	Theme  Theme         `toml:"theme"`
	Keymap Keymap        `toml:"keymap"`
}

const (
	maxColumns       = 64
	maxLineLength    = 1 << 16
	maxScratchSize   = 64 << 20
	maxBufferedLines = 1 << 12
)

func Default() Config {
	return Config{
		Engine: EngineOptions{
			ScratchSize: 1 << 20,
			SearchChunk: 1 << 20,
		},
		Hex: HexOptions{
			Columns:        16,
			FastMultiplier: 16,
		},
		Text: TextOptions{
			MaxLineLength: 1024,
			BufferLines:   256,
			StopAtNUL:     true,
			WordWrap:      false,
		},
		Theme: Theme{
			Foreground:            "#B3B1AD",
			Background:            "#0A0E14",
			StatuslineForeground:  "#B3B1AD",
			StatuslineBackground:  "#0F1419",
			CommandlineForeground: "#B3B1AD",
			CommandlineBackground: "#0F1419",
			OffsetForeground:      "#3E4B59",
			AsciiForeground:       "#5C6773",
			SelectionForeground:   "#B3B1AD",
			SelectionBackground:   "#27425A",
			SearchMatchForeground: "#000000",
			SearchMatchBackground: "#FFD700",
			ErrorForeground:       "#FF3333",
		},
		Keymap: Keymap{
			Hex: map[string]string{
				"up":        "row_up",
				"k":         "row_up",
				"down":      "row_down",
				"j":         "row_down",
				"left":      "byte_left",
				"h":         "byte_left",
				"right":     "byte_right",
				"l":         "byte_right",
				"pgup":      "page_up",
				"pgdn":      "page_down",
				"[":         "fast_page_up",
				"]":         "fast_page_down",
				"ctrl+pgup": "fast_page_up",
				"ctrl+pgdn": "fast_page_down",
				"alt+up":    "fast_page_up",
				"alt+down":  "fast_page_down",
				"home":      "file_start",
				"ctrl+home": "file_start",
				"g":         "file_start",
				"end":       "file_end",
				"ctrl+end":  "file_end",
				"G":         "file_end",
				"v":         "toggle_select",
				"esc":       "clear_select",
				"r":         "replace",
				"i":         "insert",
				"a":         "append",
				"d":         "delete",
				"del":       "delete",
				"/":         "find",
				"n":         "find_next",
				":":         "goto",
				"ctrl+l":    "refresh",
				"tab":       "switch_view",
				"q":         "quit",
				"ctrl+c":    "quit",
			},
			Text: map[string]string{
				"up":        "line_up",
				"k":         "line_up",
				"down":      "line_down",
				"j":         "line_down",
				"left":      "scroll_left",
				"h":         "scroll_left",
				"right":     "scroll_right",
				"l":         "scroll_right",
				"pgup":      "page_up",
				"pgdn":      "page_down",
				"alt+up":    "page_up",
				"alt+down":  "page_down",
				"alt+left":  "scroll_left",
				"alt+right": "scroll_right",
				"home":      "file_start",
				"ctrl+home": "file_start",
				"g":         "file_start",
				"end":       "file_end",
				"ctrl+end":  "file_end",
				"G":         "file_end",
				"w":         "toggle_wrap",
				"/":         "find",
				"n":         "find_next",
				"ctrl+l":    "refresh",
				"tab":       "switch_view",
				"q":         "quit",
				"ctrl+c":    "quit",
			},
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	md, err := toml.Decode(string(data), &userCfg)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if userCfg.Engine.ScratchSize > 0 {
		cfg.Engine.ScratchSize = userCfg.Engine.ScratchSize
	}
	if userCfg.Engine.SearchChunk > 0 {
		cfg.Engine.SearchChunk = userCfg.Engine.SearchChunk
	}
	if userCfg.Hex.Columns > 0 {
		cfg.Hex.Columns = userCfg.Hex.Columns
	}
	if userCfg.Hex.FastMultiplier > 0 {
		cfg.Hex.FastMultiplier = userCfg.Hex.FastMultiplier
	}
	if userCfg.Text.MaxLineLength > 0 {
		cfg.Text.MaxLineLength = userCfg.Text.MaxLineLength
	}
	if userCfg.Text.BufferLines > 0 {
		cfg.Text.BufferLines = userCfg.Text.BufferLines
	}
	if md.IsDefined("text", "stop-at-nul") {
		cfg.Text.StopAtNUL = userCfg.Text.StopAtNUL
	}
	if md.IsDefined("text", "word-wrap") {
		cfg.Text.WordWrap = userCfg.Text.WordWrap
	}
	if userCfg.Theme.Theme != "" {
		cfg.Theme.Theme = userCfg.Theme.Theme
	}
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)
	for k, v := range userCfg.Keymap.Hex {
		cfg.Keymap.Hex[k] = v
	}
	for k, v := range userCfg.Keymap.Text {
		cfg.Keymap.Text[k] = v
	}

	return cfg, cfg.Validate()
}

var ErrInvalid = errors.New("invalid configuration")

// Validate reports every out-of-range option.
func (c Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}
	check(c.Engine.ScratchSize > 0 && c.Engine.ScratchSize <= maxScratchSize,
		"engine.scratch-size %d not in [1, %d]", c.Engine.ScratchSize, maxScratchSize)
	check(c.Engine.SearchChunk > 0 && c.Engine.SearchChunk <= maxScratchSize,
		"engine.search-chunk %d not in [1, %d]", c.Engine.SearchChunk, maxScratchSize)
	check(c.Hex.Columns > 0 && c.Hex.Columns <= maxColumns,
		"hex.columns %d not in [1, %d]", c.Hex.Columns, maxColumns)
	check(c.Hex.FastMultiplier > 0, "hex.fast-multiplier %d must be positive", c.Hex.FastMultiplier)
	check(c.Text.MaxLineLength > 0 && c.Text.MaxLineLength <= maxLineLength,
		"text.max-line-length %d not in [1, %d]", c.Text.MaxLineLength, maxLineLength)
	check(c.Text.BufferLines > 0 && c.Text.BufferLines <= maxBufferedLines,
		"text.buffer-lines %d not in [1, %d]", c.Text.BufferLines, maxBufferedLines)
	return err
}

func mergeTheme(dst *Theme, src Theme) {
	if src.Foreground != "" {
		dst.Foreground = src.Foreground
	}
	if src.Background != "" {
		dst.Background = src.Background
	}
	if src.StatuslineForeground != "" {
		dst.StatuslineForeground = src.StatuslineForeground
	}
	if src.StatuslineBackground != "" {
		dst.StatuslineBackground = src.StatuslineBackground
	}
	if src.CommandlineForeground != "" {
		dst.CommandlineForeground = src.CommandlineForeground
	}
	if src.CommandlineBackground != "" {
		dst.CommandlineBackground = src.CommandlineBackground
	}
	if src.OffsetForeground != "" {
		dst.OffsetForeground = src.OffsetForeground
	}
	if src.AsciiForeground != "" {
		dst.AsciiForeground = src.AsciiForeground
	}
	if src.SelectionForeground != "" {
		dst.SelectionForeground = src.SelectionForeground
	}
	if src.SelectionBackground != "" {
		dst.SelectionBackground = src.SelectionBackground
	}
	if src.SearchMatchForeground != "" {
		dst.SearchMatchForeground = src.SearchMatchForeground
	}
	if src.SearchMatchBackground != "" {
		dst.SearchMatchBackground = src.SearchMatchBackground
	}
	if src.ErrorForeground != "" {
		dst.ErrorForeground = src.ErrorForeground
	}
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

// LoadTheme reads a theme file, either flat or under a [theme] table.
func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var wrap struct {
		Theme *Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err == nil && wrap.Theme != nil {
		return *wrap.Theme, nil
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err != nil {
		return Theme{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QVIEW_CONFIG_HOME"); v != "" {
		return filepath.Join(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qview"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qview"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath is the default log file location.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "qview.log"), nil
}
