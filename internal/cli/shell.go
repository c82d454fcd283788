package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/search"
	"github.com/kobzarvs/qview/internal/store"
)

const shellHelp = `Commands:
  size                          print the file size
  get <offset> <length>         print a small range as hex
  dump [offset] [length]        hex dump (default: 256 bytes at 0)
  find <pattern> [@start]       print the next match, wrapping at the end
  insert <offset> <data>        insert bytes
  delete <offset> <length>      remove bytes
  replace <offset> <length> <data>
  help
  quit`

const maxGetLength = 1 << 16

var shellCommands = []string{"size", "get", "dump", "find", "insert", "delete", "replace", "help", "quit"}

func ShellCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	readOnly := fs.BoolP("read-only", "r", false, "open the file read-only")

	return &Command{
		Flags:   fs,
		Usage:   "shell <file> [flags]",
		Short:   "Run engine commands interactively",
		Long:    "Open file and read commands from a prompt.\n\n" + shellHelp,
		MinArgs: 1,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			mode := store.ReadWrite
			if *readOnly {
				mode = store.ReadOnly
			}
			return withStore(args[0], mode, func(st store.Store) error {
				sh := &shell{ctx: ctx, o: o, st: st, cfg: cfg}
				return sh.run()
			})
		},
	}
}

type shell struct {
	ctx   context.Context
	o     *IO
	st    store.Store
	cfg   config.Config
	liner *liner.State
}

func historyFile() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "shell_history")
}

func (sh *shell) run() error {
	sh.liner = liner.NewLiner()
	defer sh.liner.Close()

	sh.liner.SetCtrlCAborts(true)
	sh.liner.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range shellCommands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				out = append(out, c)
			}
		}
		return out
	})
	if f, err := os.Open(historyFile()); err == nil {
		_, _ = sh.liner.ReadHistory(f)
		_ = f.Close()
	}
	defer sh.saveHistory()

	sh.o.Printf("qview shell on %s. Type 'help' for commands.\n", sh.st.Path())
	for {
		line, err := sh.liner.Prompt("qview> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sh.liner.AppendHistory(line)

		quit, err := sh.exec(line)
		if err != nil {
			sh.o.ErrPrintln("error:", err)
		}
		if quit {
			return nil
		}
	}
}

func (sh *shell) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if f, err := os.Create(path); err == nil {
		_, _ = sh.liner.WriteHistory(f)
		_ = f.Close()
	}
}

// exec runs one shell line.
func (sh *shell) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: %w (type 'help')", cmd, errMissingArgs)
		}
		return nil
	}
	// Data is the rest of the line so text patterns may contain spaces.
	rest := func(n int) string {
		s := line
		for i := 0; i <= n; i++ {
			s = strings.TrimLeft(s, " \t")
			if j := strings.IndexAny(s, " \t"); j >= 0 {
				s = s[j:]
			} else {
				s = ""
			}
		}
		return strings.TrimLeft(s, " \t")
	}

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		sh.o.Println(shellHelp)
	case "size":
		size, err := sh.st.Size()
		if err != nil {
			return false, err
		}
		sh.o.Printf("%d\t0x%X\n", size, size)
	case "get":
		if err := need(2); err != nil {
			return false, err
		}
		off, err := parseInt("offset", args[0])
		if err != nil {
			return false, err
		}
		n, err := parseInt("length", args[1])
		if err != nil {
			return false, err
		}
		if n > maxGetLength {
			return false, fmt.Errorf("length %d: at most %d bytes, use dump", n, maxGetLength)
		}
		data, err := store.ReadRange(sh.st, off, n)
		if err != nil {
			return false, err
		}
		sh.o.Printf("% X\n", data)
	case "dump":
		off, n := int64(0), int64(256)
		var err error
		if len(args) > 0 {
			if off, err = parseInt("offset", args[0]); err != nil {
				return false, err
			}
		}
		if len(args) > 1 {
			if n, err = parseInt("length", args[1]); err != nil {
				return false, err
			}
		}
		return false, dump(sh.o, sh.st, sh.cfg.Hex.Columns, off, n)
	case "find":
		if err := need(1); err != nil {
			return false, err
		}
		text := rest(0)
		start := int64(0)
		if last := args[len(args)-1]; len(args) > 1 && strings.HasPrefix(last, "@") {
			n, err := parseInt("start", last[1:])
			if err != nil {
				return false, err
			}
			start = n
			text = strings.TrimSpace(strings.TrimSuffix(text, last))
		}
		pattern, err := search.ParsePattern(text)
		if err != nil {
			return false, err
		}
		err = find(sh.ctx, sh.o, sh.st, sh.cfg, pattern, start, true, false)
		return false, err
	case "insert":
		if err := need(2); err != nil {
			return false, err
		}
		off, err := parseInt("offset", args[0])
		if err != nil {
			return false, err
		}
		data, err := search.ParsePattern(rest(1))
		if err != nil {
			return false, err
		}
		return false, replaceRange(sh.ctx, sh.o, sh.st, sh.cfg, "insert", off, 0, data, false)
	case "delete":
		if err := need(2); err != nil {
			return false, err
		}
		off, err := parseInt("offset", args[0])
		if err != nil {
			return false, err
		}
		n, err := parseInt("length", args[1])
		if err != nil {
			return false, err
		}
		return false, replaceRange(sh.ctx, sh.o, sh.st, sh.cfg, "delete", off, n, nil, false)
	case "replace":
		if err := need(3); err != nil {
			return false, err
		}
		off, err := parseInt("offset", args[0])
		if err != nil {
			return false, err
		}
		n, err := parseInt("length", args[1])
		if err != nil {
			return false, err
		}
		data, err := search.ParsePattern(rest(2))
		if err != nil {
			return false, err
		}
		return false, replaceRange(sh.ctx, sh.o, sh.st, sh.cfg, "replace", off, n, data, false)
	default:
		return false, fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
	return false, nil
}
