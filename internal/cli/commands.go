package cli

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/kobzarvs/qview/internal/app"
	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/search"
	"github.com/kobzarvs/qview/internal/store"
	"github.com/kobzarvs/qview/internal/viewer"
)

// isTerminal is replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runViewer is replaced in tests.
var runViewer = func(cfg config.Config, opts app.Options) error {
	return app.New(cfg, opts).Run()
}

func ViewCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("view", flag.ContinueOnError)
	hex := fs.Bool("hex", false, "open the hex viewer")
	text := fs.Bool("text", false, "open the text viewer")
	offset := fs.Int64P("offset", "o", -1, "start offset (default: last saved position)")
	readOnly := fs.BoolP("read-only", "r", false, "open the file read-only")

	return &Command{
		Flags:   fs,
		Usage:   "view <file> [flags]",
		Short:   "Open the interactive viewer",
		Long:    "Open the interactive hex or text viewer. Tab switches between them at the current offset.",
		MinArgs: 1,
		Exec: func(_ context.Context, _ *IO, args []string) error {
			if *hex && *text {
				return fmt.Errorf("--hex and --text are exclusive")
			}
			if !isTerminal() {
				return errNotTerminal
			}
			opts := app.Options{Path: args[0], Offset: *offset, ReadOnly: *readOnly}
			switch {
			case *hex:
				opts.Mode = viewer.ModeHex
			case *text:
				opts.Mode = viewer.ModeText
			}
			return runViewer(cfg, opts)
		},
	}
}

func DumpCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	offset := fs.Int64P("offset", "o", 0, "first byte")
	length := fs.Int64P("length", "n", -1, "bytes to dump (default: to the end)")
	columns := fs.IntP("columns", "c", cfg.Hex.Columns, "bytes per row")

	return &Command{
		Flags:   fs,
		Usage:   "dump <file> [flags]",
		Short:   "Print a byte range as hex",
		MinArgs: 1,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if *columns < 1 {
				return fmt.Errorf("--columns %d: must be positive", *columns)
			}
			if *offset < 0 {
				return fmt.Errorf("--offset %d: must not be negative", *offset)
			}
			return withStore(args[0], store.ReadOnly, func(st store.Store) error {
				return dump(o, st, *columns, *offset, *length)
			})
		},
	}
}

func FindCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	start := fs.Int64P("start", "s", 0, "offset to start at")
	wrap := fs.BoolP("wrap", "w", false, "continue from the beginning after the end")
	all := fs.BoolP("all", "a", false, "print every match")

	return &Command{
		Flags: fs,
		Usage: "find <file> <pattern> [flags]",
		Short: "Print the offset of a byte pattern",
		Long: `Print the offset of the first match of pattern at or after --start.

Patterns are literal text unless prefixed:
  text:hello  hex:DE AD BE EF  u8:255  u16le:513  u32be:0x01020304  u64:1`,
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			pattern, err := search.ParsePattern(args[1])
			if err != nil {
				return err
			}
			return withStore(args[0], store.ReadOnly, func(st store.Store) error {
				return find(ctx, o, st, cfg, pattern, *start, *wrap, *all)
			})
		},
	}
}

func InsertCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("insert", flag.ContinueOnError)
	showProgress := fs.BoolP("progress", "p", false, "report progress on stderr")

	return &Command{
		Flags:   fs,
		Usage:   "insert <file> <offset> <data> [flags]",
		Short:   "Insert bytes, shifting the rest of the file",
		Long:    "Insert data before offset. Data uses the find pattern syntax.",
		MinArgs: 3,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			off, err := parseInt("offset", args[1])
			if err != nil {
				return err
			}
			data, err := search.ParsePattern(args[2])
			if err != nil {
				return err
			}
			return withStore(args[0], store.ReadWrite, func(st store.Store) error {
				return replaceRange(ctx, o, st, cfg, "insert", off, 0, data, *showProgress)
			})
		},
	}
}

func DeleteCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	showProgress := fs.BoolP("progress", "p", false, "report progress on stderr")

	return &Command{
		Flags:   fs,
		Usage:   "delete <file> <offset> <length> [flags]",
		Short:   "Remove bytes, shifting the rest of the file",
		MinArgs: 3,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			off, err := parseInt("offset", args[1])
			if err != nil {
				return err
			}
			n, err := parseInt("length", args[2])
			if err != nil {
				return err
			}
			return withStore(args[0], store.ReadWrite, func(st store.Store) error {
				return replaceRange(ctx, o, st, cfg, "delete", off, n, nil, *showProgress)
			})
		},
	}
}

func ReplaceCmd(cfg config.Config) *Command {
	fs := flag.NewFlagSet("replace", flag.ContinueOnError)
	showProgress := fs.BoolP("progress", "p", false, "report progress on stderr")

	return &Command{
		Flags:   fs,
		Usage:   "replace <file> <offset> <length> <data> [flags]",
		Short:   "Replace a byte range with data of any length",
		MinArgs: 4,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			off, err := parseInt("offset", args[1])
			if err != nil {
				return err
			}
			n, err := parseInt("length", args[2])
			if err != nil {
				return err
			}
			data, err := search.ParsePattern(args[3])
			if err != nil {
				return err
			}
			return withStore(args[0], store.ReadWrite, func(st store.Store) error {
				return replaceRange(ctx, o, st, cfg, "replace", off, n, data, *showProgress)
			})
		},
	}
}

func GenCmd(_ config.Config) *Command {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fill := fs.Uint8P("fill", "f", 0, "first byte value")
	step := fs.Uint8P("step", "s", 1, "increment between bytes (0 repeats --fill)")
	showProgress := fs.BoolP("progress", "p", false, "report progress on stderr")

	return &Command{
		Flags:   fs,
		Usage:   "gen <file> <size> [flags]",
		Short:   "Create a test file of size bytes (k, m, g suffixes)",
		MinArgs: 2,
		Exec: func(ctx context.Context, o *IO, args []string) (err error) {
			size, err := parseSize(args[1])
			if err != nil {
				return err
			}
			st, err := store.Create(args[0])
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, st.Close()) }()
			var report progress.Func
			if *showProgress {
				report = progress.Percent(func(p int) bool {
					o.ErrPrintf("\rgen %3d%%", p)
					return true
				})
				defer o.ErrPrintln()
			}
			pattern := store.FillPattern{Start: *fill, Step: *step}
			logger.Info("generate", "path", args[0], "size", size, "fill", *fill, "step", *step)
			return store.Generate(ctx, st, size, pattern, report)
		},
	}
}
