// Package cli implements the qview command line.
package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
)

var (
	errMissingArgs = errors.New("missing arguments")
	errNoMatch     = errors.New("pattern not found")
	errNotTerminal = errors.New("the viewer needs a terminal on stdin and stdout")
)

// Commands returns every subcommand in help order.
func Commands(cfg config.Config) []*Command {
	return []*Command{
		ViewCmd(cfg),
		DumpCmd(cfg),
		FindCmd(cfg),
		InsertCmd(cfg),
		DeleteCmd(cfg),
		ReplaceCmd(cfg),
		GenCmd(cfg),
		ShellCmd(cfg),
	}
}

// Run is the main entry point. args[0] is the program name. Returns the
// exit code.
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string) int {
	o := NewIO(in, out, errOut)

	global := flag.NewFlagSet("qview", flag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(&strings.Builder{})
	debug := global.Bool("debug", false, "write debug messages to the log")
	logFile := global.String("log-file", "", "log file (default $QVIEW_LOG_FILE or qview.log in the config directory)")

	if len(args) > 0 {
		args = args[1:]
	}
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(o, nil)
			return 0
		}
		o.Fail(err)
		return 1
	}
	rest := global.Args()
	if len(rest) > 0 && rest[0] == "--" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		printUsage(o, nil)
		return 0
	}

	if err := logger.Init(*logFile, *debug); err != nil {
		o.ErrPrintln("qview: logging disabled:", err)
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		o.Fail(err)
		return 1
	}

	cmds := Commands(cfg)
	if rest[0] == "help" {
		if len(rest) > 1 {
			if c := lookup(cmds, rest[1]); c != nil {
				c.PrintHelp(o)
				return 0
			}
		}
		printUsage(o, cmds)
		return 0
	}

	c := lookup(cmds, rest[0])
	if c == nil {
		// "qview FILE" opens the viewer.
		return ViewCmd(cfg).Run(ctx, o, rest)
	}
	logger.Debug("command", "name", c.Name(), "args", rest[1:])
	return c.Run(ctx, o, rest[1:])
}

func lookup(cmds []*Command, name string) *Command {
	for _, c := range cmds {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func printUsage(o *IO, cmds []*Command) {
	if cmds == nil {
		cmds = Commands(config.Default())
	}
	o.Println(`qview - view and edit files of any size

Usage: qview [--debug] [--log-file <path>] <command> [args]
       qview <file>

Commands:`)
	for _, c := range cmds {
		o.Println(c.HelpLine())
	}
	o.Println()
	o.Println(`Run "qview help <command>" for command flags.`)
}
