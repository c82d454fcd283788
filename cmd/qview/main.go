package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/kobzarvs/qview/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args)
	stop()
	os.Exit(code)
}
