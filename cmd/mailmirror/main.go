package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/nhle/mailmirror/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	var c cli.CLI

	parser := kong.Must(&c,
		kong.Name("mailmirror"),
		kong.Description("Mirror a mailbox into a local SQLite cache, then search, read and export it"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	execCtx, err := cli.NewContext(&c.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer execCtx.Close()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(execCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
