// Package main is the entry point for the molbuild CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/molbuild/internal/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Commands report their own errors; only cobra usage errors
		// (unknown flag, bad args) reach here unreported.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
			return cli.ExitCommandError
		}
		return exitErr.Code
	}
	return cli.ExitSuccess
}
