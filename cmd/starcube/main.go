// Command starcube plans and runs OLAP queries over star and snowflake
// schemas described by a CUE model.
//
// Usage:
//
//	starcube [--format text|json] [--verbose] <command> [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/starcube/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		// Commands that print their own errors return ExitErrors; only
		// report the rest here.
		if _, ok := err.(*cli.ExitError); !ok {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
