// Command flatc lowers units to flat C-compatible declarations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/flatc/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return
	}

	// Results already went to stdout; the error summary goes to stderr
	// so JSON output stays parseable.
	fmt.Fprintln(os.Stderr, "Error:", err)
	stop()
	os.Exit(cli.GetExitCode(err))
}
