package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/scabench-org/scabench/cmd"
	"github.com/scabench-org/scabench/internal/observability"
)

// main wires signal handling around the root command so an interrupt aborts
// in-flight scoring gracefully instead of dropping partial results.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		// A run cut short by the user's own signal is not a failure.
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
