package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tello-mission/internal/observability"
)

func main() {
	if err := start(); err != nil {
		os.Exit(1)
	}
}

// start runs the CLI. An interrupt cancels the context; a mission in flight
// notices between waypoints and lands through the emergency path.
func start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	return newRootCmd().ExecuteContext(ctx)
}
