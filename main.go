package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ravensperch/internal/app"
	"ravensperch/internal/config"
	"ravensperch/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to assemble ravens-perch: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		log := logging.Component("main")
		log.Fatal().Err(err).Msg("ravens-perch exited with error")
	}
}
