// Command ravensperchd is the flag-parsing entrypoint, overlaying
// environment configuration with command-line flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ravensperch/internal/app"
	"ravensperch/internal/config"
	"ravensperch/internal/logging"
)

func main() {
	var (
		host = flag.String("host", "", "administrative API host (default: 0.0.0.0)")
		port = flag.Int("port", 0, "administrative API port (default: 8585)")
		help = flag.Bool("help", false, "show usage")
	)
	flag.Parse()

	if *help {
		fmt.Println("ravensperchd")
		fmt.Println()
		fmt.Println("usage:")
		fmt.Println("  ravensperchd [flags]")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
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
