// Package logging configures the single process-wide structured logger.
// Every other package takes a child of it via Component(); none of them
// configure logging themselves.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger = zerolog.New(io.Discard)

// Init configures the process-wide logger at the given level ("debug",
// "info", "warn", "error") and installs it as the default returned by Log().
// Called once, at process start, from app.New.
func Init(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	defaultLogger = logger
	return logger
}

// Log returns the process-wide logger. Safe to call before Init; returns a
// discarding logger until Init runs.
func Log() *zerolog.Logger {
	return &defaultLogger
}

// Component returns a child logger tagged with a "component" field, the
// convention every package in this repository uses instead of per-package
// log prefixes.
func Component(name string) zerolog.Logger {
	return defaultLogger.With().Str("component", name).Logger()
}
