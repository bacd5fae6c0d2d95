// Package logger provides structured logging configuration for the
// healthwatch service.
//
// It creates zerolog loggers from the service Config: JSON output (the
// default, for container log collection) or human-readable console output,
// at a configurable level (debug, info, warn, error). All logs go to stdout.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/HatiCode/healthwatch/cmd/healthwatch/config"
)

// New creates a logger writing to stdout.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(parseLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("service", "healthwatch").
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
