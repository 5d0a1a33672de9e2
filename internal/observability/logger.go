// Package observability builds the logger and the Prometheus metrics
// shared by the lifetime runtime and the demo CLI.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogOptions configures NewLogger.
type LogOptions struct {
	App     string
	Level   zerolog.Level
	JSON    bool
	NoColor bool

	// Out defaults to os.Stderr.
	Out io.Writer
}

// NewLogger builds a zerolog logger. The global log.Logger is left alone.
func NewLogger(opts LogOptions) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		}
	}

	logger := zerolog.New(out).Level(opts.Level).With().Timestamp().Logger()
	if opts.App != "" {
		logger = logger.With().Str("app", opts.App).Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level. The empty string is info.
func ParseLevel(raw string) (zerolog.Level, error) {
	if raw == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(raw)
}
