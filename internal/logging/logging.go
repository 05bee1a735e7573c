// Package logging builds the zerolog loggers used across the program.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

// Options select where logs go.
type Options struct {
	// Debug enables logging to File. Without it the logger discards
	// everything, since the chat view owns the terminal.
	Debug bool
	File  string
	// Console writes human-readable logs to Writer instead of a file.
	Console bool
	Writer  io.Writer
	Level   zerolog.Level
}

// New returns a logger and a function that closes its file, if any.
func New(opts Options) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	if opts.Console {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		level := opts.Level
		if !opts.Debug && level < zerolog.InfoLevel {
			level = zerolog.InfoLevel
		}
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		return zerolog.New(out).Level(level).With().Timestamp().Logger(), noop, nil
	}

	if !opts.Debug {
		return zerolog.Nop(), noop, nil
	}
	if opts.File == "" {
		return zerolog.Nop(), noop, fmt.Errorf("debug logging needs a file path")
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(f).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return logger, f.Close, nil
}

// Component derives a logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

var (
	skKeyPattern  = regexp.MustCompile(`(?i)(sk-[a-zA-Z0-9_-]{20,})`)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key["']?\s*[:=]\s*["']?)[a-zA-Z0-9_-]{20,}`)
)

// Redact masks API keys in text before it is logged.
func Redact(text string) string {
	text = skKeyPattern.ReplaceAllString(text, "[REDACTED_API_KEY]")
	return apiKeyPattern.ReplaceAllString(text, "${1}[REDACTED]")
}
