package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds a slog.Logger from a LoggingConfig: "pretty" maps to
// slog's text handler, "json" to its JSON handler, and a non-empty
// File redirects output there instead of stderr.
func (c LoggingConfig) NewLogger() (*slog.Logger, error) {
	level := slog.LevelInfo
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("config: open log file: %w", err)
		}
		out = f
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), nil
}
