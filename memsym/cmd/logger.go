package cmd

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger creates the diagnostics logger. Unknown levels fall back to info.
func newLogger(w io.Writer, logLevel string) *slog.Logger {
	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler).With("module", "memsym")
}
