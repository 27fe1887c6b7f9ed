package sim

import (
	"context"
	"fmt"
	"log/slog"
)

// EventLogger is a hook that writes every hook invocation to a logger at
// debug level.
type EventLogger struct {
	*slog.Logger
	timeTeller TimeTeller
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *slog.Logger, timeTeller TimeTeller) *EventLogger {
	return &EventLogger{Logger: logger, timeTeller: timeTeller}
}

// Func writes the hook information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"clock", h.timeTeller.Now(),
		"pos", ctx.Pos.Name,
		"item", fmt.Sprintf("%T", ctx.Item),
	}

	if named, ok := ctx.Domain.(Named); ok {
		attrs = append(attrs, "domain", named.Name())
	}

	switch item := ctx.Item.(type) {
	case interface{ Message() string }:
		attrs = append(attrs, "what", item.Message())
	case fmt.Stringer:
		attrs = append(attrs, "what", item.String())
	}

	h.Debug("hook", attrs...)
}
