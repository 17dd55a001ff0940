// Package logging builds the application's slog logger. Records at WARN and
// above are also counted in the metrics registry.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// RecordCounter receives the level of every forwarded record.
type RecordCounter interface {
	LogRecord(level slog.Level)
}

// MetricsHandler is a slog.Handler that wraps another handler and reports
// WARN and ERROR records to a RecordCounter.
type MetricsHandler struct {
	inner   slog.Handler
	counter RecordCounter
	level   slog.Level // Minimum level to count (default: WARN)
}

// NewMetricsHandler creates a MetricsHandler that wraps the given handler.
func NewMetricsHandler(inner slog.Handler, counter RecordCounter) *MetricsHandler {
	return NewMetricsHandlerWithLevel(inner, counter, slog.LevelWarn)
}

// NewMetricsHandlerWithLevel creates a MetricsHandler with a custom minimum level.
func NewMetricsHandlerWithLevel(inner slog.Handler, counter RecordCounter, level slog.Level) *MetricsHandler {
	return &MetricsHandler{
		inner:   inner,
		counter: counter,
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *MetricsHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *MetricsHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level && h.counter != nil {
		h.counter.LogRecord(r.Level)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *MetricsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MetricsHandler{
		inner:   h.inner.WithAttrs(attrs),
		counter: h.counter,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *MetricsHandler) WithGroup(name string) slog.Handler {
	return &MetricsHandler{
		inner:   h.inner.WithGroup(name),
		counter: h.counter,
		level:   h.level,
	}
}

// ParseLevel maps a configured level name to a slog.Level. Unknown names
// fall back to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing text or JSON records to w. counter may be nil.
func New(w io.Writer, level, format string, counter RecordCounter) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var inner slog.Handler
	if strings.EqualFold(format, "json") {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	return slog.New(NewMetricsHandler(inner, counter))
}
