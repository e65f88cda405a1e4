package log

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a context carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext returns the logger stored by NewContext, or one over the slog
// default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}
