package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is the private context key for the request-scoped logger.
type loggerContextKey struct{}

// WithLogger returns a new context carrying the given logger. Middleware uses
// this to attach a logger enriched with request metadata (trace ID, user ID)
// so downstream code logs with full request context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext retrieves the logger from the context, falling back to the
// process default logger when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger from the context, falling back to
// the provided default. Components pass their own component-tagged logger as
// the fallback so logs stay attributable outside request scope.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
