// Package ctxlog carries a *slog.Logger through a context.Context so that
// deeply nested code (stage runners, actions) logs with the attributes of the
// execution that invoked it.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is unexported to avoid collisions with context keys of other packages.
type key struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default() when there
// is none.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(key{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With derives a logger from ctx with the given attributes and returns it
// together with a context carrying it.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := FromContext(ctx).With(args...)
	return WithLogger(ctx, logger), logger
}
