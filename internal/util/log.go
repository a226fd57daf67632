package util

import (
	"context"

	"github.com/rs/zerolog"
)

// LogFromContext returns the request-scoped logger attached by the logging
// middleware, falling back to the zerolog default context logger.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// LogToContext attaches the given logger to the context.
func LogToContext(ctx context.Context, l *zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
