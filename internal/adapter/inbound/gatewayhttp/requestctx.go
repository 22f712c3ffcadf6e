package gatewayhttp

import (
	"context"
	"log/slog"

	"github.com/Sentinel-Gate/aigatewayd/internal/ctxkey"
)

type requestIDContextKey struct{}

// RequestIDKey is the context key for the per-request correlation id.
var RequestIDKey = requestIDContextKey{}

// LoggerKey is the context key for the request-enriched logger. Uses the
// shared key type from ctxkey so other packages can read it without an
// import cycle back to gatewayhttp.
var LoggerKey = ctxkey.LoggerKey{}

// WithRequestID attaches requestID and a logger enriched with it to ctx.
func WithRequestID(ctx context.Context, logger *slog.Logger, requestID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	return context.WithValue(ctx, LoggerKey, logger.With("request_id", requestID))
}

// LoggerFromContext retrieves the enriched logger stored by WithRequestID,
// falling back to slog.Default() if none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
