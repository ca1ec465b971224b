// Package shield provides the HTTP middleware stack of the canvas editor
// API: security headers, JSON body limits, request tracing, panic
// recovery, rate limiting of expensive routes and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(logger) {
//	    r.Use(mw)
//	}
//	r.With(shield.NewRateLimiter(10, time.Minute).Middleware).Post("/assist", h)
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultBodyLimit bounds JSON request bodies (command batches, prompts).
const DefaultBodyLimit = 1 << 20

// DefaultStack returns the standard middleware stack for the editor API.
// Order: Recover → HeadToGet → SecurityHeaders → MaxJSONBody → TraceID.
func DefaultStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return []func(http.Handler) http.Handler{
		Recover(logger),
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(DefaultBodyLimit),
		Trace(logger),
	}
}

// GetLogger retrieves the per-request logger from the context.
// Returns slog.Default() if no logger was set.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
