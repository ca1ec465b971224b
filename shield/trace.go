package shield

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/canvas/idgen"
	"github.com/hazyhaar/canvas/kit"
)

// Trace assigns a request id (honouring an inbound X-Request-ID), injects
// it into the context and response headers, attaches a per-request logger
// and logs the request once it completes.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = idgen.New()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := kit.WithRequestID(r.Context(), id)
			ctx = kit.WithTraceID(ctx, id)
			ctx = kit.WithRemoteAddr(ctx, ExtractIP(r))
			ctx = kit.WithTransport(ctx, "http")

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = context.WithValue(ctx, LoggerKey, logger)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))
			logger.Info("shield: request",
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (MCP over HTTP) working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
