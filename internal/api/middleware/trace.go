package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// TraceHeader carries the request's trace ID back to the client.
const TraceHeader = "X-Trace-ID"

// NewTraceMiddleware returns middleware that assigns each request a trace ID
// and stores a logger tagged with it in the request context. It should run
// before anything that logs.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			w.Header().Set(TraceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
