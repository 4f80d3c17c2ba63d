package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/pageshot/idgen"
	"github.com/hazyhaar/pageshot/kit"
)

var newTraceID = idgen.NanoID(8)

// Trace assigns a trace ID to each request and injects it into the context,
// the X-Trace-ID response header and a per-request logger stored under
// LoggerKey. A nil logger uses slog.Default().
func Trace(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := newTraceID()

			ctx := kit.WithTraceID(r.Context(), traceID)
			ctx = kit.WithTransport(ctx, "http")
			w.Header().Set("X-Trace-ID", traceID)

			reqLogger := logger.With(
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)
			reqLogger.Debug("request")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
