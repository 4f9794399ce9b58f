package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/farmdash/idgen"
	"github.com/hazyhaar/farmdash/kit"
)

var newRequestID = idgen.Prefixed("req_", idgen.NanoID(10))

// RequestID tags each request with an id, carried in the context (kit),
// the X-Request-ID response header and a per-request logger. A client
// supplied X-Request-ID is kept.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set("X-Request-ID", id)

			logger := base.With("request_id", id, "method", r.Method, "path", r.URL.Path)
			ctx := kit.WithRequestID(r.Context(), id)
			ctx = context.WithValue(ctx, LoggerKey, logger)
			logger.Debug("request", "remote_addr", r.RemoteAddr)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the per-request logger, or slog.Default.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
