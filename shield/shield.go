// Package shield holds the HTTP middleware every farmdash route sits behind.
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns HeadToGet, SecurityHeaders, MaxBody and RequestID,
// in that order. The dashboard is served on a trusted network, so there is
// no rate limiting.
func DefaultStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(64 * 1024),
		RequestID(logger),
	}
}
