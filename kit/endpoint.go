// Package kit holds the transport-neutral plumbing shared by the HTTP, MCP
// and websocket surfaces: endpoints, middleware and request context values.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one operation, independent of the transport that reached it.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call of the named operation with its transport,
// request id and duration. Failures are logged at warn level.
func Logging(logger *slog.Logger, op string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"op", op,
				"transport", GetTransport(ctx),
				"duration", time.Since(start),
			}
			if id := GetRequestID(ctx); id != "" {
				attrs = append(attrs, "request_id", id)
			}
			if err != nil {
				logger.WarnContext(ctx, "call failed", append(attrs, "error", err)...)
			} else {
				logger.DebugContext(ctx, "call", attrs...)
			}
			return resp, err
		}
	}
}
