// Package kit carries request-scoped values shared by the pageshot
// surfaces (HTTP, MCP, CLI) and adapts service endpoints to MCP tools.
package kit

import "context"

type ctxKey int

const (
	transportKey ctxKey = iota
	traceIDKey
)

// WithTransport records which surface a request came in on: "http", "mcp"
// or "cli". Capture logs and events carry it.
func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, transportKey, t)
}

// GetTransport returns the surface set by WithTransport, or "http".
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(transportKey).(string); ok {
		return v
	}
	return "http"
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// GetTraceID returns the trace ID assigned by the HTTP middleware, if any.
func GetTraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}
