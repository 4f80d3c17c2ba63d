// CLAUDE:SUMMARY Capture primitive adapter: viewport bytes to data URL, host rate limiting, bounded retry on rate limit.
// Package capture wraps the privileged "capture the visible viewport"
// primitive. The host rate-limits it; Pacer models that ceiling and Adapter
// retries rate-limited calls with bounded backoff. Every other failure is
// returned at once.
package capture

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when the host rejects a capture because calls
// arrive faster than its ceiling.
var ErrRateLimited = errors.New("capture: rate limited")

// Primitive captures the currently visible viewport of the tab and returns
// the encoded image bytes (PNG, JPEG or WebP).
type Primitive interface {
	CaptureVisible(ctx context.Context) ([]byte, error)
}

// PrimitiveFunc adapts a function to Primitive.
type PrimitiveFunc func(ctx context.Context) ([]byte, error)

func (f PrimitiveFunc) CaptureVisible(ctx context.Context) ([]byte, error) { return f(ctx) }

// Capturer returns the visible viewport as a data URL. Adapter captures
// locally; Remote asks the other side of the boundary.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}
