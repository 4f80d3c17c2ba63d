package sink

import "context"

// DeliverFunc receives a capture in-process.
type DeliverFunc func(ctx context.Context, c Capture) error

// Callback delivers captures via a Go function call, for embedding
// pageshot in a larger binary.
type Callback struct {
	fn DeliverFunc
}

// NewCallback creates a Callback sink. A nil fn discards captures.
func NewCallback(fn DeliverFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Deliver(ctx context.Context, capt Capture) error {
	if c.fn != nil {
		return c.fn(ctx, capt)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
