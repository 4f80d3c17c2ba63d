package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// Adapter turns a Primitive into a Capturer and serves the captureTab
// action.
type Adapter struct {
	prim       Primitive
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRetry retries ErrRateLimited up to maxRetries times, waiting
// baseBackoff doubled on each attempt. maxRetries 0 disables retrying.
func WithRetry(maxRetries int, baseBackoff time.Duration) Option {
	return func(a *Adapter) {
		a.maxRetries = maxRetries
		a.backoff = baseBackoff
	}
}

// WithLogger sets the logger for retry attempts.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an Adapter. By default a rate-limited capture fails
// at once; WithRetry opts into retrying with a 500ms base backoff.
func NewAdapter(prim Primitive, opts ...Option) *Adapter {
	a := &Adapter{
		prim:    prim,
		backoff: 500 * time.Millisecond,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Capture captures the viewport and returns it as a data URL.
func (a *Adapter) Capture(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		data, err := a.prim.CaptureVisible(ctx)
		if err == nil {
			if len(data) == 0 {
				return "", errors.New("capture: empty image")
			}
			return protocol.EncodeDataURL(http.DetectContentType(data), data), nil
		}
		lastErr = err

		if ctx.Err() != nil || !errors.Is(err, ErrRateLimited) || a.maxRetries <= 0 {
			return "", err
		}
		if attempt < a.maxRetries {
			wait := a.backoff * (1 << uint(attempt))
			a.logger.WarnContext(ctx, "capture: rate limited, retrying",
				"attempt", attempt+1,
				"max_retries", a.maxRetries,
				"backoff_ms", wait.Milliseconds())
			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(wait):
			}
		}
	}
	return "", fmt.Errorf("capture: retries exhausted: %w", lastErr)
}

// Handle serves the captureTab action: {dataUrl} or {error}.
func (a *Adapter) Handle(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	dataURL, err := a.Capture(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{DataURL: dataURL}, nil
}

// Remote is a Capturer that asks the peer holding the primitive via the
// captureTab action.
type Remote struct {
	conn protocol.Caller
}

// NewRemote creates a Remote over conn.
func NewRemote(conn protocol.Caller) *Remote {
	return &Remote{conn: conn}
}

// Capture implements Capturer.
func (r *Remote) Capture(ctx context.Context) (string, error) {
	resp, err := r.conn.Call(ctx, protocol.Request{Action: protocol.ActionCaptureTab})
	if err != nil {
		return "", err
	}
	if resp.DataURL == "" {
		return "", errors.New("capture: peer returned no image")
	}
	return resp.DataURL, nil
}
