package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Webhook POSTs each capture as JSON to a URL with retry and exponential
// backoff. The image travels base64-encoded in the "image" field unless
// disabled with WithWebhookImage(false).
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	withImage  bool
	logger     *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay, doubled on each retry.
// Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookImage controls whether image bytes are posted.
func WithWebhookImage(on bool) WebhookOption {
	return func(w *Webhook) { w.withImage = on }
}

// WithWebhookClient replaces the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		withImage:  true,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// maxRetryAfter caps the wait a server may ask for with Retry-After.
const maxRetryAfter = 30 * time.Second

// Deliver posts c. 5xx, 429 and transport errors are retried with
// exponential backoff, or after the server's Retry-After when it sent one;
// other 4xx fail at once.
func (w *Webhook) Deliver(ctx context.Context, c Capture) error {
	if !w.withImage {
		c = c.Meta()
	}
	body, err := json.Marshal(envelope{Type: "capture", Data: c})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	wait := w.backoff
	for attempt := 0; ; attempt++ {
		retryAfter, retry, err := w.post(ctx, c.ID, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		if attempt == w.maxRetries {
			break
		}
		d := wait
		if retryAfter > 0 {
			d = retryAfter
		}
		w.logger.Warn("webhook: delivery failed, retrying",
			"capture_id", c.ID, "attempt", attempt+1, "wait_ms", d.Milliseconds(), "error", err)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}

// post makes one attempt. retry reports whether the failure is transient.
func (w *Webhook) post(ctx context.Context, id string, body []byte) (retryAfter time.Duration, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return 0, false, fmt.Errorf("webhook: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Capture-ID", id)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, ctx.Err() == nil, fmt.Errorf("webhook: %w", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return 0, false, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return parseRetryAfter(resp.Header.Get("Retry-After")), true, fmt.Errorf("webhook: status %d", resp.StatusCode)
	default:
		return 0, false, fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
}

// parseRetryAfter reads a delay in seconds. HTTP dates and junk yield 0.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func (w *Webhook) Close() error { return nil }
