// CLAUDE:SUMMARY Coordinator-side clients for the worker's layout and scroll actions, with the settle-delay discipline.
// Package probe holds the coordinator-side clients of the worker: the
// Layout Probe, which measures the page, and the Scroll Driver, which moves
// the viewport and waits for the page to repaint.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
	"github.com/hazyhaar/pageshot/pageshot/internal/tile"
)

// DefaultSettleDelay is the wait after each scroll before capturing.
const DefaultSettleDelay = 500 * time.Millisecond

// Layout measures the page through the worker.
type Layout struct {
	conn           protocol.Caller
	fallbackHeight int
	logger         *slog.Logger
}

// NewLayout creates a Layout probe. fallbackHeight <= 0 uses
// tile.DefaultViewportHeight.
func NewLayout(conn protocol.Caller, fallbackHeight int, logger *slog.Logger) *Layout {
	if fallbackHeight <= 0 {
		fallbackHeight = tile.DefaultViewportHeight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Layout{conn: conn, fallbackHeight: fallbackHeight, logger: logger}
}

// Dimensions asks the worker for the page extent. Any failure, including an
// empty answer, is returned as an error; the caller treats it as fatal.
func (l *Layout) Dimensions(ctx context.Context) (protocol.Dimensions, error) {
	resp, err := l.conn.Call(ctx, protocol.Request{Action: protocol.ActionGetPageDimensions})
	if err != nil {
		return protocol.Dimensions{}, fmt.Errorf("probe: page dimensions: %w", err)
	}
	if resp.Width <= 0 || resp.Height <= 0 {
		return protocol.Dimensions{}, fmt.Errorf("probe: page dimensions: empty answer %dx%d", resp.Width, resp.Height)
	}
	return protocol.Dimensions{Width: resp.Width, Height: resp.Height, Scale: resp.Scale}, nil
}

// ViewportHeight returns the visible window height. It never fails: an
// unreachable worker or a nonsensical answer yields the fallback height.
func (l *Layout) ViewportHeight(ctx context.Context) int {
	resp, err := l.conn.Call(ctx, protocol.Request{Action: protocol.ActionGetViewportHeight})
	if err != nil {
		l.logger.WarnContext(ctx, "probe: viewport height unavailable, using fallback",
			"fallback", l.fallbackHeight, "error", err)
		return l.fallbackHeight
	}
	if resp.Height <= 0 {
		l.logger.WarnContext(ctx, "probe: viewport height invalid, using fallback",
			"height", resp.Height, "fallback", l.fallbackHeight)
		return l.fallbackHeight
	}
	return resp.Height
}

// ScrollPosition returns the current scroll offsets.
func (l *Layout) ScrollPosition(ctx context.Context) (x, y int, err error) {
	resp, err := l.conn.Call(ctx, protocol.Request{Action: protocol.ActionGetScrollPosition})
	if err != nil {
		return 0, 0, fmt.Errorf("probe: scroll position: %w", err)
	}
	return resp.X, resp.Y, nil
}

// Scroller is the Scroll Driver.
type Scroller struct {
	conn   protocol.Caller
	delay  time.Duration
	logger *slog.Logger
}

// NewScroller creates a Scroller. delay < 0 uses DefaultSettleDelay; a zero
// delay is honoured (tests).
func NewScroller(conn protocol.Caller, delay time.Duration, logger *slog.Logger) *Scroller {
	if delay < 0 {
		delay = DefaultSettleDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scroller{conn: conn, delay: delay, logger: logger}
}

// ScrollTo asks the worker to scroll to (x, y) and then waits the settle
// delay whether or not the scroll succeeded. It returns the vertical
// position the page reached, or y when the worker did not say. The only
// error is context cancellation.
func (s *Scroller) ScrollTo(ctx context.Context, x, y int) (int, error) {
	reached := y
	resp, err := s.conn.Call(ctx, protocol.Request{Action: protocol.ActionScrollTo, X: x, Y: y})
	switch {
	case err == nil:
		reached = resp.Y
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return y, err
	default:
		s.logger.WarnContext(ctx, "probe: scroll failed, capturing current view",
			"x", x, "y", y, "error", err)
	}

	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return reached, ctx.Err()
		case <-t.C:
		}
	}
	return reached, nil
}
