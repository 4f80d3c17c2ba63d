package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Router delivers each capture to every sink concurrently, so a webhook
// backing off does not hold up the stdout line or the directory write.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a Router over sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

// Deliver waits for every sink. Failures are logged and joined; one
// failing sink never skips the others.
func (r *Router) Deliver(ctx context.Context, c Capture) error {
	if len(r.sinks) == 1 {
		return r.deliver(ctx, 0, c)
	}
	errs := make([]error, len(r.sinks))
	var wg sync.WaitGroup
	for i := range r.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.deliver(ctx, i, c)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (r *Router) deliver(ctx context.Context, i int, c Capture) error {
	s := r.sinks[i]
	if err := s.Deliver(ctx, c); err != nil {
		r.logger.WarnContext(ctx, "sink: deliver failed", "sink", fmt.Sprintf("%T", s), "capture_id", c.ID, "error", err)
		return fmt.Errorf("sink %d: %w", i, err)
	}
	return nil
}

func (r *Router) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
