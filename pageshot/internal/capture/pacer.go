package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCallsPerSecond matches the browser's ceiling on visible-tab
// captures.
const DefaultCallsPerSecond = 2

// Pacer enforces a minimum interval between captures. A call that arrives
// too early fails with ErrRateLimited instead of waiting, which is how the
// host platform behaves.
type Pacer struct {
	prim     Primitive
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewPacer limits prim to perSecond calls. perSecond <= 0 disables pacing.
func NewPacer(prim Primitive, perSecond int) *Pacer {
	p := &Pacer{prim: prim, now: time.Now}
	if perSecond > 0 {
		p.interval = time.Second / time.Duration(perSecond)
	}
	return p
}

// CaptureVisible implements Primitive.
func (p *Pacer) CaptureVisible(ctx context.Context) ([]byte, error) {
	if p.interval > 0 {
		p.mu.Lock()
		now := p.now()
		if !p.last.IsZero() && now.Sub(p.last) < p.interval {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: more than %d calls per second", ErrRateLimited, int(time.Second/p.interval))
		}
		p.last = now
		p.mu.Unlock()
	}
	return p.prim.CaptureVisible(ctx)
}
