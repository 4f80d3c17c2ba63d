// CLAUDE:SUMMARY Writes capture metadata as JSON lines to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// Stdout writes one JSON line per capture. Image bytes are left out unless
// withImage is set.
type Stdout struct {
	mu        sync.Mutex
	enc       *json.Encoder
	withImage bool
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer, withImage bool) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w), withImage: withImage}
}

func (s *Stdout) Deliver(_ context.Context, c Capture) error {
	if !s.withImage {
		c = c.Meta()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(envelope{Type: "capture", Data: c})
}

func (s *Stdout) Close() error { return nil }
