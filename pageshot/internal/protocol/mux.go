package protocol

import (
	"context"
	"fmt"
	"sync"
)

// Mux dispatches requests to per-action handlers. Its Serve method is a
// Handler, so a Mux can be attached to a Pipe directly.
type Mux struct {
	mu       sync.RWMutex
	handlers map[Action]Handler
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[Action]Handler)}
}

// Handle registers h for action, replacing any previous handler.
func (m *Mux) Handle(action Action, h Handler) {
	m.mu.Lock()
	m.handlers[action] = h
	m.mu.Unlock()
}

// Serve dispatches req to its handler.
func (m *Mux) Serve(ctx context.Context, req Request) (Response, error) {
	m.mu.RLock()
	h, ok := m.handlers[req.Action]
	m.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("protocol: unknown action %q", req.Action)
	}
	return h(ctx, req)
}
