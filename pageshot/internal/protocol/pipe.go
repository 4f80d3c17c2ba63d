// CLAUDE:SUMMARY In-process request/response channel with per-call correlation; unreachable peers fail fast.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hazyhaar/pageshot/idgen"
)

var (
	// ErrUnreachable means no server is attached, the pipe is closed, or the
	// server stopped before answering.
	ErrUnreachable = errors.New("protocol: peer unreachable")

	// ErrAttached is returned by Attach when a server is already attached.
	ErrAttached = errors.New("protocol: pipe already has a server")
)

// Handler answers one request. A returned error is delivered to the caller
// as Response.Error.
type Handler func(ctx context.Context, req Request) (Response, error)

// Caller is the coordinator's view of the boundary.
type Caller interface {
	Call(ctx context.Context, req Request) (Response, error)
}

type envelope struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Pipe connects a coordinator to a single worker. Requests are handled one
// at a time in arrival order, like messages delivered to a page script.
type Pipe struct {
	newID idgen.Generator
	reqs  chan envelope

	mu      sync.Mutex
	stopped chan struct{} // closed when the attached server exits; nil if never attached
	serving bool
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPipe creates an unattached pipe. Calls fail with ErrUnreachable until
// a server is attached.
func NewPipe() *Pipe {
	return &Pipe{
		newID: idgen.Prefixed("req_", idgen.NanoID(10)),
		reqs:  make(chan envelope),
		done:  make(chan struct{}),
	}
}

// Attach registers h as the worker side and starts serving in a goroutine.
// The server is registered before Attach returns. It stops when ctx is
// done or the pipe is closed; pending calls then fail with ErrUnreachable.
func (p *Pipe) Attach(ctx context.Context, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("protocol: attach: %w", ErrUnreachable)
	}
	if p.serving {
		return ErrAttached
	}
	p.serving = true
	stopped := make(chan struct{})
	p.stopped = stopped

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			p.serving = false
			close(stopped)
			p.mu.Unlock()
		}()
		p.serve(ctx, h)
	}()
	return nil
}

func (p *Pipe) serve(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case env := <-p.reqs:
			resp, err := h(env.ctx, env.req)
			if err != nil {
				resp.Error = err.Error()
			}
			resp.ID = env.req.ID
			env.reply <- resp
		}
	}
}

// Call sends req to the worker and waits for its response. It never hangs
// on a missing worker: with no server attached it fails immediately.
// A response carrying an error message is returned together with a
// *RemoteError.
func (p *Pipe) Call(ctx context.Context, req Request) (Response, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Response{}, &UnreachableError{Action: req.Action, Reason: "pipe closed"}
	}
	if !p.serving {
		p.mu.Unlock()
		return Response{}, &UnreachableError{Action: req.Action, Reason: "no worker attached"}
	}
	stopped := p.stopped
	p.mu.Unlock()

	if req.ID == "" {
		req.ID = p.newID()
	}
	env := envelope{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case p.reqs <- env:
	case <-stopped:
		return Response{}, &UnreachableError{Action: req.Action, Reason: "worker stopped"}
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-env.reply:
		if resp.ID != req.ID {
			return resp, fmt.Errorf("protocol: %s: response id %q does not match request %q", req.Action, resp.ID, req.ID)
		}
		if resp.Error != "" {
			return resp, &RemoteError{Action: req.Action, Message: resp.Error}
		}
		return resp, nil
	case <-stopped:
		return Response{}, &UnreachableError{Action: req.Action, Reason: "worker stopped"}
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close detaches the server and waits for it to exit. Later calls fail with
// ErrUnreachable. Close is idempotent.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
