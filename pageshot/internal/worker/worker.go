// CLAUDE:SUMMARY Page-side server: answers layout, scroll, content and document actions against a live Page.
// Package worker is the page-scoped side of the capture protocol. It owns
// the document's scroll and layout state and answers the coordinator's
// requests; it never captures pixels itself.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/pageshot/pageshot/internal/content"
	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// Document is a snapshot of the loaded page.
type Document struct {
	URL   string
	Title string
	HTML  string
}

// Page is the document a Worker runs in.
type Page interface {
	// Dimensions returns the larger of the documentElement and body scroll
	// extents and the device pixel ratio.
	Dimensions(ctx context.Context) (protocol.Dimensions, error)
	// ViewportHeight returns window.innerHeight.
	ViewportHeight(ctx context.Context) (int, error)
	ScrollPosition(ctx context.Context) (x, y int, err error)
	// ScrollTo scrolls the window and returns the position reached, which
	// the browser may clamp.
	ScrollTo(ctx context.Context, x, y int) (rx, ry int, err error)
	Document(ctx context.Context) (Document, error)
}

// Worker serves protocol requests for one Page.
type Worker struct {
	page   Page
	mux    *protocol.Mux
	logger *slog.Logger
}

// New creates a Worker with handlers for every page action.
func New(page Page, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{page: page, mux: protocol.NewMux(), logger: logger}
	w.mux.Handle(protocol.ActionGetPageDimensions, w.dimensions)
	w.mux.Handle(protocol.ActionGetViewportHeight, w.viewportHeight)
	w.mux.Handle(protocol.ActionGetScrollPosition, w.scrollPosition)
	w.mux.Handle(protocol.ActionScrollTo, w.scrollTo)
	w.mux.Handle(protocol.ActionGetWebpageContent, w.webpageContent)
	w.mux.Handle(protocol.ActionGetDocument, w.document)
	return w
}

// Handle adds or replaces the handler for action, e.g. captureTab when
// the primitive lives on this side.
func (w *Worker) Handle(action protocol.Action, h protocol.Handler) {
	w.mux.Handle(action, h)
}

// Serve dispatches one request.
func (w *Worker) Serve(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	resp, err := w.mux.Serve(ctx, req)
	if err != nil {
		w.logger.DebugContext(ctx, "worker: request failed", "action", req.Action, "id", req.ID, "error", err)
	}
	return resp, err
}

// Attach makes w the server side of pipe until ctx is done.
func (w *Worker) Attach(ctx context.Context, pipe *protocol.Pipe) error {
	return pipe.Attach(ctx, w.Serve)
}

func (w *Worker) dimensions(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	d, err := w.page.Dimensions(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{Width: d.Width, Height: d.Height, Scale: d.Scale}, nil
}

func (w *Worker) viewportHeight(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	h, err := w.page.ViewportHeight(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{Height: h}, nil
}

func (w *Worker) scrollPosition(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	x, y, err := w.page.ScrollPosition(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{X: x, Y: y}, nil
}

func (w *Worker) scrollTo(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	x, y, err := w.page.ScrollTo(ctx, req.X, req.Y)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{Success: true, X: x, Y: y}, nil
}

func (w *Worker) webpageContent(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	doc, err := w.page.Document(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	c, err := content.Collect(doc.URL, doc.HTML)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("worker: %w", err)
	}
	return protocol.Response{Success: true, Content: &c}, nil
}

func (w *Worker) document(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	doc, err := w.page.Document(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{Success: true, URL: doc.URL, Title: doc.Title, HTML: doc.HTML}, nil
}
