package worker

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"image/png"
	"sync"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// MemoryPage is a Page rendered from a bitmap. It scrolls like a browser
// window (clamped to the document) and doubles as a capture primitive that
// returns the visible viewport as PNG. Used in tests and dry runs.
type MemoryPage struct {
	img      image.Image
	viewport int
	doc      Document

	mu   sync.Mutex
	x, y int
}

// NewMemoryPage creates a MemoryPage showing img through a window of the
// given height.
func NewMemoryPage(img image.Image, viewport int, doc Document) *MemoryPage {
	return &MemoryPage{img: img, viewport: viewport, doc: doc}
}

func (p *MemoryPage) Dimensions(context.Context) (protocol.Dimensions, error) {
	b := p.img.Bounds()
	return protocol.Dimensions{Width: b.Dx(), Height: b.Dy(), Scale: 1}, nil
}

func (p *MemoryPage) ViewportHeight(context.Context) (int, error) {
	return p.viewport, nil
}

func (p *MemoryPage) ScrollPosition(context.Context) (int, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y, nil
}

func (p *MemoryPage) ScrollTo(_ context.Context, x, y int) (int, int, error) {
	b := p.img.Bounds()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.x = max(0, x)
	p.y = max(0, min(y, b.Dy()-p.viewport))
	return p.x, p.y, nil
}

func (p *MemoryPage) Document(context.Context) (Document, error) {
	return p.doc, nil
}

// CaptureVisible encodes the rows currently in view.
func (p *MemoryPage) CaptureVisible(context.Context) ([]byte, error) {
	p.mu.Lock()
	y := p.y
	p.mu.Unlock()

	b := p.img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+y, b.Max.X, min(b.Min.Y+y+p.viewport, b.Max.Y))
	view := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(view, view.Bounds(), p.img, r.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
