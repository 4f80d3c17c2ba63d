// CLAUDE:SUMMARY Stitches captured tiles into one canvas: concurrent decode, draw strictly in y-offset order.
// Package compositor assembles captured tiles into the full-page image.
//
// Tiles are decoded concurrently but drawn one after another in YOffset
// order, each draw waiting for that tile's own decode. The result does not
// depend on which decode finishes first.
package compositor

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"runtime"
	"slices"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
	"github.com/hazyhaar/pageshot/pageshot/internal/tile"
)

// ErrNoTiles is returned by Compose for an empty tile sequence.
var ErrNoTiles = errors.New("compositor: no tiles")

// Decoder turns a tile's data URL into an image.
type Decoder func(dataURL string) (image.Image, error)

// Compositor stitches tiles. The zero value is not usable; use New.
type Compositor struct {
	decode  Decoder
	workers int
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithDecoder replaces the data URL decoder.
func WithDecoder(d Decoder) Option {
	return func(c *Compositor) { c.decode = d }
}

// WithWorkers bounds concurrent decodes. n <= 0 keeps the default
// (GOMAXPROCS).
func WithWorkers(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Compositor.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		decode:  DecodeDataURL,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type slot struct {
	img   image.Image
	ready chan struct{}
}

// Compose draws tiles onto a width x TotalHeight canvas. Any decode failure
// aborts the whole composite.
func (c *Compositor) Compose(ctx context.Context, tiles []tile.Tile, g tile.Geometry, width int) (*image.RGBA, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if width <= 0 {
		width = g.TotalWidth
	}
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}

	ordered := slices.Clone(tiles)
	slices.SortStableFunc(ordered, func(a, b tile.Tile) int { return cmp.Compare(a.YOffset, b.YOffset) })

	slots := make([]slot, len(ordered))
	for i := range slots {
		slots[i].ready = make(chan struct{})
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.workers)

	spawned := make(chan struct{})
	go func() {
		defer close(spawned)
		for i := range ordered {
			if gctx.Err() != nil {
				return
			}
			eg.Go(func() error {
				defer close(slots[i].ready)
				img, err := c.decode(ordered[i].Image)
				if err != nil {
					return fmt.Errorf("compositor: decode tile at y=%d: %w", ordered[i].YOffset, err)
				}
				slots[i].img = img
				return nil
			})
		}
	}()

	canvas := image.NewRGBA(image.Rect(0, 0, width, g.TotalHeight))
	drawn := 0
	for i := range ordered {
		var img image.Image
		select {
		case <-slots[i].ready:
			img = slots[i].img
		case <-gctx.Done():
		}
		if img == nil {
			break
		}
		drawTile(canvas, img, ordered[i], g)
		drawn++
	}

	<-spawned
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if drawn != len(ordered) {
		return nil, fmt.Errorf("compositor: drew %d of %d tiles", drawn, len(ordered))
	}
	return canvas, nil
}

// drawTile copies the rows of src that belong at t.YOffset. Rows are read
// from (YOffset-ScrollY)*scale so a last scroll clamped by the browser still
// lands the right content.
func drawTile(dst *image.RGBA, src image.Image, t tile.Tile, g tile.Geometry) {
	h := tile.DrawHeight(g, t.YOffset)
	if h == 0 {
		return
	}
	scale := g.PixelScale()
	sb := src.Bounds()

	shift := max(0, t.YOffset-t.ScrollY)
	sy0 := sb.Min.Y + scaled(shift, scale)
	if sy0 >= sb.Max.Y {
		sy0 = sb.Min.Y
	}
	sr := image.Rect(sb.Min.X, sy0, sb.Min.X+scaled(dst.Bounds().Dx(), scale), sy0+scaled(h, scale)).Intersect(sb)
	if sr.Empty() {
		return
	}

	if scale == 1 {
		dr := image.Rect(0, t.YOffset, sr.Dx(), t.YOffset+sr.Dy()).Intersect(dst.Bounds())
		xdraw.Draw(dst, dr, src, sr.Min, xdraw.Src)
		return
	}
	dw := int(math.Round(float64(sr.Dx()) / scale))
	dh := int(math.Round(float64(sr.Dy()) / scale))
	dr := image.Rect(0, t.YOffset, dw, t.YOffset+dh).Intersect(dst.Bounds())
	xdraw.CatmullRom.Scale(dst, dr, src, sr, xdraw.Src, nil)
}

func scaled(n int, scale float64) int {
	return int(math.Round(float64(n) * scale))
}

// DecodeDataURL is the default Decoder: PNG, JPEG and WebP payloads.
func DecodeDataURL(s string) (image.Image, error) {
	_, data, err := protocol.DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	return img, nil
}

// EncodePNGDataURL renders img as a PNG data URL.
func EncodePNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("compositor: encode png: %w", err)
	}
	return protocol.EncodeDataURL("image/png", buf.Bytes()), nil
}
