// CLAUDE:SUMMARY Capture orchestrator: admission guard, measure, scroll/settle/capture loop, stitch, guaranteed cleanup.
// Package session runs one full-page capture at a time against a worker.
//
// A capture measures the page once, then walks it viewport by viewport:
// scroll, wait for the page to settle, capture, append the tile. The tiles
// are then stitched into one image. A second capture requested while one is
// running is rejected, never queued.
package session

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/pageshot/pageshot/internal/capture"
	"github.com/hazyhaar/pageshot/pageshot/internal/compositor"
	"github.com/hazyhaar/pageshot/pageshot/internal/probe"
	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
	"github.com/hazyhaar/pageshot/pageshot/internal/tile"
)

const restoreTimeout = 5 * time.Second

// Compositor stitches the tiles of a session.
type Compositor interface {
	Compose(ctx context.Context, tiles []tile.Tile, g tile.Geometry, width int) (*image.RGBA, error)
}

// Config tunes an Orchestrator.
type Config struct {
	// CaptureWidth fixes the composite width. 0 uses the measured page width.
	CaptureWidth int

	// SettleDelay is the wait after each scroll. 0 means 500ms; negative
	// disables the wait.
	SettleDelay time.Duration

	// DefaultViewportHeight replaces an unavailable viewport height. 0 means 600.
	DefaultViewportHeight int

	// RestoreScroll puts the page back where it was once the capture ends.
	RestoreScroll bool

	Logger *slog.Logger
}

// Outcome is a finished capture.
type Outcome struct {
	Image    *image.RGBA
	Geometry tile.Geometry
	Width    int
	Tiles    int
	Elapsed  time.Duration
}

// Progress is a snapshot of the running capture.
type Progress struct {
	State State `json:"state"`
	Tiles int   `json:"tiles"`
}

// Orchestrator sequences a capture. One Orchestrator serves one worker.
type Orchestrator struct {
	conn     protocol.Caller
	layout   *probe.Layout
	scroller *probe.Scroller
	capt     capture.Capturer
	comp     Compositor
	cfg      Config
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	tiles int
}

// New creates an Orchestrator. conn reaches the worker, capt produces
// viewport images. A nil comp uses compositor.New().
func New(conn protocol.Caller, capt capture.Capturer, comp Compositor, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if comp == nil {
		comp = compositor.New()
	}
	delay := cfg.SettleDelay
	switch {
	case delay == 0:
		delay = probe.DefaultSettleDelay
	case delay < 0:
		delay = 0
	}
	return &Orchestrator{
		conn:     conn,
		layout:   probe.NewLayout(conn, cfg.DefaultViewportHeight, logger),
		scroller: probe.NewScroller(conn, delay, logger),
		capt:     capt,
		comp:     comp,
		cfg:      cfg,
		logger:   logger,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress returns the current state and the number of tiles captured so
// far in the running session.
func (o *Orchestrator) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Progress{State: o.state, Tiles: o.tiles}
}

func (o *Orchestrator) transition(to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !canTransition(o.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, to)
	}
	o.state = to
	return nil
}

func (o *Orchestrator) admit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Idle {
		return ErrBusy
	}
	o.state = Measuring
	o.tiles = 0
	return nil
}

type scrollPos struct{ x, y int }

// Capture runs one full-page capture. It fails with ErrBusy when a capture
// is already running. Whatever happens, the orchestrator is Idle again when
// Capture returns and, with RestoreScroll, the page is scrolled back.
func (o *Orchestrator) Capture(ctx context.Context) (*Outcome, error) {
	if err := o.admit(); err != nil {
		return nil, err
	}
	start := time.Now()
	var restore *scrollPos

	defer func() {
		if restore != nil {
			o.restoreScroll(ctx, *restore)
		}
		if err := o.transition(Idle); err != nil {
			o.logger.ErrorContext(ctx, "session: cannot reset", "error", err)
		}
	}()

	out, err := o.run(ctx, &restore)
	if err != nil {
		if terr := o.transition(Failed); terr != nil {
			o.logger.ErrorContext(ctx, "session: cannot fail", "error", terr)
		}
		o.logger.WarnContext(ctx, "session: capture failed",
			"tiles", o.Progress().Tiles,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err)
		return nil, err
	}
	out.Elapsed = time.Since(start)
	o.logger.InfoContext(ctx, "session: capture done",
		"width", out.Width,
		"height", out.Geometry.TotalHeight,
		"tiles", out.Tiles,
		"elapsed_ms", out.Elapsed.Milliseconds())
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, restore **scrollPos) (*Outcome, error) {
	dims, err := o.layout.Dimensions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.WarnContext(ctx, "session: measure failed", "error", err)
		return nil, ErrNoDimensions
	}
	vh := o.layout.ViewportHeight(ctx)
	g := tile.Geometry{
		TotalWidth:     dims.Width,
		TotalHeight:    dims.Height,
		ViewportHeight: vh,
		Scale:          dims.Scale,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if o.cfg.RestoreScroll {
		if x, y, err := o.layout.ScrollPosition(ctx); err == nil {
			*restore = &scrollPos{x: x, y: y}
		} else {
			o.logger.DebugContext(ctx, "session: scroll position unknown, not restoring", "error", err)
		}
	}

	if err := o.transition(Capturing); err != nil {
		return nil, err
	}
	offsets := tile.Offsets(g.TotalHeight, g.ViewportHeight)
	tiles := make([]tile.Tile, 0, len(offsets))
	for _, y := range offsets {
		reached, err := o.scroller.ScrollTo(ctx, 0, y)
		if err != nil {
			return nil, err
		}
		dataURL, err := o.capt.Capture(ctx)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile.Tile{YOffset: y, ScrollY: reached, Image: dataURL})

		o.mu.Lock()
		o.tiles = len(tiles)
		o.mu.Unlock()
	}

	if err := o.transition(Stitching); err != nil {
		return nil, err
	}
	width := o.cfg.CaptureWidth
	if width <= 0 {
		width = g.TotalWidth
	}
	img, err := o.comp.Compose(ctx, tiles, g, width)
	if err != nil {
		return nil, err
	}
	if err := o.transition(Done); err != nil {
		return nil, err
	}
	return &Outcome{Image: img, Geometry: g, Width: width, Tiles: len(tiles)}, nil
}

func (o *Orchestrator) restoreScroll(ctx context.Context, pos scrollPos) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	_, err := o.conn.Call(ctx, protocol.Request{Action: protocol.ActionScrollTo, X: pos.x, Y: pos.y})
	if err != nil {
		o.logger.WarnContext(ctx, "session: restore scroll failed", "x", pos.x, "y", pos.y, "error", err)
	}
}

// Handle serves the captureFullPage action: {success, dataUrl} on success,
// {success: false, error} otherwise.
func (o *Orchestrator) Handle(ctx context.Context, _ protocol.Request) (protocol.Response, error) {
	out, err := o.Capture(ctx)
	if err != nil {
		return protocol.Response{Success: false, Error: err.Error()}, nil
	}
	dataURL, err := compositor.EncodePNGDataURL(out.Image)
	if err != nil {
		return protocol.Response{Success: false, Error: err.Error()}, nil
	}
	return protocol.Response{Success: true, DataURL: dataURL, Width: out.Width, Height: out.Geometry.TotalHeight}, nil
}
