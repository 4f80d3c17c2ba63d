// CLAUDE:SUMMARY Rod tab implementing the worker Page (layout, scroll, document) and the visible-viewport capture primitive.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
	"github.com/hazyhaar/pageshot/pageshot/internal/worker"
)

const (
	jsDimensions = `() => {
		const d = document.documentElement, b = document.body;
		return {
			width: Math.max(d.scrollWidth, b ? b.scrollWidth : 0),
			height: Math.max(d.scrollHeight, b ? b.scrollHeight : 0),
			scale: window.devicePixelRatio || 1,
		};
	}`
	jsViewportHeight = `() => window.innerHeight`
	jsScrollPosition = `() => ({x: Math.round(window.scrollX), y: Math.round(window.scrollY)})`
	jsScrollTo       = `(x, y) => {
		window.scrollTo(x, y);
		return {x: Math.round(window.scrollX), y: Math.round(window.scrollY)};
	}`
	jsDocument = `() => ({url: location.href, title: document.title, html: document.documentElement.outerHTML})`
)

// Tab is a loaded page. It implements worker.Page and capture.Primitive.
type Tab struct {
	page   *rod.Page
	router *rod.HijackRouter
}

// OpenTab opens pageURL in a new tab of mgr's browser, sized to the
// configured viewport, and waits for the load event.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, errors.New("browser: no active browser")
	}
	cfg := mgr.cfg

	var page *rod.Page
	var err error
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	t := &Tab{page: page}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: cfg.DeviceScale,
	}); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}
	if t.router, err = blockResources(page, parseResources(cfg.ResourceBlocking)); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: resource blocking: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return t, nil
}

func (t *Tab) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	res, err := t.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return res, nil
}

// Dimensions implements worker.Page.
func (t *Tab) Dimensions(ctx context.Context) (protocol.Dimensions, error) {
	res, err := t.eval(ctx, jsDimensions)
	if err != nil {
		return protocol.Dimensions{}, err
	}
	return protocol.Dimensions{
		Width:  res.Value.Get("width").Int(),
		Height: res.Value.Get("height").Int(),
		Scale:  res.Value.Get("scale").Num(),
	}, nil
}

// ViewportHeight implements worker.Page.
func (t *Tab) ViewportHeight(ctx context.Context) (int, error) {
	res, err := t.eval(ctx, jsViewportHeight)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// ScrollPosition implements worker.Page.
func (t *Tab) ScrollPosition(ctx context.Context) (int, int, error) {
	res, err := t.eval(ctx, jsScrollPosition)
	if err != nil {
		return 0, 0, err
	}
	return res.Value.Get("x").Int(), res.Value.Get("y").Int(), nil
}

// ScrollTo implements worker.Page.
func (t *Tab) ScrollTo(ctx context.Context, x, y int) (int, int, error) {
	res, err := t.eval(ctx, jsScrollTo, x, y)
	if err != nil {
		return 0, 0, err
	}
	return res.Value.Get("x").Int(), res.Value.Get("y").Int(), nil
}

// Document implements worker.Page.
func (t *Tab) Document(ctx context.Context) (worker.Document, error) {
	res, err := t.eval(ctx, jsDocument)
	if err != nil {
		return worker.Document{}, err
	}
	return worker.Document{
		URL:   res.Value.Get("url").Str(),
		Title: res.Value.Get("title").Str(),
		HTML:  res.Value.Get("html").Str(),
	}, nil
}

// CaptureVisible implements capture.Primitive: a PNG of the viewport as
// it is currently painted.
func (t *Tab) CaptureVisible(ctx context.Context) ([]byte, error) {
	data, err := t.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: capture viewport: %w", err)
	}
	return data, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
		t.router = nil
	}
	if t.page != nil {
		err := t.page.Close()
		t.page = nil
		return err
	}
	return nil
}
