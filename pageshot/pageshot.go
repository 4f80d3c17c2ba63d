// CLAUDE:SUMMARY Capture service: opens a tab per request, runs the orchestrator over a worker pipe, encodes, stores and delivers.
// Package pageshot takes full-page screenshots of web pages.
//
// A capture opens the page in a Chrome tab, measures it, scrolls through it
// one viewport at a time, captures each viewport and stitches the tiles
// into a single image. The tab side (layout, scrolling) and the capturing
// side only talk through a request/response pipe, so either can be
// replaced without touching the other.
//
// Results are encoded (PNG, JPEG or PDF), stored in SQLite when a store is
// configured, and delivered to sinks (stdout, directory, webhook,
// callback). The service is usable as a Go API, over HTTP (Routes) and as
// MCP tools (RegisterMCP).
package pageshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/pageshot/idgen"
	"github.com/hazyhaar/pageshot/kit"
	"github.com/hazyhaar/pageshot/pageshot/internal/browser"
	"github.com/hazyhaar/pageshot/pageshot/internal/capture"
	"github.com/hazyhaar/pageshot/pageshot/internal/compositor"
	"github.com/hazyhaar/pageshot/pageshot/internal/config"
	"github.com/hazyhaar/pageshot/pageshot/internal/content"
	"github.com/hazyhaar/pageshot/pageshot/internal/export"
	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
	"github.com/hazyhaar/pageshot/pageshot/internal/session"
	"github.com/hazyhaar/pageshot/pageshot/internal/sink"
	"github.com/hazyhaar/pageshot/pageshot/internal/store"
	"github.com/hazyhaar/pageshot/pageshot/internal/worker"
	"github.com/hazyhaar/pageshot/safeurl"
	"github.com/hazyhaar/pageshot/shield"
)

// ErrBusy is returned when a capture is requested while another runs.
var ErrBusy = session.ErrBusy

// ErrNoStore is returned by lookups when no store is configured.
var ErrNoStore = errors.New("pageshot: no store configured")

// Tab is an open page: the worker side of a capture plus the viewport
// capture primitive.
type Tab interface {
	worker.Page
	capture.Primitive
	Close() error
}

// Opener opens a tab on a URL.
type Opener func(ctx context.Context, url string) (Tab, error)

// Record is the metadata of a stored capture.
type Record = store.Record

// Event is one logged capture attempt.
type Event = store.Event

// Progress is a snapshot of the running capture.
type Progress = session.Progress

// Result is a finished capture: its record and the encoded image.
type Result struct {
	*Record
	Image []byte `json:"-"`
}

// Service runs captures. Create one per process.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	mgr    *browser.Manager
	open   Opener
	store  *store.Store
	sinks  *sink.Router
	extra  []sink.Sink
	enc    export.Encoder
	format export.Format
	md     *content.Converter
	guard  safeurl.Guard

	newCaptureID idgen.Generator
	newEventID   idgen.Generator

	sem     chan struct{}
	mu      sync.Mutex
	current *session.Orchestrator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOpener replaces the Chrome-backed tab opener. No browser is started.
func WithOpener(o Opener) Option {
	return func(s *Service) { s.open = o }
}

// WithResolver replaces the DNS resolver used to vet capture URLs.
func WithResolver(r safeurl.Resolver) Option {
	return func(s *Service) { s.guard.Resolver = r }
}

// WithSinks adds sinks to those built from cfg.Sinks.
func WithSinks(sinks ...sink.Sink) Option {
	return func(s *Service) { s.extra = append(s.extra, sinks...) }
}

// New creates a Service. A nil cfg uses the defaults.
func New(cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	format, err := export.ParseFormat(cfg.Capture.Format)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:          cfg,
		logger:       slog.Default(),
		enc:          export.Encoder{JPEGQuality: cfg.Capture.JPEGQuality},
		format:       format,
		md:           content.NewConverter(),
		newCaptureID: idgen.Prefixed("cap_", idgen.UUIDv7()),
		newEventID:   idgen.Prefixed("ev_", idgen.UUIDv7()),
		sem:          make(chan struct{}, 1),
	}
	s.guard.AllowPrivate = cfg.Capture.AllowPrivate
	for _, o := range opts {
		o(s)
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("pageshot: open store: %w", err)
		}
		s.store = st
	}

	built, err := buildSinks(cfg.Sinks, s.logger)
	if err != nil {
		s.closeStore()
		return nil, err
	}
	s.sinks = sink.NewRouter(s.logger, append(built, s.extra...)...)

	if s.open == nil {
		s.mgr = browser.NewManager(browserConfig(cfg.Browser, s.logger))
		s.open = func(ctx context.Context, url string) (Tab, error) {
			t, err := browser.OpenTab(ctx, s.mgr, url)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	return s, nil
}

func browserConfig(b config.BrowserConfig, logger *slog.Logger) browser.Config {
	mode := browser.ModeHeadless
	if b.Mode == "headful" {
		mode = browser.ModeHeadful
	}
	return browser.Config{
		RemoteURL:         b.Remote,
		Bin:               b.Bin,
		Mode:              mode,
		Stealth:           b.StealthEnabled(),
		ViewportWidth:     b.ViewportWidth,
		ViewportHeight:    b.ViewportHeight,
		DeviceScale:       b.DeviceScale,
		NavigationTimeout: b.NavigationTimeout,
		ResourceBlocking:  b.ResourceBlocking,
		XvfbDisplay:       b.XvfbDisplay,
		Logger:            logger,
	}
}

// Start launches the browser. It is a no-op with a custom Opener.
func (s *Service) Start(ctx context.Context) error {
	if s.mgr == nil {
		return nil
	}
	if _, err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("pageshot: start browser: %w", err)
	}
	return nil
}

// Close stops the browser and closes sinks and the store.
func (s *Service) Close() error {
	var errs []error
	if s.mgr != nil {
		errs = append(errs, s.mgr.Close())
	}
	errs = append(errs, s.sinks.Close())
	errs = append(errs, s.closeStore())
	return errors.Join(errs...)
}

func (s *Service) closeStore() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Progress reports the running capture, or Idle.
func (s *Service) Progress() Progress {
	s.mu.Lock()
	o := s.current
	s.mu.Unlock()
	if o == nil {
		return Progress{State: session.Idle}
	}
	return o.Progress()
}

// Capture takes a full-page screenshot of url. Only one capture runs at a
// time; a concurrent request fails with ErrBusy. URLs refused by the
// guard fail with an error wrapping safeurl.ErrRejected.
func (s *Service) Capture(ctx context.Context, url string) (*Result, error) {
	if url == "" {
		return nil, errors.New("pageshot: url is required")
	}
	u, err := s.guard.Check(ctx, url)
	if err != nil {
		return nil, err
	}
	url = u.String()
	select {
	case s.sem <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-s.sem }()

	log := s.logger
	if l, ok := ctx.Value(shield.LoggerKey).(*slog.Logger); ok {
		log = l
	} else if id := kit.GetTraceID(ctx); id != "" {
		log = log.With("trace_id", id)
	}
	log = log.With("url", url, "transport", kit.GetTransport(ctx))

	if d := s.cfg.Capture.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	res, err := s.capture(ctx, url, log)
	ev := &store.Event{
		ID:         s.newEventID(),
		URL:        url,
		Action:     "capture",
		Success:    err == nil,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		ev.Error = err.Error()
		log.Warn("pageshot: capture failed", "error", err)
	} else {
		ev.CaptureID = res.ID
	}
	s.logEvent(ev, log)
	if err != nil {
		return nil, err
	}

	if s.sinks.Len() > 0 {
		if derr := s.sinks.Deliver(ctx, toSinkCapture(res)); derr != nil {
			log.Warn("pageshot: sink delivery incomplete", "capture_id", res.ID, "error", derr)
		}
	}
	log.Info("pageshot: capture stored",
		"capture_id", res.ID,
		"width", res.Width,
		"height", res.Height,
		"tiles", res.Tiles,
		"bytes", res.Size,
		"elapsed_ms", res.ElapsedMs)
	return res, nil
}

func (s *Service) capture(ctx context.Context, url string, log *slog.Logger) (*Result, error) {
	tab, err := s.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tab.Close(); err != nil {
			log.Debug("pageshot: close tab", "error", err)
		}
	}()

	pipe := protocol.NewPipe()
	wctx, stopWorker := context.WithCancel(ctx)
	defer func() {
		stopWorker()
		pipe.Close()
	}()
	cc := s.cfg.Capture
	adapter := capture.NewAdapter(
		capture.NewPacer(tab, cc.RateLimit),
		capture.WithRetry(max(0, cc.MaxRetries), cc.RetryBackoff),
		capture.WithLogger(log),
	)
	w := worker.New(tab, log)
	w.Handle(protocol.ActionCaptureTab, adapter.Handle)
	if err := w.Attach(wctx, pipe); err != nil {
		return nil, err
	}

	orch := session.New(pipe, capture.NewRemote(pipe), compositor.New(), session.Config{
		CaptureWidth:          cc.Width,
		SettleDelay:           cc.SettleDelay,
		DefaultViewportHeight: cc.DefaultViewportHeight,
		RestoreScroll:         cc.RestoreScroll,
		Logger:                log,
	})
	s.mu.Lock()
	s.current = orch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
	}()

	out, err := orch.Capture(ctx)
	if err != nil {
		return nil, err
	}

	rec := &store.Record{
		ID:             s.newCaptureID(),
		URL:            url,
		Width:          out.Width,
		Height:         out.Geometry.TotalHeight,
		ViewportHeight: out.Geometry.ViewportHeight,
		Tiles:          out.Tiles,
		Format:         string(s.format),
		ElapsedMs:      out.Elapsed.Milliseconds(),
	}
	s.describe(ctx, pipe, rec, log)

	data, mime, err := s.enc.Encode(out.Image, s.format)
	if err != nil {
		return nil, err
	}
	rec.MIME = mime
	rec.Digest = store.Digest(data)
	rec.Size = len(data)
	rec.CreatedAt = time.Now().UnixMilli()

	if s.store != nil {
		if err := s.store.InsertCapture(ctx, rec, data); err != nil {
			return nil, fmt.Errorf("pageshot: store capture: %w", err)
		}
	}
	return &Result{Record: rec, Image: data}, nil
}

// describe fills title, content inventory and Markdown. Failures only cost
// the description, never the capture.
func (s *Service) describe(ctx context.Context, conn protocol.Caller, rec *store.Record, log *slog.Logger) {
	doc, err := conn.Call(ctx, protocol.Request{Action: protocol.ActionGetDocument})
	if err != nil {
		log.Debug("pageshot: document unavailable", "error", err)
	} else {
		rec.Title = doc.Title
	}

	if s.cfg.Capture.Content {
		resp, err := conn.Call(ctx, protocol.Request{Action: protocol.ActionGetWebpageContent})
		if err != nil {
			log.Warn("pageshot: content inventory failed", "error", err)
		} else {
			rec.Content = resp.Content
		}
	}
	if s.cfg.Capture.Markdown && doc.HTML != "" {
		md, err := s.md.Markdown(doc.HTML)
		if err != nil {
			log.Warn("pageshot: markdown failed", "error", err)
		} else {
			rec.Markdown = md
		}
	}
}

func (s *Service) logEvent(ev *store.Event, log *slog.Logger) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.LogEvent(ctx, ev); err != nil {
		log.Warn("pageshot: log event failed", "error", err)
	}
}

func toSinkCapture(r *Result) sink.Capture {
	return sink.Capture{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Width:     r.Width,
		Height:    r.Height,
		Tiles:     r.Tiles,
		Format:    r.Format,
		MIME:      r.MIME,
		Digest:    r.Digest,
		CreatedAt: r.CreatedAt,
		Content:   r.Content,
		Image:     r.Image,
	}
}

// Get returns the stored record id, or nil.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.GetCapture(ctx, id)
}

// Image returns the stored image of capture id and its media type; nil
// data when there is no such capture.
func (s *Service) Image(ctx context.Context, id string) ([]byte, string, error) {
	if s.store == nil {
		return nil, "", ErrNoStore
	}
	return s.store.GetImage(ctx, id)
}

// List returns the latest captures, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListCaptures(ctx, limit)
}

// Delete removes capture id and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if s.store == nil {
		return false, ErrNoStore
	}
	return s.store.DeleteCapture(ctx, id)
}

// Events returns the latest capture attempts, newest first.
func (s *Service) Events(ctx context.Context, limit int) ([]*Event, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.RecentEvents(ctx, limit)
}
