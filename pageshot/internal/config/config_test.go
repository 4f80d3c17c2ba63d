package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Browser.Mode != "headless" {
		t.Errorf("mode: got %q", cfg.Browser.Mode)
	}
	if !cfg.Browser.StealthEnabled() {
		t.Error("stealth should default to on")
	}
	if cfg.Capture.SettleDelay != 500*time.Millisecond {
		t.Errorf("settle delay: got %v", cfg.Capture.SettleDelay)
	}
	if cfg.Capture.DefaultViewportHeight != 600 {
		t.Errorf("default viewport: got %d", cfg.Capture.DefaultViewportHeight)
	}
	if cfg.Capture.RateLimit != 2 || cfg.Capture.MaxRetries != 0 {
		t.Errorf("rate limit/retries: got %d/%d", cfg.Capture.RateLimit, cfg.Capture.MaxRetries)
	}
	if cfg.Capture.Width != 0 {
		t.Errorf("width: got %d, want 0 (page width)", cfg.Capture.Width)
	}
	if cfg.Capture.Format != "png" {
		t.Errorf("format: got %q", cfg.Capture.Format)
	}
	if cfg.HTTP.Addr != ":8420" {
		t.Errorf("addr: got %q", cfg.HTTP.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	yml := `
browser:
  remote: ws://chrome:9222/devtools/browser/abc
  stealth: false
  viewport_width: 1440
capture:
  width: 1024
  settle_delay: 750ms
  restore_scroll: true
  max_retries: 2
  format: jpeg
  content: true
store:
  path: /var/lib/pageshot/captures.db
sinks:
  - type: stdout
  - type: webhook
    url: https://hooks.example.com/pageshot
    image: true
`
	path := filepath.Join(t.TempDir(), "pageshot.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Browser.StealthEnabled() {
		t.Error("stealth: got on, want off")
	}
	if cfg.Browser.ViewportWidth != 1440 || cfg.Browser.ViewportHeight != 800 {
		t.Errorf("viewport: got %dx%d", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
	}
	if cfg.Capture.SettleDelay != 750*time.Millisecond {
		t.Errorf("settle delay: got %v", cfg.Capture.SettleDelay)
	}
	if cfg.Capture.MaxRetries != 2 {
		t.Errorf("max retries: got %d", cfg.Capture.MaxRetries)
	}
	if cfg.Capture.Width != 1024 || cfg.Capture.Format != "jpeg" || !cfg.Capture.Content || !cfg.Capture.RestoreScroll {
		t.Errorf("capture: got %+v", cfg.Capture)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].Retries != 3 || !cfg.Sinks[1].Image {
		t.Errorf("sinks: got %+v", cfg.Sinks)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"mode":        "browser: {mode: windowed}",
		"format":      "capture: {format: gif}",
		"sink type":   "sinks: [{type: nats}]",
		"webhook url": "sinks: [{type: webhook}]",
		"dir":         "sinks: [{type: dir}]",
		"width":       "capture: {width: -5}",
		"yaml":        "capture: [",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), "config:") {
				t.Errorf("error prefix: %v", err)
			}
		})
	}
}
