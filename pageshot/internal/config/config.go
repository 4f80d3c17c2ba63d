// CLAUDE:SUMMARY Defines pageshot config structs and parses YAML configuration files with defaults.
// Package config handles pageshot configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pageshot/pageshot/internal/export"
)

// Config is the top-level pageshot configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Capture CaptureConfig `yaml:"capture"`
	Store   StoreConfig   `yaml:"store"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// BrowserConfig controls Chrome and its tabs.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Bin               string        `yaml:"bin"`
	Mode              string        `yaml:"mode"` // headless | headful
	Stealth           *bool         `yaml:"stealth"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	DeviceScale       float64       `yaml:"device_scale"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	XvfbDisplay       string        `yaml:"xvfb_display"`
}

// StealthEnabled reports whether stealth evasions are on (default true).
func (b BrowserConfig) StealthEnabled() bool {
	return b.Stealth == nil || *b.Stealth
}

// CaptureConfig tunes the capture pipeline.
type CaptureConfig struct {
	// Width fixes the composite width; 0 uses the page width.
	Width                 int           `yaml:"width"`
	SettleDelay           time.Duration `yaml:"settle_delay"`
	DefaultViewportHeight int           `yaml:"default_viewport_height"`
	RestoreScroll         bool          `yaml:"restore_scroll"`

	// AllowPrivate permits loopback and private-network targets.
	AllowPrivate bool `yaml:"allow_private"`

	// RateLimit is the maximum viewport captures per second.
	RateLimit int `yaml:"rate_limit"`
	// MaxRetries for rate-limited captures; 0 fails on the first rejection.
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	Format      string `yaml:"format"` // png | jpeg | pdf
	JPEGQuality int    `yaml:"jpeg_quality"`

	// Content collects the media/link inventory; Markdown stores a
	// Markdown rendition of the page.
	Content  bool `yaml:"content"`
	Markdown bool `yaml:"markdown"`

	// Timeout bounds one whole capture, navigation included.
	Timeout time.Duration `yaml:"timeout"`
}

// StoreConfig locates the capture database. An empty Path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig controls the HTTP API.
type HTTPConfig struct {
	Addr    string `yaml:"addr"`
	MaxBody int64  `yaml:"max_body"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | dir | webhook
	URL     string `yaml:"url"`  // webhook
	Dir     string `yaml:"dir"`  // dir
	Image   bool   `yaml:"image"`
	Retries int    `yaml:"retries"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 800
	}
	if c.Browser.DeviceScale <= 0 {
		c.Browser.DeviceScale = 1
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Capture.SettleDelay <= 0 {
		c.Capture.SettleDelay = 500 * time.Millisecond
	}
	if c.Capture.DefaultViewportHeight <= 0 {
		c.Capture.DefaultViewportHeight = 600
	}
	if c.Capture.RateLimit <= 0 {
		c.Capture.RateLimit = 2
	}
	if c.Capture.MaxRetries < 0 {
		c.Capture.MaxRetries = 0
	}
	if c.Capture.RetryBackoff <= 0 {
		c.Capture.RetryBackoff = 500 * time.Millisecond
	}
	if c.Capture.Format == "" {
		c.Capture.Format = string(export.PNG)
	}
	if c.Capture.JPEGQuality <= 0 {
		c.Capture.JPEGQuality = 90
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 2 * time.Minute
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8420"
	}
	if c.HTTP.MaxBody <= 0 {
		c.HTTP.MaxBody = 1 << 20
	}
	for i := range c.Sinks {
		if c.Sinks[i].Retries <= 0 {
			c.Sinks[i].Retries = 3
		}
	}
}

// Validate checks enumerated fields and required sink settings.
func (c *Config) Validate() error {
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode %q: want headless or headful", c.Browser.Mode)
	}
	if _, err := export.ParseFormat(c.Capture.Format); err != nil {
		return fmt.Errorf("config: capture.format: %w", err)
	}
	if c.Capture.Width < 0 {
		return fmt.Errorf("config: capture.width %d is negative", c.Capture.Width)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "dir":
			if s.Dir == "" {
				return fmt.Errorf("config: sinks[%d]: dir sink needs dir", i)
			}
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook sink needs url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
