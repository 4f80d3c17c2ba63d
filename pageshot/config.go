package pageshot

import (
	"github.com/hazyhaar/pageshot/pageshot/internal/config"
)

// Config is the top-level pageshot configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome and its tabs.
type BrowserConfig = config.BrowserConfig

// CaptureConfig tunes the capture pipeline.
type CaptureConfig = config.CaptureConfig

// StoreConfig locates the capture database.
type StoreConfig = config.StoreConfig

// HTTPConfig controls the HTTP API.
type HTTPConfig = config.HTTPConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}
