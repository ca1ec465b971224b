// CLAUDE:SUMMARY Editor configuration: YAML file with store, content source, surface, assist, snap, autosave, sinks and key bindings, plus defaults.
package editor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/canvas/geom"
	"github.com/hazyhaar/canvas/interact"
	"github.com/hazyhaar/canvas/surface/rodsurface"
)

// Config is the top-level editor configuration.
type Config struct {
	Listen   string                       `yaml:"listen"`
	Store    StoreConfig                  `yaml:"store"`
	Source   SourceConfig                 `yaml:"source"`
	Surface  SurfaceConfig                `yaml:"surface"`
	Assist   AssistConfig                 `yaml:"assist"`
	Snap     geom.SnapConfig              `yaml:"snap"`
	Autosave time.Duration                `yaml:"autosave"`
	Sinks    []SinkConfig                 `yaml:"sinks"`
	Keymap   map[interact.Action][]string `yaml:"keymap"`
}

// StoreConfig locates the SQLite database holding sessions and documents.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SourceConfig selects the content source. An empty BaseURL serves
// documents imported into the local store.
type SourceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	Retries        int           `yaml:"retries"`
	AllowPrivate   bool          `yaml:"allow_private"`
	MappingTimeout time.Duration `yaml:"mapping_timeout"`
}

// SurfaceConfig selects where documents are rendered.
type SurfaceConfig struct {
	Kind           string                   `yaml:"kind"` // memory | browser
	ViewportWidth  float64                  `yaml:"viewport_width"`
	ViewportHeight float64                  `yaml:"viewport_height"`
	Browser        rodsurface.BrowserConfig `yaml:"browser"`
}

// AssistConfig configures the generative assist service. An empty
// Endpoint disables assist.
type AssistConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Token        string        `yaml:"token"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	OutlineLimit int           `yaml:"outline_limit"`
	AllowPrivate bool          `yaml:"allow_private"`
	// RateLimit caps assist and unlock calls per client per minute over
	// HTTP. 0 disables the limit.
	RateLimit int `yaml:"rate_limit"`
}

// SinkConfig defines an output backend for render batches.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

const (
	SurfaceMemory  = "memory"
	SurfaceBrowser = "browser"
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var c Config
	c.applyDefaults()
	return c
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("editor: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("editor: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration values that cannot work.
func (c Config) Validate() error {
	switch c.Surface.Kind {
	case SurfaceMemory, SurfaceBrowser:
	default:
		return fmt.Errorf("editor: unknown surface kind %q", c.Surface.Kind)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("editor: sink %d: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("editor: sink %d: unknown type %q", i, s.Type)
		}
	}
	if c.Snap.Threshold < 0 || c.Snap.Grid < 0 || c.Snap.GridThreshold < 0 {
		return fmt.Errorf("editor: snap values must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8090"
	}
	if c.Store.Path == "" {
		c.Store.Path = "canvas.db"
	}
	if c.Source.Retries <= 0 {
		c.Source.Retries = 2
	}
	if c.Source.MappingTimeout <= 0 {
		c.Source.MappingTimeout = 30 * time.Second
	}
	if c.Surface.Kind == "" {
		c.Surface.Kind = SurfaceMemory
	}
	if c.Surface.ViewportWidth <= 0 {
		c.Surface.ViewportWidth = 1280
	}
	if c.Surface.ViewportHeight <= 0 {
		c.Surface.ViewportHeight = 800
	}
	if c.Assist.Timeout <= 0 {
		c.Assist.Timeout = 120 * time.Second
	}
	if c.Assist.OutlineLimit <= 0 {
		c.Assist.OutlineLimit = 16 << 10
	}
	if c.Snap == (geom.SnapConfig{}) {
		c.Snap = geom.DefaultSnapConfig()
	}
	if c.Autosave <= 0 {
		c.Autosave = 250 * time.Millisecond
	}
}
