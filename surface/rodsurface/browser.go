// CLAUDE:SUMMARY Chrome lifecycle for the browser surface: local launch or remote connect, stealth pages, cleanup.
package rodsurface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the Chrome instance behind a surface.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty = launch a local headless Chrome.
	RemoteURL string `yaml:"remote_url"`
	// Bin overrides the Chrome binary path for local launches.
	Bin string `yaml:"bin"`
	// Headful shows the browser window (local launches only).
	Headful bool `yaml:"headful"`
	// Stealth applies go-rod/stealth evasions to new pages.
	Stealth bool `yaml:"stealth"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *BrowserConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser owns a Chrome process (or a remote connection) and opens pages.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser creates a Browser. Call Start before opening pages.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Start launches Chrome or connects to the remote instance.
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("rodsurface: browser is closed")
	}
	if b.browser != nil {
		return nil
	}

	log := b.cfg.Logger
	wsURL := b.cfg.RemoteURL
	if wsURL != "" {
		log.Info("rodsurface: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(!b.cfg.Headful)
		if b.cfg.Bin != "" {
			l = l.Bin(b.cfg.Bin)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("rodsurface: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("rodsurface: launched local chrome", "url", wsURL, "headful", b.cfg.Headful)
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		b.cleanup()
		return fmt.Errorf("rodsurface: connect: %w", err)
	}
	b.browser = br
	return nil
}

// NewPage opens a blank tab, with stealth evasions when configured.
func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	br := b.browser
	b.mu.Unlock()
	if br == nil {
		return nil, fmt.Errorf("rodsurface: browser not started")
	}

	var (
		page *rod.Page
		err  error
	)
	if b.cfg.Stealth {
		page, err = stealth.Page(br)
	} else {
		page, err = br.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("rodsurface: create tab: %w", err)
	}
	return page.Context(ctx), nil
}

// Close shuts Chrome down.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cleanup()
	return nil
}

func (b *Browser) cleanup() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.cfg.Logger.Warn("rodsurface: close browser", "error", err)
		}
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}
