// CLAUDE:SUMMARY Session manager: builds the content source, assist client and surfaces from config, opens documents (restore or hydrate) and closes them.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/assist"
	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/contentsource"
	"github.com/hazyhaar/canvas/ingest"
	"github.com/hazyhaar/canvas/interact"
	"github.com/hazyhaar/canvas/mutation"
	"github.com/hazyhaar/canvas/registry"
	"github.com/hazyhaar/canvas/store"
	"github.com/hazyhaar/canvas/surface"
	"github.com/hazyhaar/canvas/surface/memsurface"
	"github.com/hazyhaar/canvas/surface/rodsurface"
)

// SurfaceFactory creates the surface a document renders into. release is
// called when the session closes and may be nil.
type SurfaceFactory func(ctx context.Context, documentID string) (s surface.Surface, release func() error, err error)

// Manager owns the open sessions of one editor process.
type Manager struct {
	cfg       Config
	store     *store.Store
	source    contentsource.Source
	pipeline  *ingest.Pipeline
	generator assist.Generator
	keymap    *interact.Keymap
	surfaces  SurfaceFactory
	browser   *rodsurface.Browser
	onBatch   []mutation.BatchFunc
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSource replaces the content source built from the configuration.
func WithSource(src contentsource.Source) Option {
	return func(m *Manager) { m.source = src }
}

// WithGenerator replaces the assist client built from the configuration.
func WithGenerator(g assist.Generator) Option {
	return func(m *Manager) { m.generator = g }
}

// WithSurfaceFactory replaces the surface selected by the configuration.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(m *Manager) { m.surfaces = f }
}

// WithBatchHandler receives every render batch of every session.
func WithBatchHandler(fn mutation.BatchFunc) Option {
	return func(m *Manager) { m.onBatch = append(m.onBatch, fn) }
}

// WithLogger sets the manager logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock replaces time.Now for command timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a manager from cfg. st may be nil, in which case
// sessions are not persisted and a content source must be configured.
func NewManager(cfg Config, st *store.Store, opts ...Option) (*Manager, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:      cfg,
		store:    st,
		logger:   slog.Default(),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(m)
	}

	m.keymap = interact.DefaultKeymap()
	if err := m.keymap.Apply(cfg.Keymap); err != nil {
		return nil, fmt.Errorf("editor: keymap: %w", err)
	}

	if m.source == nil {
		src, err := m.buildSource()
		if err != nil {
			return nil, err
		}
		m.source = src
	}
	if m.generator == nil && cfg.Assist.Endpoint != "" {
		g, err := m.buildAssist()
		if err != nil {
			return nil, err
		}
		m.generator = g
	}
	if m.surfaces == nil {
		switch cfg.Surface.Kind {
		case SurfaceBrowser:
			m.surfaces = m.browserSurface
		default:
			m.surfaces = m.memorySurface
		}
	}
	m.pipeline = ingest.New(m.source,
		ingest.WithLogger(m.logger),
		ingest.WithMappingTimeout(cfg.Source.MappingTimeout),
	)
	return m, nil
}

func (m *Manager) buildSource() (contentsource.Source, error) {
	sc := m.cfg.Source
	if sc.BaseURL == "" {
		if m.store == nil {
			return nil, fmt.Errorf("editor: no content source: set source.base_url or open a store")
		}
		return contentsource.NewLocal(m.store), nil
	}
	opts := []contentsource.HTTPOption{
		contentsource.WithRetries(sc.Retries),
		contentsource.WithLogger(m.logger),
	}
	if sc.Token != "" {
		opts = append(opts, contentsource.WithBearerToken(sc.Token))
	}
	if sc.AllowPrivate {
		opts = append(opts, contentsource.WithPrivateNetwork())
	}
	return contentsource.NewHTTP(sc.BaseURL, opts...)
}

func (m *Manager) buildAssist() (assist.Generator, error) {
	ac := m.cfg.Assist
	opts := []assist.ClientOption{
		assist.WithHTTPClient(&http.Client{Timeout: ac.Timeout}),
		assist.WithLogger(m.logger),
	}
	if ac.Token != "" {
		opts = append(opts, assist.WithToken(ac.Token))
	}
	if ac.Model != "" {
		opts = append(opts, assist.WithModel(ac.Model))
	}
	if ac.AllowPrivate {
		opts = append(opts, assist.WithPrivateNetwork())
	}
	return assist.NewClient(ac.Endpoint, opts...)
}

func (m *Manager) memorySurface(_ context.Context, _ string) (surface.Surface, func() error, error) {
	return memsurface.New(memsurface.WithViewport(m.cfg.Surface.ViewportWidth, m.cfg.Surface.ViewportHeight)), nil, nil
}

// browserSurface opens a tab per document on a shared Chrome. Caller holds mu.
func (m *Manager) browserSurface(ctx context.Context, _ string) (surface.Surface, func() error, error) {
	if m.browser == nil {
		bc := m.cfg.Surface.Browser
		bc.Logger = m.logger
		b := rodsurface.NewBrowser(bc)
		if err := b.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("editor: start browser: %w", err)
		}
		m.browser = b
	}
	s, err := rodsurface.Open(ctx, m.browser)
	if err != nil {
		return nil, nil, err
	}
	if err := s.SetViewport(ctx, m.cfg.Surface.ViewportWidth, m.cfg.Surface.ViewportHeight); err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, s.Close, nil
}

// SessionKey is the store key of a document's session record.
func SessionKey(documentID string) string {
	return "canvas:" + documentID
}

// Store returns the backing store, or nil.
func (m *Manager) Store() *store.Store { return m.store }

// Get returns an already open session.
func (m *Manager) Get(documentID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[documentID]
	return s, ok
}

// Open returns the session of documentID, opening it if needed. A new
// session mounts the sanitised document on a fresh surface, then restores
// the persisted history or, when there is none, hydrates the derived flow
// elements and reports their mappings to the content source.
func (m *Manager) Open(ctx context.Context, documentID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if s, ok := m.sessions[documentID]; ok {
		return s, nil
	}

	res, err := m.pipeline.Prepare(ctx, documentID)
	if err != nil {
		return nil, err
	}
	surf, release, err := m.surfaces(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("editor: open surface: %w", err)
	}
	fail := func(err error) (*Session, error) {
		if release != nil {
			release()
		}
		return nil, err
	}

	logger := m.logger.With("document_id", documentID)
	reg := registry.New(logger)
	if err := m.pipeline.Mount(ctx, res, surf, reg); err != nil {
		return fail(err)
	}

	s := &Session{
		documentID: documentID,
		surf:       surf,
		reg:        reg,
		pipeline:   m.pipeline,
		generator:  m.generator,
		outliner:   assist.NewOutliner(m.cfg.Assist.OutlineLimit),
		logger:     logger,
		now:        m.now,
		release:    release,
		markup:     res.Markup(),
	}

	engineOpts := []mutation.Option{
		mutation.WithLogger(logger),
		mutation.WithDocumentID(documentID),
	}
	for _, sc := range m.cfg.Sinks {
		switch sc.Type {
		case "stdout":
			engineOpts = append(engineOpts, mutation.WithSink(mutation.NewStdout(nil)))
		case "webhook":
			engineOpts = append(engineOpts, mutation.WithSink(mutation.NewWebhook(sc.URL, mutation.WithWebhookLogger(logger))))
		}
	}
	for _, fn := range m.onBatch {
		engineOpts = append(engineOpts, mutation.WithSink(mutation.NewCallback(fn)))
	}
	s.engine = mutation.NewEngine(surf, reg, engineOpts...)

	busOpts := []bus.Option{
		bus.WithLogger(logger),
		bus.WithRenderer(s.engine),
		bus.WithClock(m.now),
		bus.WithAutosave(m.cfg.Autosave),
		bus.WithWarningHandler(s.warn),
	}
	if m.store != nil {
		busOpts = append(busOpts, bus.WithPersister(m.store, SessionKey(documentID)))
	}
	s.bus = bus.New(busOpts...)

	if m.store != nil {
		ok, err := s.bus.Load(ctx)
		if err != nil {
			s.warn(err)
		}
		s.restored = ok
	}
	if !s.restored {
		if err := s.bus.Hydrate(ctx, res.Elements); err != nil {
			s.bus.Close(ctx)
			return fail(fmt.Errorf("editor: hydrate %s: %w", documentID, err))
		}
		m.pipeline.ReportMappings(documentID, res.Elements)
	}

	s.ctrl = interact.NewController(s,
		interact.WithKeymap(m.keymap),
		interact.WithSnapConfig(m.cfg.Snap),
		interact.WithLogger(logger),
		interact.WithClock(m.now),
		interact.WithBreakpointHandler(s.onBreakpoint),
	)
	if width, _, err := surf.Viewport(ctx); err == nil {
		s.ctrl.SetViewport(width)
	}

	m.sessions[documentID] = s
	logger.Info("editor: session opened",
		"restored", s.restored,
		"elements", s.bus.Stats().Elements,
		"breakpoint", s.ctrl.Breakpoint())
	return s, nil
}

// Sessions lists the open sessions sorted by document id.
func (m *Manager) Sessions() []Status {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	out := make([]Status, len(list))
	for i, s := range list {
		out[i] = s.Status()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

// CloseSession flushes and closes one session.
func (m *Manager) CloseSession(ctx context.Context, documentID string) error {
	m.mu.Lock()
	s, ok := m.sessions[documentID]
	delete(m.sessions, documentID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.close(ctx)
}

// Close flushes every session, waits for pending mapping reports and
// shuts the browser down.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for id, s := range sessions {
		if err := s.close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("editor: close %s: %w", id, err))
		}
	}
	m.pipeline.Wait()
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Import stores markup as a local document so it can be opened without
// an external content source.
func (m *Manager) Import(ctx context.Context, documentID, title, markup string) error {
	if m.store == nil {
		return ErrNoStore
	}
	if _, err := m.pipeline.PrepareMarkup(documentID, markup); err != nil {
		return err
	}
	return m.store.PutDocument(ctx, &store.Document{ID: documentID, Title: title, HTML: markup})
}
