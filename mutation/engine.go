package mutation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/idgen"
	"github.com/hazyhaar/canvas/registry"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
)

// Engine renders scene states into a surface. It is the renderer the
// command bus calls after every state change.
type Engine struct {
	surface  surface.Surface
	registry *registry.Registry
	sinks    *Router
	logger   *slog.Logger
	newID    idgen.Generator
	docID    string

	mu   sync.Mutex
	bp   scene.Breakpoint
	seq  uint64
	last Batch
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSink adds a sink that receives every rendered batch.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sinks.Add(s) }
}

// WithDocumentID stamps batches with the document id.
func WithDocumentID(id string) Option {
	return func(e *Engine) { e.docID = id }
}

// WithBreakpoint sets the initial breakpoint. Default: desktop.
func WithBreakpoint(bp scene.Breakpoint) Option {
	return func(e *Engine) { e.bp = bp }
}

// WithIDGenerator replaces the batch id generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine creates an engine rendering into s and resolving flow nodes
// through reg.
func NewEngine(s surface.Surface, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		surface:  s,
		registry: reg,
		logger:   slog.Default(),
		newID:    idgen.Default,
		bp:       scene.Desktop,
	}
	e.sinks = NewRouter(nil)
	for _, o := range opts {
		o(e)
	}
	e.sinks.logger = e.logger
	return e
}

// Breakpoint returns the breakpoint the engine renders at.
func (e *Engine) Breakpoint() scene.Breakpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bp
}

// SetBreakpoint changes the rendered breakpoint. The next Render uses it.
func (e *Engine) SetBreakpoint(bp scene.Breakpoint) {
	if !bp.Valid() {
		return
	}
	e.mu.Lock()
	e.bp = bp
	e.mu.Unlock()
}

// Last returns the most recently rendered batch.
func (e *Engine) Last() Batch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Render brings the surface in line with sc. The scene is read during the
// call only. Sink failures are logged; apply failures are returned.
func (e *Engine) Render(ctx context.Context, sc *scene.Scene) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var known []string
	if e.registry != nil {
		e.registry.Prune(ctx)
		known = e.registry.IDs()
	}
	records := Compile(sc.Sorted(), e.bp, known)

	var lookup Lookup
	if e.registry != nil {
		lookup = e.registry
	}
	changes, err := Apply(ctx, e.surface, lookup, records, e.logger)

	e.seq++
	batch := Batch{
		ID:         e.newID(),
		DocumentID: e.docID,
		Seq:        e.seq,
		Breakpoint: e.bp,
		Records:    records,
		Changes:    changes,
		Timestamp:  time.Now().UnixMilli(),
	}
	e.last = batch

	if err != nil {
		e.logger.Warn("mutation: apply failed", "document_id", e.docID, "seq", e.seq, "changes", changes, "error", err)
	} else {
		e.logger.Debug("mutation: rendered", "document_id", e.docID, "seq", e.seq, "records", len(records), "changes", changes)
	}
	if sendErr := e.sinks.Send(ctx, batch); sendErr != nil {
		e.logger.Warn("mutation: sink failed", "seq", e.seq, "error", sendErr)
	}
	return err
}

// Close closes every sink.
func (e *Engine) Close() error {
	return e.sinks.Close()
}
