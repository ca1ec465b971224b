// CLAUDE:SUMMARY Command bus owning scene state, linear undo/redo history with checkpointed replay, and debounced persistence.
// Package bus is the source of truth of an editing session. Every change
// goes through Dispatch as a scene.Command; undo and redo rebuild state by
// forward replay from the nearest checkpoint; the session record is
// persisted through a Persister with a debounced autosave.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/scene"
)

// Renderer is notified after every state change. The scene is only valid
// for the duration of the call.
type Renderer interface {
	Render(ctx context.Context, sc *scene.Scene) error
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(ctx context.Context, sc *scene.Scene) error

func (f RenderFunc) Render(ctx context.Context, sc *scene.Scene) error { return f(ctx, sc) }

// Persister stores serialized session records. *store.Store satisfies it.
// LoadSession returns (nil, nil) when no record exists.
type Persister interface {
	SaveSession(ctx context.Context, key string, data []byte) error
	LoadSession(ctx context.Context, key string) ([]byte, error)
}

// DefaultCheckpointInterval is the number of commands between checkpoints.
const DefaultCheckpointInterval = 64

// DefaultAutosaveWindow is the autosave debounce window.
const DefaultAutosaveWindow = 250 * time.Millisecond

// Bus is safe for concurrent use. Mutations are serialized; rendering
// happens under the lock so the surface always reflects a committed state.
type Bus struct {
	logger    *slog.Logger
	renderer  Renderer
	persister Persister
	key       string
	window    time.Duration
	interval  int
	onWarning func(error)
	now       func() time.Time

	mu      sync.Mutex
	sc      *scene.Scene
	hist    *history
	version uint64
	saved   uint64
	closed  bool

	saveMu sync.Mutex
	auto   *autosaver
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// WithRenderer sets the renderer notified after every state change.
func WithRenderer(r Renderer) Option {
	return func(b *Bus) { b.renderer = r }
}

// WithPersister enables Save, Load and autosave under key.
func WithPersister(p Persister, key string) Option {
	return func(b *Bus) { b.persister, b.key = p, key }
}

// WithCheckpointInterval sets how many commands separate two checkpoints.
// n <= 0 disables checkpoints; undo then replays from empty.
func WithCheckpointInterval(n int) Option {
	return func(b *Bus) { b.interval = n }
}

// WithAutosave sets the debounce window. 0 disables autosave.
func WithAutosave(window time.Duration) Option {
	return func(b *Bus) { b.window = window }
}

// WithWarningHandler receives non-fatal errors such as failed autosaves.
func WithWarningHandler(fn func(error)) Option {
	return func(b *Bus) { b.onWarning = fn }
}

// WithClock replaces the clock used to stamp hydration and queued batches.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		logger:   slog.Default(),
		window:   DefaultAutosaveWindow,
		interval: DefaultCheckpointInterval,
		now:      time.Now,
		sc:       scene.New(),
	}
	for _, o := range opts {
		o(b)
	}
	b.hist = newHistory(b.interval)
	if b.persister != nil && b.window > 0 {
		b.auto = newAutosaver(b.window, b.autosave)
		go b.auto.run()
	}
	return b
}

// Dispatch validates cmd, applies it, appends it to history (dropping any
// redo suffix) and renders. Invalid commands return *scene.ValidationError
// and leave the session unchanged.
func (b *Bus) Dispatch(ctx context.Context, cmd scene.Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.sc.Apply(cmd); err != nil {
		return err
	}
	b.hist.push(cmd, b.sc)
	b.changed(ctx)
	b.logger.Debug("bus: dispatched", "type", cmd.Type, "source", cmd.Context.Source, "index", b.hist.current)
	return nil
}

// Hydrate inserts elements as a single hydration batch.
func (b *Bus) Hydrate(ctx context.Context, elements []scene.Element) error {
	if len(elements) == 0 {
		return nil
	}
	sctx := scene.Context{
		Timestamp:   b.now().UnixMilli(),
		Source:      scene.SourceHydration,
		Description: "hydrate from markup",
	}
	cmds := make([]scene.Command, len(elements))
	for i, el := range elements {
		cmds[i] = scene.Insert(el, sctx)
	}
	return b.Dispatch(ctx, scene.Batch(cmds, sctx))
}

// CanUndo reports whether Undo would succeed.
func (b *Bus) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hist.canUndo()
}

// CanRedo reports whether Redo would succeed.
func (b *Bus) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hist.canRedo()
}

// Undo steps back one command.
func (b *Bus) Undo(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if !b.hist.canUndo() {
		return ErrNothingToUndo
	}
	sc, err := b.hist.stateAt(b.hist.current - 1)
	if err != nil {
		return err
	}
	b.sc = sc
	b.hist.current--
	b.changed(ctx)
	return nil
}

// Redo re-applies the next command.
func (b *Bus) Redo(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if !b.hist.canRedo() {
		return ErrNothingToRedo
	}
	next := b.hist.current + 1
	if err := b.sc.Apply(b.hist.commands[next]); err != nil {
		sc, rerr := b.hist.stateAt(next)
		if rerr != nil {
			return rerr
		}
		b.sc = sc
	}
	b.hist.current = next
	b.hist.maybeCheckpoint(b.sc)
	b.changed(ctx)
	return nil
}

// Refresh renders the current state again, e.g. after a breakpoint change.
func (b *Bus) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.renderer == nil {
		return nil
	}
	return b.renderer.Render(ctx, b.sc)
}

// changed renders and schedules an autosave. Caller holds mu.
func (b *Bus) changed(ctx context.Context) {
	b.version++
	if b.renderer != nil {
		if err := b.renderer.Render(ctx, b.sc); err != nil {
			b.logger.Warn("bus: render failed", "index", b.hist.current, "error", err)
		}
	}
	if b.auto != nil {
		b.auto.kick()
	}
}

func (b *Bus) warn(err error) {
	b.logger.Warn("bus: warning", "key", b.key, "error", err)
	if b.onWarning != nil {
		b.onWarning(err)
	}
}

// Get returns a copy of one element.
func (b *Bus) Get(id string) (scene.Element, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sc.Get(id)
}

// Elements returns a deep copy of the element map.
func (b *Bus) Elements() map[string]scene.Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sc.Elements()
}

// Scene returns an independent copy of the current scene.
func (b *Bus) Scene() *scene.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sc.Clone()
}

// Stats is a point-in-time summary of the session.
type Stats struct {
	CurrentIndex int  `json:"currentIndex"`
	HistoryLen   int  `json:"historyLen"`
	Elements     int  `json:"elements"`
	Checkpoints  int  `json:"checkpoints"`
	CanUndo      bool `json:"canUndo"`
	CanRedo      bool `json:"canRedo"`
	Dirty        bool `json:"dirty"`
}

// Stats returns the current counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		CurrentIndex: b.hist.current,
		HistoryLen:   len(b.hist.commands),
		Elements:     b.sc.Len(),
		Checkpoints:  len(b.hist.checkpoints),
		CanUndo:      b.hist.canUndo(),
		CanRedo:      b.hist.canRedo(),
		Dirty:        b.version != b.saved,
	}
}

// Entry describes one history command for listings.
type Entry struct {
	Index       int               `json:"index"`
	Type        scene.CommandType `json:"type"`
	Source      scene.Source      `json:"source"`
	Description string            `json:"description,omitempty"`
	Timestamp   int64             `json:"timestamp"`
	Commands    int               `json:"commands"`
	Targets     []string          `json:"targets,omitempty"`
	Applied     bool              `json:"applied"`
}

// History lists the command log. Entries past the current index are the
// redo stack.
func (b *Bus) History() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.hist.commands))
	for i, c := range b.hist.commands {
		out[i] = Entry{
			Index:       i,
			Type:        c.Type,
			Source:      c.Context.Source,
			Description: c.Context.Description,
			Timestamp:   c.Context.Timestamp,
			Commands:    c.Len(),
			Targets:     c.Targets(),
			Applied:     i <= b.hist.current,
		}
	}
	return out
}

// Close stops autosave and flushes unsaved changes. Later mutations fail
// with ErrClosed.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	dirty := b.version != b.saved
	b.mu.Unlock()

	if b.auto != nil {
		b.auto.stop()
	}
	if b.persister != nil && dirty {
		return b.Save(ctx)
	}
	return nil
}
