// CLAUDE:SUMMARY Editor session: one document mounted on a surface with its command bus, mutation engine, registry and interaction controller.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/assist"
	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/ingest"
	"github.com/hazyhaar/canvas/interact"
	"github.com/hazyhaar/canvas/mutation"
	"github.com/hazyhaar/canvas/registry"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
)

// Session is an open document. Every entry point (HTTP, MCP, CLI) goes
// through the same bus so history stays linear.
type Session struct {
	documentID string
	bus        *bus.Bus
	engine     *mutation.Engine
	surf       surface.Surface
	reg        *registry.Registry
	ctrl       *interact.Controller
	pipeline   *ingest.Pipeline
	generator  assist.Generator
	outliner   *assist.Outliner
	logger     *slog.Logger
	now        func() time.Time
	release    func() error
	markup     string
	restored   bool

	undoMu sync.Mutex
	// unlockMu serialises unlocks: each reads the surface, then dispatches.
	unlockMu sync.Mutex

	warnMu   sync.Mutex
	warnings []string
}

// Status summarises a session for listings.
type Status struct {
	DocumentID string           `json:"document_id"`
	Breakpoint scene.Breakpoint `json:"breakpoint"`
	Restored   bool             `json:"restored"`
	Bus        bus.Stats        `json:"bus"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// DocumentID returns the id of the open document.
func (s *Session) DocumentID() string { return s.documentID }

// Bus exposes the command bus.
func (s *Session) Bus() *bus.Bus { return s.bus }

// Controller exposes the interaction controller.
func (s *Session) Controller() *interact.Controller { return s.ctrl }

// Surface exposes the rendering surface.
func (s *Session) Surface() surface.Surface { return s.surf }

// Status returns the session counters and pending persistence warnings.
func (s *Session) Status() Status {
	s.warnMu.Lock()
	warnings := append([]string(nil), s.warnings...)
	s.warnMu.Unlock()
	return Status{
		DocumentID: s.documentID,
		Breakpoint: s.ctrl.Breakpoint(),
		Restored:   s.restored,
		Bus:        s.stats(),
		Warnings:   warnings,
	}
}

// stats reports the bus counters with CanUndo bounded by the hydration
// floor.
func (s *Session) stats() bus.Stats {
	st := s.bus.Stats()
	st.CanUndo = st.CurrentIndex > s.undoFloor()
	return st
}

// undoFloor is the lowest history index Undo may leave applied. A session
// hydrated from markup keeps its hydration batch.
func (s *Session) undoFloor() int {
	if h := s.bus.History(); len(h) > 0 && h[0].Source == scene.SourceHydration {
		return 0
	}
	return -1
}

func (s *Session) warn(err error) {
	s.logger.Warn("editor: session warning", "document_id", s.documentID, "error", err)
	s.warnMu.Lock()
	s.warnings = append(s.warnings, err.Error())
	if len(s.warnings) > 16 {
		s.warnings = s.warnings[len(s.warnings)-16:]
	}
	s.warnMu.Unlock()
}

// Elements returns the elements in paint order.
func (s *Session) Elements() []scene.Element {
	return s.bus.Scene().Sorted()
}

// Dispatch applies one command (possibly a batch).
func (s *Session) Dispatch(ctx context.Context, cmd scene.Command) error {
	return s.bus.Dispatch(ctx, cmd)
}

// Get returns the element with id.
func (s *Session) Get(id string) (scene.Element, bool) { return s.bus.Get(id) }

// Scene returns a copy of the current scene.
func (s *Session) Scene() *scene.Scene { return s.bus.Scene() }

// Undo steps back one command. The hydration batch is never undone, so
// the canvas cannot return to an empty document.
func (s *Session) Undo(ctx context.Context) error {
	s.undoMu.Lock()
	defer s.undoMu.Unlock()
	if s.bus.Stats().CurrentIndex <= s.undoFloor() {
		return bus.ErrNothingToUndo
	}
	return s.bus.Undo(ctx)
}

// Redo re-applies the next command.
func (s *Session) Redo(ctx context.Context) error { return s.bus.Redo(ctx) }

// History lists the command log.
func (s *Session) History() []bus.Entry { return s.bus.History() }

// Save persists the session now.
func (s *Session) Save(ctx context.Context) error { return s.bus.Save(ctx) }

// Key runs the action bound to chord.
func (s *Session) Key(ctx context.Context, chord string) (interact.Action, error) {
	return s.ctrl.KeyChord(ctx, chord)
}

// SetBreakpoint switches the edited breakpoint and re-renders.
func (s *Session) SetBreakpoint(bp scene.Breakpoint) error {
	if !bp.Valid() {
		return fmt.Errorf("editor: unknown breakpoint %q", bp)
	}
	s.ctrl.SetBreakpoint(bp)
	return nil
}

// onBreakpoint follows controller breakpoint changes into the renderer.
func (s *Session) onBreakpoint(bp scene.Breakpoint) {
	s.engine.SetBreakpoint(bp)
	if err := s.bus.Refresh(context.Background()); err != nil {
		s.logger.Warn("editor: refresh after breakpoint change", "document_id", s.documentID, "breakpoint", bp, "error", err)
	}
}

// Unlock converts the flow element bound to stableID into an absolute
// element with the same id, capturing its rendered box and appearance.
// Flow elements bound to nodes nested inside it are deleted in the same
// batch. One undo restores all of them.
func (s *Session) Unlock(ctx context.Context, stableID string) (scene.Element, error) {
	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()

	bound := s.bus.Scene().ByStableID(stableID)
	if len(bound) == 0 {
		return scene.Element{}, &mutation.UnlockError{StableID: stableID, Reason: "no element bound to stable id"}
	}
	base := bound[0]
	for _, el := range bound {
		if el.Mode == scene.ModeFlow {
			base = el
			break
		}
	}

	var node surface.Node
	if n, ok := s.reg.Get(stableID); ok {
		node = n
	}
	width, _, err := s.surf.Viewport(ctx)
	if err != nil {
		return scene.Element{}, &mutation.UnlockError{StableID: stableID, Reason: "read viewport", Err: err}
	}

	el, err := mutation.Unlock(ctx, mutation.UnlockRequest{
		StableID:      stableID,
		Node:          node,
		ViewportWidth: width,
		Base:          base,
	})
	if err != nil {
		return scene.Element{}, err
	}

	c := scene.Context{
		Timestamp:   s.now().UnixMilli(),
		Source:      scene.SourceManual,
		Description: "unlock " + stableID,
	}
	cmds := []scene.Command{scene.Delete(base.ID, c)}
	nested, err := s.nestedFlow(ctx, node)
	if err != nil {
		return scene.Element{}, &mutation.UnlockError{StableID: stableID, Reason: "read subtree", Err: err}
	}
	for _, id := range nested {
		cmds = append(cmds, scene.Delete(id, c))
	}
	cmd := scene.Batch(append(cmds, scene.Insert(el, c)), c)
	if err := s.bus.Dispatch(ctx, cmd); err != nil {
		return scene.Element{}, fmt.Errorf("editor: unlock %s: %w", stableID, err)
	}
	s.ctrl.Select(el.ID)
	s.pipeline.ReportMappings(s.documentID, s.Elements())
	s.logger.Info("editor: element unlocked", "document_id", s.documentID, "stable_id", stableID, "element_id", el.ID)
	return el, nil
}

// nestedFlow returns the flow elements bound to nodes inside n. The
// unlocked node hides its whole subtree, so they go with it.
func (s *Session) nestedFlow(ctx context.Context, n surface.Node) ([]string, error) {
	inner, err := n.InnerHTML(ctx)
	if err != nil {
		return nil, err
	}
	sc := s.bus.Scene()
	var ids []string
	seen := make(map[string]bool)
	for _, stableID := range mutation.StableIDsIn(inner) {
		for _, el := range sc.ByStableID(stableID) {
			if el.Mode == scene.ModeFlow && !seen[el.ID] {
				seen[el.ID] = true
				ids = append(ids, el.ID)
			}
		}
	}
	return ids, nil
}

// Assist sends prompt with the document outline and current elements to
// the generator and commits its commands as one history entry.
func (s *Session) Assist(ctx context.Context, prompt string, selection []string) (int, error) {
	if s.generator == nil {
		return 0, ErrAssistDisabled
	}
	if len(selection) == 0 {
		if id := s.ctrl.Selected(); id != "" {
			selection = []string{id}
		}
	}
	c := assist.Context{
		DocumentID: s.documentID,
		Breakpoint: s.ctrl.Breakpoint(),
		Outline:    s.outliner.Outline(s.markup),
		Elements:   s.Elements(),
		Selection:  selection,
	}
	n, err := assist.Apply(ctx, s.bus, s.generator, prompt, c)
	if err != nil {
		return 0, err
	}
	s.logger.Info("editor: assist applied", "document_id", s.documentID, "commands", n)
	return n, nil
}

// close flushes the bus, closes sinks and releases the surface.
func (s *Session) close(ctx context.Context) error {
	var errs []error
	if err := s.bus.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.engine.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.release != nil {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
