package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/canvas/surface"
)

// Lookup resolves stable ids to rendered nodes. *registry.Registry
// satisfies it.
type Lookup interface {
	Get(id string) (surface.Node, bool)
}

// Apply executes records against s and returns the number of effective
// changes. Each record compares the rendered state first, so applying the
// same records twice yields 0 changes the second time. Records whose target
// cannot be resolved are skipped; failures are joined into the error.
func Apply(ctx context.Context, s surface.Surface, lookup Lookup, records []Record, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &applier{s: s, lookup: lookup, logger: logger, canvas: make(map[string]surface.Node)}
	var errs []error
	changes := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := a.apply(ctx, rec)
		changes += n
		if err != nil {
			errs = append(errs, fmt.Errorf("mutation: %s %s: %w", rec.Op, rec.Target, err))
		}
	}
	return changes, errors.Join(errs...)
}

type applier struct {
	s      surface.Surface
	lookup Lookup
	logger *slog.Logger
	canvas map[string]surface.Node
}

func (a *applier) apply(ctx context.Context, rec Record) (int, error) {
	switch rec.Op {
	case OpInsert:
		return a.insert(ctx, rec)
	case OpRemove:
		return a.remove(ctx, rec.Target)
	case OpPrune:
		return a.prune(ctx, rec.Keep)
	}

	n, ok, err := a.resolve(ctx, rec)
	if err != nil || !ok {
		return 0, err
	}

	switch rec.Op {
	case OpText:
		return a.text(ctx, n, rec.Value)

	case OpHTML:
		hash := HashHTML(rec.Value)
		if cur, _, err := n.Attr(ctx, HTMLHashAttr); err != nil {
			return 0, err
		} else if cur == hash {
			return 0, nil
		}
		if err := n.SetHTML(ctx, rec.Value); err != nil {
			return 0, err
		}
		return 1, n.SetAttr(ctx, HTMLHashAttr, hash)

	case OpAttr:
		cur, has, err := n.Attr(ctx, rec.Name)
		if err != nil {
			return 0, err
		}
		if has && cur == rec.Value {
			return 0, nil
		}
		return 1, n.SetAttr(ctx, rec.Name, rec.Value)

	case OpAttrDel:
		_, has, err := n.Attr(ctx, rec.Name)
		if err != nil || !has {
			return 0, err
		}
		return 1, n.RemoveAttr(ctx, rec.Name)

	case OpStyle:
		cur, _, err := n.Attr(ctx, surface.StylesAttr)
		if err != nil {
			return 0, err
		}
		if cur == surface.EncodeManaged(rec.Styles) {
			return 0, nil
		}
		return 1, n.SetStyles(ctx, rec.Styles)

	case OpVisible:
		_, hidden, err := n.Attr(ctx, surface.HiddenAttr)
		if err != nil {
			return 0, err
		}
		switch {
		case rec.Visible && hidden:
			return 1, n.RemoveAttr(ctx, surface.HiddenAttr)
		case !rec.Visible && !hidden:
			return 1, n.SetAttr(ctx, surface.HiddenAttr, "")
		}
		return 0, nil
	}
	return 0, fmt.Errorf("unknown op %q", rec.Op)
}

// text compares against the node's TextAttr stamp rather than its
// textContent, which includes the text of nested stable nodes. Without a
// stamp the rendered text decides, and a match is stamped for later calls.
func (a *applier) text(ctx context.Context, n surface.Node, value string) (int, error) {
	want := surface.TextHash(value)
	stamp, has, err := n.Attr(ctx, surface.TextAttr)
	if err != nil {
		return 0, err
	}
	if has && stamp == want {
		return 0, nil
	}
	if !has {
		cur, err := n.Text(ctx)
		if err != nil {
			return 0, err
		}
		if surface.NormalizeText(cur) == surface.NormalizeText(value) {
			return 0, n.SetAttr(ctx, surface.TextAttr, want)
		}
	}
	if err := n.SetText(ctx, value); err != nil {
		return 0, err
	}
	return 1, n.SetAttr(ctx, surface.TextAttr, want)
}

func (a *applier) resolve(ctx context.Context, rec Record) (surface.Node, bool, error) {
	switch rec.Kind {
	case TargetStable:
		if a.lookup == nil {
			return nil, false, nil
		}
		n, ok := a.lookup.Get(rec.Target)
		if !ok || !n.Attached(ctx) {
			a.logger.Debug("mutation: stable node not rendered", "stable_id", rec.Target, "op", rec.Op)
			return nil, false, nil
		}
		return n, true, nil
	case TargetCanvas:
		if n, ok := a.canvas[rec.Target]; ok {
			return n, true, nil
		}
		n, ok, err := a.s.CanvasNode(ctx, rec.Target)
		if err != nil || !ok {
			return nil, false, err
		}
		a.canvas[rec.Target] = n
		return n, true, nil
	}
	return nil, false, fmt.Errorf("unknown target kind %q", rec.Kind)
}

func (a *applier) insert(ctx context.Context, rec Record) (int, error) {
	n, ok, err := a.s.CanvasNode(ctx, rec.Target)
	if err != nil {
		return 0, err
	}
	if ok && n.Tag() == rec.Tag {
		a.canvas[rec.Target] = n
		return 0, nil
	}
	changes := 0
	if ok {
		if err := a.s.RemoveCanvasNode(ctx, rec.Target); err != nil {
			return 0, err
		}
		changes++
	}
	n, err = a.s.CreateCanvasNode(ctx, rec.Target, rec.Tag)
	if err != nil {
		return changes, err
	}
	a.canvas[rec.Target] = n
	return changes + 1, nil
}

func (a *applier) remove(ctx context.Context, id string) (int, error) {
	_, ok, err := a.s.CanvasNode(ctx, id)
	if err != nil || !ok {
		return 0, err
	}
	delete(a.canvas, id)
	return 1, a.s.RemoveCanvasNode(ctx, id)
}

func (a *applier) prune(ctx context.Context, keep []string) (int, error) {
	nodes, err := a.s.CanvasNodes(ctx)
	if err != nil {
		return 0, err
	}
	want := make(map[string]bool, len(keep))
	for _, id := range keep {
		want[id] = true
	}
	changes := 0
	for _, n := range nodes {
		id := n.CanvasID()
		if want[id] {
			continue
		}
		if err := a.s.RemoveCanvasNode(ctx, id); err != nil {
			return changes, err
		}
		delete(a.canvas, id)
		changes++
	}
	return changes, nil
}
