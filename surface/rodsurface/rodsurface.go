// CLAUDE:SUMMARY Browser-backed RenderSurface: a go-rod page driven through DevTools evaluation.
// Package rodsurface implements surface.Surface on a live Chrome page via
// go-rod. Layout and computed styles come from the browser itself.
package rodsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/canvas/surface"
)

var _ surface.Surface = (*Surface)(nil)

// Surface is a rendered page.
type Surface struct {
	page   *rod.Page
	logger *slog.Logger
}

// New wraps an existing page.
func New(page *rod.Page, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{page: page, logger: logger}
}

// Open starts a new tab on b and wraps it.
func Open(ctx context.Context, b *Browser) (*Surface, error) {
	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	return New(page, b.cfg.Logger), nil
}

// Close closes the underlying tab.
func (s *Surface) Close() error { return s.page.Close() }

func (s *Surface) LoadMarkup(ctx context.Context, html string) error {
	if err := s.page.Context(ctx).SetDocumentContent(html); err != nil {
		return fmt.Errorf("rodsurface: set document: %w", err)
	}
	return nil
}

func (s *Surface) StableNodes(ctx context.Context) ([]surface.Node, error) {
	return s.nodes(ctx, "["+surface.StableAttr+"]")
}

func (s *Surface) CanvasNodes(ctx context.Context) ([]surface.Node, error) {
	return s.nodes(ctx, "["+surface.CanvasAttr+"]")
}

func (s *Surface) nodes(ctx context.Context, selector string) ([]surface.Node, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("rodsurface: query %s: %w", selector, err)
	}
	out := make([]surface.Node, 0, len(els))
	for _, el := range els {
		n, err := describe(ctx, el)
		if err != nil {
			s.logger.Warn("rodsurface: describe node", "selector", selector, "error", err)
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Surface) CanvasNode(ctx context.Context, id string) (surface.Node, bool, error) {
	has, el, err := s.page.Context(ctx).Has(canvasSelector(id))
	if err != nil {
		return nil, false, fmt.Errorf("rodsurface: find canvas node %s: %w", id, err)
	}
	if !has {
		return nil, false, nil
	}
	n, err := describe(ctx, el)
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

const createJS = `(layerID, attr, id, tag) => {
	let layer = document.getElementById(layerID);
	if (!layer) {
		layer = document.createElement('div');
		layer.id = layerID;
		layer.style.cssText = 'position:absolute;left:0;top:0;width:100%;height:0;';
		document.body.appendChild(layer);
	}
	const el = document.createElement(tag);
	el.setAttribute(attr, id);
	layer.appendChild(el);
}`

func (s *Surface) CreateCanvasNode(ctx context.Context, id, tag string) (surface.Node, error) {
	if _, err := s.page.Context(ctx).Eval(createJS, surface.LayerID, surface.CanvasAttr, id, tag); err != nil {
		return nil, fmt.Errorf("rodsurface: create canvas node %s: %w", id, err)
	}
	n, ok, err := s.CanvasNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("rodsurface: canvas node %s vanished after create", id)
	}
	return n, nil
}

func (s *Surface) RemoveCanvasNode(ctx context.Context, id string) error {
	_, err := s.page.Context(ctx).Eval(`(sel) => { const n = document.querySelector(sel); if (n) n.remove(); }`, canvasSelector(id))
	if err != nil {
		return fmt.Errorf("rodsurface: remove canvas node %s: %w", id, err)
	}
	return nil
}

func (s *Surface) Viewport(ctx context.Context) (float64, float64, error) {
	res, err := s.page.Context(ctx).Eval(`() => JSON.stringify([window.innerWidth, window.innerHeight])`)
	if err != nil {
		return 0, 0, fmt.Errorf("rodsurface: viewport: %w", err)
	}
	var wh [2]float64
	if err := json.Unmarshal([]byte(res.Value.Str()), &wh); err != nil {
		return 0, 0, fmt.Errorf("rodsurface: decode viewport: %w", err)
	}
	return wh[0], wh[1], nil
}

func (s *Surface) SetViewport(ctx context.Context, width, height float64) error {
	err := s.page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(width),
		Height:            int(height),
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("rodsurface: set viewport: %w", err)
	}
	return nil
}

func (s *Surface) HTML(ctx context.Context) (string, error) {
	out, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("rodsurface: html: %w", err)
	}
	return out, nil
}

func canvasSelector(id string) string {
	return fmt.Sprintf("[%s=%q]", surface.CanvasAttr, id)
}
