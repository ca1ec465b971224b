// CLAUDE:SUMMARY In-memory RenderSurface over an x/net/html tree with simulated computed styles and layout.
// Package memsurface is an in-memory surface.Surface backed by an
// x/net/html tree. It has no layout engine: bounding boxes come from inline
// pixel geometry or from boxes registered with SetLayout, and computed
// styles are resolved from inline declarations with CSS inheritance.
package memsurface

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/surface"
)

const blankDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

var _ surface.Surface = (*Surface)(nil)

// Surface is an in-memory document. It is safe for concurrent use.
type Surface struct {
	mu       sync.Mutex
	doc      *html.Node
	width    float64
	height   float64
	layout   map[string]surface.Rect
	defaults map[string]string
}

// Option configures a Surface.
type Option func(*Surface)

// WithViewport sets the initial viewport size. Default: 1440x900.
func WithViewport(width, height float64) Option {
	return func(s *Surface) { s.width, s.height = width, height }
}

// WithDefaultStyle overrides the value a property resolves to when neither
// the node nor an ancestor declares it.
func WithDefaultStyle(prop, value string) Option {
	return func(s *Surface) { s.defaults[prop] = value }
}

// New returns a surface holding an empty document.
func New(opts ...Option) *Surface {
	doc, _ := html.Parse(strings.NewReader(blankDocument))
	s := &Surface{
		doc:      doc,
		width:    1440,
		height:   900,
		layout:   make(map[string]surface.Rect),
		defaults: defaultStyles(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetLayout registers the bounding box reported for the node whose stable
// or canvas id is id.
func (s *Surface) SetLayout(id string, r surface.Rect) {
	s.mu.Lock()
	s.layout[id] = r
	s.mu.Unlock()
}

// LoadMarkup parses markup and replaces the document.
func (s *Surface) LoadMarkup(_ context.Context, markup string) error {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("memsurface: parse: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// StableNodes returns the nodes carrying a stable id in document order.
func (s *Surface) StableNodes(_ context.Context) ([]surface.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(surface.StableAttr), nil
}

// CanvasNodes returns the engine-created nodes in document order.
func (s *Surface) CanvasNodes(_ context.Context) ([]surface.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(surface.CanvasAttr), nil
}

// CanvasNode finds an engine-created node.
func (s *Surface) CanvasNode(_ context.Context, id string) (surface.Node, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := find(s.doc, func(n *html.Node) bool { return attr(n, surface.CanvasAttr) == id })
	if n == nil {
		return nil, false, nil
	}
	return &node{s: s, n: n}, true, nil
}

// CreateCanvasNode appends a canvas node to the layer.
func (s *Surface) CreateCanvasNode(_ context.Context, id, tag string) (surface.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	layer := find(s.doc, func(n *html.Node) bool { return attr(n, "id") == surface.LayerID })
	if layer == nil {
		body := find(s.doc, func(n *html.Node) bool { return n.DataAtom == atom.Body })
		if body == nil {
			return nil, fmt.Errorf("memsurface: document has no body")
		}
		layer = &html.Node{
			Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
			Attr: []html.Attribute{
				{Key: "id", Val: surface.LayerID},
				{Key: "style", Val: "position:absolute;left:0;top:0;width:100%;height:0;"},
			},
		}
		body.AppendChild(layer)
	}
	el := &html.Node{
		Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)),
		Attr: []html.Attribute{{Key: surface.CanvasAttr, Val: id}},
	}
	layer.AppendChild(el)
	return &node{s: s, n: el}, nil
}

// RemoveCanvasNode detaches a canvas node. Removing an absent node is a no-op.
func (s *Surface) RemoveCanvasNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := find(s.doc, func(n *html.Node) bool { return attr(n, surface.CanvasAttr) == id })
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return nil
}

// Viewport returns the simulated viewport size.
func (s *Surface) Viewport(_ context.Context) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height, nil
}

// SetViewport resizes the simulated viewport.
func (s *Surface) SetViewport(_ context.Context, width, height float64) error {
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
	return nil
}

// HTML renders the document.
func (s *Surface) HTML(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, s.doc); err != nil {
		return "", fmt.Errorf("memsurface: render: %w", err)
	}
	return buf.String(), nil
}

func (s *Surface) collect(key string) []surface.Node {
	var out []surface.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := lookup(n, key); ok {
				out = append(out, &node{s: s, n: n})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(s.doc)
	return out
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, match); n != nil {
			return n
		}
	}
	return nil
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}
