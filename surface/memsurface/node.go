package memsurface

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/surface"
)

// node is a handle on an element of a Surface document.
type node struct {
	s *Surface
	n *html.Node
}

func (nd *node) StableID() string { return attr(nd.n, surface.StableAttr) }
func (nd *node) CanvasID() string { return attr(nd.n, surface.CanvasAttr) }
func (nd *node) Tag() string      { return nd.n.Data }

func (nd *node) Attached(_ context.Context) bool {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	return nd.attached()
}

func (nd *node) attached() bool {
	root := nd.n
	for root.Parent != nil {
		root = root.Parent
	}
	return root == nd.s.doc
}

func (nd *node) Text(_ context.Context) (string, error) {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return "", surface.ErrDetached
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(nd.n)
	return b.String(), nil
}

func (nd *node) SetText(_ context.Context, text string) error {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.ErrDetached
	}
	for c := nd.n.FirstChild; c != nil; {
		next := c.NextSibling
		nd.n.RemoveChild(c)
		c = next
	}
	nd.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

func (nd *node) InnerHTML(_ context.Context) (string, error) {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return "", surface.ErrDetached
	}
	var buf bytes.Buffer
	for c := nd.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("memsurface: render: %w", err)
		}
	}
	return buf.String(), nil
}

func (nd *node) SetHTML(_ context.Context, markup string) error {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.ErrDetached
	}
	children, err := html.ParseFragment(strings.NewReader(markup), nd.n)
	if err != nil {
		return fmt.Errorf("memsurface: parse fragment: %w", err)
	}
	for c := nd.n.FirstChild; c != nil; {
		next := c.NextSibling
		nd.n.RemoveChild(c)
		c = next
	}
	for _, c := range children {
		nd.n.AppendChild(c)
	}
	return nil
}

func (nd *node) Attr(_ context.Context, name string) (string, bool, error) {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return "", false, surface.ErrDetached
	}
	v, ok := lookup(nd.n, name)
	return v, ok, nil
}

func (nd *node) SetAttr(_ context.Context, name, value string) error {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.ErrDetached
	}
	setAttr(nd.n, name, value)
	return nil
}

func (nd *node) RemoveAttr(_ context.Context, name string) error {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.ErrDetached
	}
	removeAttr(nd.n, name)
	return nil
}

func (nd *node) SetStyles(_ context.Context, styles map[string]string) error {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.ErrDetached
	}
	prev := surface.ManagedKeys(attr(nd.n, surface.StylesAttr))
	merged := surface.MergeStyle(attr(nd.n, "style"), prev, styles)
	if merged == "" {
		removeAttr(nd.n, "style")
	} else {
		setAttr(nd.n, "style", merged)
	}
	if len(styles) == 0 {
		removeAttr(nd.n, surface.StylesAttr)
	} else {
		setAttr(nd.n, surface.StylesAttr, surface.EncodeManaged(styles))
	}
	return nil
}

func (nd *node) ComputedStyle(_ context.Context, props []string) (map[string]string, error) {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return nil, surface.ErrDetached
	}
	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p] = nd.resolve(p)
	}
	return out, nil
}

// resolve walks up the ancestors for inherited properties and falls back to
// the tag default, then to the surface default.
func (nd *node) resolve(prop string) string {
	for n := nd.n; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if v, ok := surface.ParseStyle(attr(n, "style"))[prop]; ok && v != "inherit" {
			return v
		}
		if !inherited[prop] {
			break
		}
	}
	if prop == "display" {
		return displayFor(nd.n.DataAtom)
	}
	return nd.s.defaults[prop]
}

func (nd *node) Rect(_ context.Context) (surface.Rect, error) {
	nd.s.mu.Lock()
	defer nd.s.mu.Unlock()
	if !nd.attached() {
		return surface.Rect{}, surface.ErrDetached
	}
	for _, id := range []string{attr(nd.n, surface.StableAttr), attr(nd.n, surface.CanvasAttr)} {
		if r, ok := nd.s.layout[id]; ok && id != "" {
			return r, nil
		}
	}
	st := surface.ParseStyle(attr(nd.n, "style"))
	return surface.Rect{
		X:      px(st["left"]),
		Y:      px(st["top"]),
		Width:  px(st["width"]),
		Height: px(st["height"]),
	}, nil
}

func px(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil {
		return 0
	}
	return f
}

var inherited = map[string]bool{
	"color":          true,
	"font-family":    true,
	"font-size":      true,
	"font-style":     true,
	"font-weight":    true,
	"letter-spacing": true,
	"line-height":    true,
	"text-align":     true,
	"text-transform": true,
	"visibility":     true,
	"white-space":    true,
	"word-spacing":   true,
}

func defaultStyles() map[string]string {
	return map[string]string{
		"color":            "rgb(0, 0, 0)",
		"background-color": "rgba(0, 0, 0, 0)",
		"font-family":      "serif",
		"font-size":        "16px",
		"font-style":       "normal",
		"font-weight":      "400",
		"line-height":      "normal",
		"letter-spacing":   "normal",
		"text-align":       "start",
		"text-transform":   "none",
		"text-decoration":  "none",
		"opacity":          "1",
		"border-radius":    "0px",
		"border":           "0px none rgb(0, 0, 0)",
		"padding":          "0px",
		"box-shadow":       "none",
		"visibility":       "visible",
	}
}

func displayFor(a atom.Atom) string {
	switch a {
	case atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Nav, atom.Aside,
		atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Ul, atom.Ol, atom.Form,
		atom.Figure, atom.Blockquote, atom.Pre, atom.Body, atom.Html:
		return "block"
	case atom.Li:
		return "list-item"
	case atom.Img, atom.Button, atom.Video, atom.Input, atom.Select, atom.Textarea:
		return "inline-block"
	}
	return "inline"
}
