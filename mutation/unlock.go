package mutation

import (
	"bytes"
	"context"
	"math"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/canvas/geom"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
)

// VisualProperties are the resolved style properties copied onto an
// unlocked element so it keeps its appearance outside the flow.
var VisualProperties = []string{
	"color",
	"background-color",
	"font-family",
	"font-size",
	"font-style",
	"font-weight",
	"line-height",
	"letter-spacing",
	"text-align",
	"text-transform",
	"text-decoration",
	"opacity",
	"border",
	"border-radius",
	"padding",
	"box-shadow",
}

// UnlockRequest describes the flow node to capture.
type UnlockRequest struct {
	StableID string
	Node     surface.Node
	// ViewportWidth selects the breakpoint the captured box is stored under.
	ViewportWidth float64
	// Base is the flow element being replaced. Its id, type, content and
	// explicit styles carry over.
	Base scene.Element
}

// Unlock reads the resolved style and bounding box of a flow node and
// returns the absolute element that replaces it. The element keeps Base.ID
// and carries the stable id so the original node stays hidden.
func Unlock(ctx context.Context, req UnlockRequest) (scene.Element, error) {
	fail := func(reason string, err error) (scene.Element, error) {
		return scene.Element{}, &UnlockError{StableID: req.StableID, Reason: reason, Err: err}
	}
	if req.StableID == "" {
		return fail("node has no stable id", nil)
	}
	if req.Node == nil {
		return fail("no rendered node for stable id", nil)
	}
	if !req.Node.Attached(ctx) {
		return fail("node is detached", surface.ErrDetached)
	}
	if req.Base.Mode == scene.ModeAbsolute {
		return fail("element is already absolute", nil)
	}

	rect, err := req.Node.Rect(ctx)
	if err != nil {
		return fail("read bounding box", err)
	}
	computed, err := req.Node.ComputedStyle(ctx, VisualProperties)
	if err != nil {
		return fail("read computed style", err)
	}

	styles := make(map[string]string, len(computed)+len(req.Base.Styles))
	for k, v := range computed {
		if v != "" {
			styles[k] = v
		}
	}
	for k, v := range req.Base.Styles {
		styles[k] = v
	}

	content := req.Base.Content
	if content == nil {
		content, err = captureContent(ctx, req.Node, req.Base.Type)
		if err != nil {
			return fail("read content", err)
		}
	}

	t := scene.Transform{
		Left:   finite(rect.X),
		Top:    finite(rect.Y),
		Width:  math.Max(finite(rect.Width), geom.DefaultMinSize),
		Height: math.Max(finite(rect.Height), geom.DefaultMinSize),
	}
	bp := scene.BreakpointForWidth(req.ViewportWidth)

	typ := req.Base.Type
	if typ == "" {
		typ = scene.TypeCustom
	}
	id := req.Base.ID
	if id == "" {
		id = "flow-" + req.StableID
	}
	return scene.Element{
		ID:          id,
		StableID:    req.StableID,
		Type:        typ,
		Mode:        scene.ModeAbsolute,
		Content:     content,
		Styles:      styles,
		Breakpoints: map[scene.Breakpoint]scene.Transform{bp: t},
		ZIndex:      req.Base.ZIndex,
	}, nil
}

func captureContent(ctx context.Context, n surface.Node, t scene.ElementType) (scene.Content, error) {
	attr := func(name string) (string, error) {
		v, _, err := n.Attr(ctx, name)
		return v, err
	}
	switch t {
	case scene.TypeText:
		text, err := n.Text(ctx)
		return scene.TextContent{Text: surface.NormalizeText(text)}, err
	case scene.TypeButton:
		text, err := n.Text(ctx)
		if err != nil {
			return nil, err
		}
		href, err := attr("href")
		return scene.LinkContent{Href: href, Label: surface.NormalizeText(text)}, err
	case scene.TypeImage, scene.TypeVideo:
		src, err := attr("src")
		if err != nil {
			return nil, err
		}
		alt, err := attr("alt")
		if err != nil {
			return nil, err
		}
		poster, err := attr("poster")
		return scene.MediaContent{Src: src, Alt: alt, Poster: poster}, err
	default:
		inner, err := n.InnerHTML(ctx)
		if err != nil {
			return nil, err
		}
		return scene.MarkupContent{HTML: StripStableIDs(inner)}, nil
	}
}

// StripStableIDs removes stable id and text stamp attributes from a
// fragment so a copied subtree does not register a second time.
func StripStableIDs(fragment string) string {
	if !strings.Contains(fragment, surface.StableAttr) && !strings.Contains(fragment, surface.TextAttr) {
		return fragment
	}
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}
	var strip func(*html.Node)
	strip = func(n *html.Node) {
		if n.Type == html.ElementNode {
			out := n.Attr[:0]
			for _, a := range n.Attr {
				if a.Key != surface.StableAttr && a.Key != surface.TextAttr {
					out = append(out, a)
				}
			}
			n.Attr = out
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			strip(c)
		}
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		strip(n)
		html.Render(&buf, n)
	}
	return buf.String()
}

// StableIDsIn returns the stable ids carried by elements of fragment, in
// document order.
func StableIDsIn(fragment string) []string {
	if !strings.Contains(fragment, surface.StableAttr) {
		return nil
	}
	nodes, err := parseFragment(fragment)
	if err != nil {
		return nil
	}
	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == surface.StableAttr && a.Val != "" {
					ids = append(ids, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return ids
}

func parseFragment(fragment string) ([]*html.Node, error) {
	ctxNode := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(fragment), ctxNode)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
