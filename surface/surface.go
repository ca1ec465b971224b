// CLAUDE:SUMMARY RenderSurface contract shared by the in-memory and browser-backed surfaces.
// Package surface defines the rendered document the editor mutates. The
// mutation engine, the selector registry and unlock only talk to a Surface,
// so the same code drives a headless browser page in production and an
// in-memory tree in tests.
package surface

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// Attribute names the engine reads and writes on rendered nodes.
const (
	// StableAttr carries the deterministic id injected at ingestion.
	StableAttr = "data-stable-id"
	// CanvasAttr marks nodes created by the engine for absolute elements.
	CanvasAttr = "data-canvas-id"
	// TextAttr holds TextHash of the text a node was ingested with or last
	// given by the engine.
	TextAttr = "data-canvas-text"
	// StylesAttr records which inline style properties the engine manages.
	StylesAttr = "data-canvas-styles"
	// HiddenAttr hides a node without removing it.
	HiddenAttr = "hidden"
	// LayerID is the id of the container that holds canvas nodes.
	LayerID = "canvas-layer"
)

// ErrDetached is returned by operations on a node no longer in the document.
var ErrDetached = errors.New("surface: node is detached")

// Rect is a node's bounding box in viewport pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a rendered element. Methods on a detached node return ErrDetached,
// except Attached which reports it.
type Node interface {
	// StableID returns the data-stable-id value, or "".
	StableID() string
	// CanvasID returns the data-canvas-id value, or "".
	CanvasID() string
	Tag() string
	Attached(ctx context.Context) bool

	Text(ctx context.Context) (string, error)
	SetText(ctx context.Context, text string) error
	InnerHTML(ctx context.Context) (string, error)
	// SetHTML replaces the node's children with parsed markup.
	SetHTML(ctx context.Context, markup string) error
	Attr(ctx context.Context, name string) (string, bool, error)
	SetAttr(ctx context.Context, name, value string) error
	RemoveAttr(ctx context.Context, name string) error

	// SetStyles replaces the engine-managed inline style properties with
	// styles. Properties the engine did not set are left alone.
	SetStyles(ctx context.Context, styles map[string]string) error
	// ComputedStyle returns the resolved value of each requested property.
	ComputedStyle(ctx context.Context, props []string) (map[string]string, error)
	Rect(ctx context.Context) (Rect, error)
}

// Surface is a rendered document.
type Surface interface {
	// LoadMarkup replaces the whole document. Nodes obtained before are
	// detached afterwards.
	LoadMarkup(ctx context.Context, html string) error
	// StableNodes returns every node carrying StableAttr in document order.
	StableNodes(ctx context.Context) ([]Node, error)
	// CanvasNodes returns every engine-created node in document order.
	CanvasNodes(ctx context.Context) ([]Node, error)
	// CanvasNode finds an engine-created node by id.
	CanvasNode(ctx context.Context, id string) (Node, bool, error)
	// CreateCanvasNode appends a new node with CanvasAttr=id to the canvas
	// layer, creating the layer if needed.
	CreateCanvasNode(ctx context.Context, id, tag string) (Node, error)
	RemoveCanvasNode(ctx context.Context, id string) error
	Viewport(ctx context.Context) (width, height float64, err error)
	SetViewport(ctx context.Context, width, height float64) error
	// HTML serialises the current document.
	HTML(ctx context.Context) (string, error)
}

// NormalizeText collapses whitespace runs and trims, the way rendered text
// compares for equality.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TextHash fingerprints normalized text for TextAttr.
func TextHash(s string) string {
	h := sha256.Sum256([]byte(NormalizeText(s)))
	return hex.EncodeToString(h[:8])
}

// EncodeManaged serialises a managed style set as sorted "prop:value;" pairs.
func EncodeManaged(styles map[string]string) string {
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(styles[k])
		b.WriteByte(';')
	}
	return b.String()
}

// ParseStyle parses an inline style declaration list.
func ParseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// MergeStyle applies styles onto an inline declaration list, removing the
// previously managed properties first. It returns the new declaration list.
func MergeStyle(inline string, previous []string, styles map[string]string) string {
	cur := ParseStyle(inline)
	for _, k := range previous {
		delete(cur, k)
	}
	for k, v := range styles {
		cur[k] = v
	}
	return EncodeManaged(cur)
}

// ManagedKeys returns the property names recorded in a StylesAttr value.
func ManagedKeys(encoded string) []string {
	m := ParseStyle(encoded)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
