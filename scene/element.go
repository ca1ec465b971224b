// CLAUDE:SUMMARY Canvas element model: breakpoints, element types, modes, transforms and per-breakpoint fallback.
// Package scene holds the editable document model of a canvas session:
// elements, their per-breakpoint transforms, and the commands that mutate
// them. Every state change goes through Scene.Apply.
package scene

import (
	"fmt"
	"maps"
	"math"
)

// Breakpoint is a named responsive viewport class.
type Breakpoint string

const (
	Desktop Breakpoint = "desktop"
	Tablet  Breakpoint = "tablet"
	Mobile  Breakpoint = "mobile"
)

// Breakpoints lists all breakpoints from the widest to the narrowest.
var Breakpoints = []Breakpoint{Desktop, Tablet, Mobile}

// Valid reports whether b is a known breakpoint.
func (b Breakpoint) Valid() bool {
	switch b {
	case Desktop, Tablet, Mobile:
		return true
	}
	return false
}

// ReferenceWidth is the viewport width the editor uses when previewing b.
func (b Breakpoint) ReferenceWidth() float64 {
	switch b {
	case Tablet:
		return 768
	case Mobile:
		return 375
	default:
		return 1440
	}
}

// BreakpointForWidth derives the breakpoint a viewport width falls into.
func BreakpointForWidth(width float64) Breakpoint {
	switch {
	case width >= 1024:
		return Desktop
	case width >= 768:
		return Tablet
	default:
		return Mobile
	}
}

// fallbackChain is the lookup order used when an element has no transform
// for the requested breakpoint: narrower viewports inherit from wider ones.
func fallbackChain(bp Breakpoint) []Breakpoint {
	switch bp {
	case Mobile:
		return []Breakpoint{Mobile, Tablet, Desktop}
	case Tablet:
		return []Breakpoint{Tablet, Desktop}
	default:
		return []Breakpoint{Desktop}
	}
}

// ElementType is the kind of content an element renders.
type ElementType string

const (
	TypeText    ElementType = "text"
	TypeImage   ElementType = "image"
	TypeButton  ElementType = "button"
	TypeSection ElementType = "section"
	TypeVideo   ElementType = "video"
	TypeCustom  ElementType = "custom"
)

// ElementTypes lists every element type in the order the editor presents them.
var ElementTypes = []ElementType{TypeText, TypeImage, TypeButton, TypeSection, TypeVideo, TypeCustom}

// Valid reports whether t is a known element type.
func (t ElementType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeButton, TypeSection, TypeVideo, TypeCustom:
		return true
	}
	return false
}

// Mode is the positioning mode of an element.
type Mode string

const (
	// ModeFlow elements keep their document-flow position. Only text and
	// styles are editable.
	ModeFlow Mode = "flow"
	// ModeAbsolute elements are positioned by per-breakpoint transforms.
	ModeAbsolute Mode = "absolute"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeFlow || m == ModeAbsolute }

// Transform is the placement of an absolute element at one breakpoint.
// Coordinates are canvas pixels; Rotate is in degrees.
type Transform struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate float64 `json:"rotate"`
}

// Rotation returns Rotate normalized into [0, 360).
func (t Transform) Rotation() float64 {
	r := math.Mod(t.Rotate, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// Center returns the midpoint of the transform's box.
func (t Transform) Center() (x, y float64) {
	return t.Left + t.Width/2, t.Top + t.Height/2
}

// Right returns the x coordinate of the right edge.
func (t Transform) Right() float64 { return t.Left + t.Width }

// Bottom returns the y coordinate of the bottom edge.
func (t Transform) Bottom() float64 { return t.Top + t.Height }

// Contains reports whether the point lies inside the unrotated box.
func (t Transform) Contains(x, y float64) bool {
	return x >= t.Left && x <= t.Right() && y >= t.Top && y <= t.Bottom()
}

func (t Transform) check() error {
	for _, v := range []float64{t.Left, t.Top, t.Width, t.Height, t.Rotate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("transform has non-finite component")
		}
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("transform width and height must be positive")
	}
	return nil
}

// Element is one editable node of the canvas.
type Element struct {
	ID          string                   `json:"id"`
	StableID    string                   `json:"stableId,omitempty"`
	Type        ElementType              `json:"type"`
	Mode        Mode                     `json:"mode"`
	Content     Content                  `json:"-"`
	Styles      map[string]string        `json:"styles,omitempty"`
	Breakpoints map[Breakpoint]Transform `json:"breakpoints,omitempty"`
	ZIndex      int                      `json:"zIndex"`
	Seq         int64                    `json:"seq"`
	CreatedAt   int64                    `json:"createdAt"` // epoch milliseconds
	UpdatedAt   int64                    `json:"updatedAt"` // epoch milliseconds
}

// TransformAt resolves the transform for bp. Missing breakpoints fall back
// mobile → tablet → desktop; if the chain is empty the remaining entries are
// searched from the widest breakpoint down.
func (e Element) TransformAt(bp Breakpoint) (Transform, bool) {
	if len(e.Breakpoints) == 0 {
		return Transform{}, false
	}
	for _, b := range fallbackChain(bp) {
		if t, ok := e.Breakpoints[b]; ok {
			return t, true
		}
	}
	for _, b := range Breakpoints {
		if t, ok := e.Breakpoints[b]; ok {
			return t, true
		}
	}
	return Transform{}, false
}

// IsAbsolute reports whether e is positioned by transforms.
func (e Element) IsAbsolute() bool { return e.Mode == ModeAbsolute }

// Text returns the editable text of the element, if any.
func (e Element) Text() string {
	switch c := e.Content.(type) {
	case TextContent:
		return c.Text
	case LinkContent:
		return c.Label
	}
	return ""
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	out := e
	out.Styles = maps.Clone(e.Styles)
	out.Breakpoints = maps.Clone(e.Breakpoints)
	return out
}

func (e Element) check() error {
	if e.ID == "" {
		return fmt.Errorf("element id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown element type %q", e.Type)
	}
	if !e.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", e.Mode)
	}
	if e.Content != nil && !compatible(e.Type, e.Content.Kind()) {
		return fmt.Errorf("%s content is not valid for a %s element", e.Content.Kind(), e.Type)
	}
	for k := range e.Styles {
		if k == "" {
			return fmt.Errorf("empty style property")
		}
	}
	switch e.Mode {
	case ModeAbsolute:
		if len(e.Breakpoints) == 0 {
			return fmt.Errorf("absolute element needs at least one breakpoint transform")
		}
		for bp, t := range e.Breakpoints {
			if !bp.Valid() {
				return fmt.Errorf("unknown breakpoint %q", bp)
			}
			if err := t.check(); err != nil {
				return fmt.Errorf("%s: %v", bp, err)
			}
		}
	case ModeFlow:
		if len(e.Breakpoints) > 0 {
			return fmt.Errorf("flow element cannot carry transforms")
		}
	}
	return nil
}
