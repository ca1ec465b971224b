// CLAUDE:SUMMARY Pure canvas geometry: hit testing, handle resize with aspect lock, rotation and snapping.
// Package geom implements the interaction math of the canvas editor. Every
// function is pure: no I/O, no state, and never a NaN or Inf in the output.
package geom

import (
	"math"

	"github.com/hazyhaar/canvas/scene"
)

// DefaultMinSize is the smallest width or height a resize may produce.
const DefaultMinSize = 8

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// finite replaces NaN and infinities with 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func finitePoint(p Point) Point { return Point{X: finite(p.X), Y: finite(p.Y)} }

// center returns the center of t.
func center(t scene.Transform) Point {
	x, y := t.Center()
	return Point{X: x, Y: y}
}

// rotateAround rotates p by deg degrees around c.
func rotateAround(p, c Point, deg float64) Point {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	d := p.Sub(c)
	return Point{
		X: c.X + d.X*cos - d.Y*sin,
		Y: c.Y + d.X*sin + d.Y*cos,
	}
}

// HitTest returns the topmost absolute element under pt at breakpoint bp.
// Rotated elements are tested in their own frame. Ties on ZIndex go to the
// most recently inserted element.
func HitTest(pt Point, elements []scene.Element, bp scene.Breakpoint) (scene.Element, bool) {
	pt = finitePoint(pt)
	var (
		best  scene.Element
		found bool
	)
	for _, el := range elements {
		if el.Mode != scene.ModeAbsolute {
			continue
		}
		t, ok := el.TransformAt(bp)
		if !ok {
			continue
		}
		local := pt
		if r := t.Rotation(); r != 0 {
			local = rotateAround(pt, center(t), -r)
		}
		if !t.Contains(local.X, local.Y) {
			continue
		}
		if !found || el.ZIndex > best.ZIndex || (el.ZIndex == best.ZIndex && el.Seq > best.Seq) {
			best, found = el, true
		}
	}
	return best, found
}
