package geom

import (
	"math"

	"github.com/hazyhaar/canvas/scene"
)

// Handle identifies a selection handle.
type Handle string

const (
	HandleNW     Handle = "nw"
	HandleN      Handle = "n"
	HandleNE     Handle = "ne"
	HandleE      Handle = "e"
	HandleSE     Handle = "se"
	HandleS      Handle = "s"
	HandleSW     Handle = "sw"
	HandleW      Handle = "w"
	HandleRotate Handle = "rotate"
)

// ResizeHandles lists the eight resize handles, corners first.
var ResizeHandles = []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW}

// RotateHandleOffset is the distance of the rotate handle above the box.
const RotateHandleOffset = 24

func (h Handle) edges() (west, east, north, south bool) {
	switch h {
	case HandleNW:
		return true, false, true, false
	case HandleN:
		return false, false, true, false
	case HandleNE:
		return false, true, true, false
	case HandleE:
		return false, true, false, false
	case HandleSE:
		return false, true, false, true
	case HandleS:
		return false, false, false, true
	case HandleSW:
		return true, false, false, true
	case HandleW:
		return true, false, false, false
	}
	return false, false, false, false
}

// ResizeOptions tunes Resize.
type ResizeOptions struct {
	AspectLock bool
	MinSize    float64
}

// Resize returns start resized by dragging handle h by (dx, dy). The edge or
// corner opposite the handle stays fixed; edge handles under aspect lock
// grow symmetrically around the box center. Width and height never drop
// below MinSize.
func Resize(h Handle, start scene.Transform, dx, dy float64, opt ResizeOptions) scene.Transform {
	minSize := opt.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	dx, dy = finite(dx), finite(dy)
	start = sanitize(start, minSize)

	west, east, north, south := h.edges()
	horiz, vert := west || east, north || south
	if !horiz && !vert {
		return start
	}

	w, ht := start.Width, start.Height
	switch {
	case west:
		w -= dx
	case east:
		w += dx
	}
	switch {
	case north:
		ht -= dy
	case south:
		ht += dy
	}

	if opt.AspectLock {
		ratio := start.Width / start.Height
		switch {
		case horiz && vert:
			if math.Abs(dx) >= math.Abs(dy) {
				ht = w / ratio
			} else {
				w = ht * ratio
			}
		case horiz:
			ht = w / ratio
		case vert:
			w = ht * ratio
		}
		if math.Min(w, ht) < minSize {
			if ratio >= 1 {
				ht, w = minSize, minSize*ratio
			} else {
				w, ht = minSize, minSize/ratio
			}
		}
	} else {
		w = math.Max(w, minSize)
		ht = math.Max(ht, minSize)
	}

	out := start
	out.Width, out.Height = w, ht
	c := center(start)
	switch {
	case west:
		out.Left = start.Right() - w
	case east:
		out.Left = start.Left
	default:
		out.Left = c.X - w/2
	}
	switch {
	case north:
		out.Top = start.Bottom() - ht
	case south:
		out.Top = start.Top
	default:
		out.Top = c.Y - ht/2
	}
	return out
}

// sanitize makes every component finite and the size at least minSize.
func sanitize(t scene.Transform, minSize float64) scene.Transform {
	t.Left, t.Top, t.Rotate = finite(t.Left), finite(t.Top), finite(t.Rotate)
	t.Width = math.Max(finite(t.Width), minSize)
	t.Height = math.Max(finite(t.Height), minSize)
	return t
}

// Handles returns the center point of every resize handle and of the rotate
// handle for box t.
func Handles(t scene.Transform) map[Handle]Point {
	cx, cy := t.Center()
	return map[Handle]Point{
		HandleNW:     {X: t.Left, Y: t.Top},
		HandleN:      {X: cx, Y: t.Top},
		HandleNE:     {X: t.Right(), Y: t.Top},
		HandleE:      {X: t.Right(), Y: cy},
		HandleSE:     {X: t.Right(), Y: t.Bottom()},
		HandleS:      {X: cx, Y: t.Bottom()},
		HandleSW:     {X: t.Left, Y: t.Bottom()},
		HandleW:      {X: t.Left, Y: cy},
		HandleRotate: {X: cx, Y: t.Top - RotateHandleOffset},
	}
}

// HandleAt returns the handle whose square of side size contains pt.
// Rotation is accounted for. The rotate handle wins over resize handles,
// corners over edges.
func HandleAt(pt Point, t scene.Transform, size float64) (Handle, bool) {
	pt = finitePoint(pt)
	if r := t.Rotation(); r != 0 {
		pt = rotateAround(pt, center(t), -r)
	}
	half := size / 2
	hs := Handles(t)
	order := append([]Handle{HandleRotate}, ResizeHandles...)
	for _, h := range order {
		p := hs[h]
		if math.Abs(pt.X-p.X) <= half && math.Abs(pt.Y-p.Y) <= half {
			return h, true
		}
	}
	return "", false
}
