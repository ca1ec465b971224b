package interact

import (
	"github.com/hazyhaar/canvas/geom"
	"github.com/hazyhaar/canvas/scene"
)

// HandleBox is one selection handle square.
type HandleBox struct {
	Handle geom.Handle `json:"handle"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Size   float64     `json:"size"`
}

// Overlay is the selection chrome drawn above the canvas.
type Overlay struct {
	State      State             `json:"state"`
	Breakpoint scene.Breakpoint  `json:"breakpoint"`
	Selected   string            `json:"selected,omitempty"`
	Selection  *scene.Transform  `json:"selection,omitempty"`
	Preview    bool              `json:"preview"`
	Handles    []HandleBox       `json:"handles,omitempty"`
	Guides     []geom.Guide      `json:"guides,omitempty"`
	PendingAdd scene.ElementType `json:"pendingAdd,omitempty"`
	Grid       float64           `json:"grid"`
}

// Overlay describes what to draw for the current state. During a gesture
// the selection shows the uncommitted preview.
func (c *Controller) Overlay() Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()

	o := Overlay{State: c.state, Breakpoint: c.bp, PendingAdd: c.pending}
	if c.grid {
		o.Grid = c.snap.Grid
	}

	var t scene.Transform
	switch {
	case c.g != nil:
		t = c.g.preview
		o.Preview = true
		o.Guides = append([]geom.Guide(nil), c.g.guides...)
		o.Selected = c.g.id
	case c.selected != "":
		el, ok := c.bus.Get(c.selected)
		if !ok {
			c.selected = ""
			return o
		}
		o.Selected = el.ID
		var has bool
		if t, has = el.TransformAt(c.bp); !has || !el.IsAbsolute() {
			return o
		}
	default:
		return o
	}

	o.Selection = &t
	pts := geom.Handles(t)
	order := append(append([]geom.Handle(nil), geom.ResizeHandles...), geom.HandleRotate)
	for _, h := range order {
		p := pts[h]
		o.Handles = append(o.Handles, HandleBox{Handle: h, X: p.X, Y: p.Y, Size: c.handleSize})
	}
	return o
}
