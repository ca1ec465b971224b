// CLAUDE:SUMMARY Pointer/keyboard state machine: hit testing, drag/resize/rotate previews with snapping, one transform command per gesture.
// Package interact turns pointer and keyboard input into canvas commands.
// Intermediate pointer moves only update a preview; a gesture commits one
// transform command when the pointer is released.
package interact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/geom"
	"github.com/hazyhaar/canvas/idgen"
	"github.com/hazyhaar/canvas/scene"
)

// State is the controller's interaction state.
type State string

const (
	StateIdle       State = "idle"
	StatePendingAdd State = "pending-add"
	StateDragging   State = "dragging"
	StateResizing   State = "resizing"
	StateRotating   State = "rotating"
)

// Bus is the part of the command bus the controller drives.
type Bus interface {
	Dispatch(ctx context.Context, cmd scene.Command) error
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	Get(id string) (scene.Element, bool)
	Scene() *scene.Scene
}

// Pointer is a pointer event in canvas coordinates. Shift locks the aspect
// ratio while resizing and snaps rotation to 15° steps; Alt disables
// snapping while dragging.
type Pointer struct {
	X, Y  float64
	Shift bool
	Alt   bool
}

func (p Pointer) point() geom.Point { return geom.Point{X: p.X, Y: p.Y} }

// RotationStep is the angle increment used when Shift is held.
const RotationStep = 15

// DefaultSizes are the initial dimensions of elements added from the keyboard.
var DefaultSizes = map[scene.ElementType][2]float64{
	scene.TypeText:    {240, 48},
	scene.TypeImage:   {320, 200},
	scene.TypeButton:  {160, 48},
	scene.TypeSection: {480, 240},
	scene.TypeVideo:   {480, 270},
	scene.TypeCustom:  {200, 200},
}

type gesture struct {
	id      string
	kind    State
	handle  geom.Handle
	start   geom.Point
	origin  scene.Transform
	preview scene.Transform
	guides  []geom.Guide
	others  []scene.Transform
	moved   bool
}

// Controller is safe for concurrent use; input events are serialized.
type Controller struct {
	bus          Bus
	keymap       *Keymap
	snap         geom.SnapConfig
	handleSize   float64
	newID        idgen.Generator
	logger       *slog.Logger
	now          func() time.Time
	onBreakpoint func(scene.Breakpoint)

	mu       sync.Mutex
	bp       scene.Breakpoint
	state    State
	selected string
	pending  scene.ElementType
	grid     bool
	g        *gesture
}

// Option configures a Controller.
type Option func(*Controller)

// WithKeymap replaces the default keymap.
func WithKeymap(m *Keymap) Option {
	return func(c *Controller) { c.keymap = m }
}

// WithSnapConfig sets snapping thresholds and grid size.
func WithSnapConfig(cfg geom.SnapConfig) Option {
	return func(c *Controller) { c.snap = cfg }
}

// WithHandleSize sets the side of the handle hit squares. Default: 10.
func WithHandleSize(px float64) Option {
	return func(c *Controller) { c.handleSize = px }
}

// WithIDGenerator sets the id generator for added elements.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(c *Controller) { c.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithClock sets the command timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithBreakpointHandler is called after every breakpoint change.
func WithBreakpointHandler(fn func(scene.Breakpoint)) Option {
	return func(c *Controller) { c.onBreakpoint = fn }
}

// NewController creates an idle controller at the desktop breakpoint with
// the grid enabled.
func NewController(b Bus, opts ...Option) *Controller {
	c := &Controller{
		bus:        b,
		keymap:     DefaultKeymap(),
		snap:       geom.DefaultSnapConfig(),
		handleSize: 10,
		newID:      idgen.Prefixed("el-", idgen.Default),
		logger:     slog.Default(),
		now:        time.Now,
		bp:         scene.Desktop,
		state:      StateIdle,
		grid:       true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current interaction state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Selected returns the selected element id, or "".
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select selects id, or clears the selection when id is "".
func (c *Controller) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelGesture()
	c.selected = id
}

// Breakpoint returns the active breakpoint.
func (c *Controller) Breakpoint() scene.Breakpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bp
}

// SetViewport derives the active breakpoint from the viewport width.
func (c *Controller) SetViewport(width float64) scene.Breakpoint {
	bp := scene.BreakpointForWidth(width)
	c.SetBreakpoint(bp)
	return bp
}

// SetBreakpoint switches the active breakpoint. An active gesture is
// cancelled.
func (c *Controller) SetBreakpoint(bp scene.Breakpoint) {
	if !bp.Valid() {
		return
	}
	c.mu.Lock()
	changed := c.bp != bp
	c.bp = bp
	c.cancelGesture()
	fn := c.onBreakpoint
	c.mu.Unlock()
	if changed && fn != nil {
		fn(bp)
	}
}

// GridEnabled reports whether grid snapping is on.
func (c *Controller) GridEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid
}

func (c *Controller) snapConfig() geom.SnapConfig {
	cfg := c.snap
	if !c.grid {
		cfg.Grid = 0
	}
	return cfg
}

func (c *Controller) manual(desc string) scene.Context {
	return scene.Context{Timestamp: c.now().UnixMilli(), Source: scene.SourceManual, Description: desc}
}

// PointerDown places a pending element, grabs a handle of the selection or
// selects the topmost element under the pointer.
func (c *Controller) PointerDown(ctx context.Context, p Pointer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePendingAdd {
		return c.placePending(ctx, p)
	}
	c.cancelGesture()

	sc := c.bus.Scene()
	pt := p.point()
	if c.selected != "" {
		if el, ok := sc.Get(c.selected); ok && el.IsAbsolute() {
			t, _ := el.TransformAt(c.bp)
			if h, ok := geom.HandleAt(pt, t, c.handleSize); ok {
				kind := StateResizing
				if h == geom.HandleRotate {
					kind = StateRotating
				}
				c.begin(kind, el, t, h, pt, nil)
				return nil
			}
		}
	}

	els := sc.Sorted()
	hit, ok := geom.HitTest(pt, els, c.bp)
	if !ok {
		c.selected = ""
		return nil
	}
	t, _ := hit.TransformAt(c.bp)
	c.selected = hit.ID
	c.begin(StateDragging, hit, t, "", pt, othersAt(els, hit.ID, c.bp))
	return nil
}

func (c *Controller) begin(kind State, el scene.Element, t scene.Transform, h geom.Handle, pt geom.Point, others []scene.Transform) {
	c.g = &gesture{id: el.ID, kind: kind, handle: h, start: pt, origin: t, preview: t, others: others}
	c.state = kind
}

func othersAt(els []scene.Element, skip string, bp scene.Breakpoint) []scene.Transform {
	out := make([]scene.Transform, 0, len(els))
	for _, el := range els {
		if el.ID == skip || !el.IsAbsolute() {
			continue
		}
		if t, ok := el.TransformAt(bp); ok {
			out = append(out, t)
		}
	}
	return out
}

func (c *Controller) placePending(ctx context.Context, p Pointer) error {
	t := c.pending
	size := DefaultSizes[t]
	tr := scene.Transform{Left: p.X, Top: p.Y, Width: size[0], Height: size[1]}
	if cfg := c.snapConfig(); cfg.Grid > 0 {
		tr = geom.Snap(tr, nil, geom.SnapConfig{Grid: cfg.Grid, GridThreshold: cfg.Grid}).Transform
	}
	el := scene.Element{
		ID:          c.newID(),
		Type:        t,
		Mode:        scene.ModeAbsolute,
		Content:     scene.DefaultContent(t),
		Breakpoints: map[scene.Breakpoint]scene.Transform{c.bp: tr},
	}
	c.state = StateIdle
	c.pending = ""
	if err := c.bus.Dispatch(ctx, scene.Insert(el, c.manual("add "+string(t)))); err != nil {
		return fmt.Errorf("interact: add element: %w", err)
	}
	c.selected = el.ID
	return nil
}

// PointerMove updates the preview of the active gesture. It performs no
// I/O and is linear in the number of absolute elements.
func (c *Controller) PointerMove(p Pointer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.move(p)
}

func (c *Controller) move(p Pointer) {
	g := c.g
	if g == nil {
		return
	}
	pt := p.point()
	d := pt.Sub(g.start)
	switch g.kind {
	case StateDragging:
		next := g.origin
		next.Left += d.X
		next.Top += d.Y
		g.guides = nil
		if !p.Alt {
			res := geom.Snap(next, g.others, c.snapConfig())
			next, g.guides = res.Transform, res.Guides
		}
		g.preview = next
	case StateResizing:
		g.preview = geom.Resize(g.handle, g.origin, d.X, d.Y, geom.ResizeOptions{AspectLock: p.Shift})
	case StateRotating:
		cx, cy := g.origin.Center()
		deg := geom.Rotate(geom.Point{X: cx, Y: cy}, g.start, pt, g.origin.Rotate)
		if p.Shift {
			deg = geom.SnapAngle(deg, RotationStep)
		}
		g.preview = g.origin
		g.preview.Rotate = deg
	}
	g.moved = g.moved || d.X != 0 || d.Y != 0
}

// PointerUp ends the gesture and commits its final transform as a single
// command. A click without movement commits nothing.
func (c *Controller) PointerUp(ctx context.Context, p Pointer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.g
	if g == nil {
		return nil
	}
	c.move(p)
	c.g = nil
	c.state = StateIdle
	if !g.moved || g.preview == g.origin {
		return nil
	}
	desc := map[State]string{StateDragging: "move", StateResizing: "resize", StateRotating: "rotate"}[g.kind]
	if err := c.bus.Dispatch(ctx, scene.Move(g.id, c.bp, g.preview, c.manual(desc))); err != nil {
		return fmt.Errorf("interact: commit %s: %w", desc, err)
	}
	return nil
}

// cancelGesture drops the active gesture without committing.
func (c *Controller) cancelGesture() {
	if c.g != nil {
		c.g = nil
		c.state = StateIdle
	}
}

// KeyChord parses chord and handles it as Key does.
func (c *Controller) KeyChord(ctx context.Context, chord string) (Action, error) {
	k, err := ParseChord(chord)
	if err != nil {
		return "", err
	}
	return c.Key(ctx, k)
}

// Key runs the action bound to k. Unbound keys return "" and no error.
func (c *Controller) Key(ctx context.Context, k Key) (Action, error) {
	a, ok := c.keymap.Lookup(k)
	if !ok {
		return "", nil
	}
	return a, c.Do(ctx, a)
}

// Do runs a.
func (c *Controller) Do(ctx context.Context, a Action) error {
	if bp, ok := a.Breakpoint(); ok {
		c.SetBreakpoint(bp)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := a.ElementType(); ok {
		c.cancelGesture()
		c.pending = t
		c.state = StatePendingAdd
		return nil
	}
	switch a {
	case ActionEscape:
		switch {
		case c.state == StatePendingAdd:
			c.pending = ""
			c.state = StateIdle
		case c.g != nil:
			c.cancelGesture()
		default:
			c.selected = ""
		}
	case ActionToggleGrid:
		c.grid = !c.grid
	case ActionUndo:
		c.cancelGesture()
		return c.bus.Undo(ctx)
	case ActionRedo:
		c.cancelGesture()
		return c.bus.Redo(ctx)
	case ActionDelete:
		c.cancelGesture()
		if c.selected == "" {
			return nil
		}
		id := c.selected
		if err := c.bus.Dispatch(ctx, scene.Delete(id, c.manual("delete"))); err != nil {
			return fmt.Errorf("interact: delete %s: %w", id, err)
		}
		c.selected = ""
	default:
		c.logger.Debug("interact: unhandled action", "action", a)
	}
	return nil
}
