package geom

import (
	"math"
	"testing"

	"github.com/hazyhaar/canvas/scene"
)

func el(id string, z int, seq int64, t scene.Transform) scene.Element {
	return scene.Element{
		ID: id, Type: scene.TypeText, Mode: scene.ModeAbsolute, ZIndex: z, Seq: seq,
		Breakpoints: map[scene.Breakpoint]scene.Transform{scene.Desktop: t},
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHitTest_TopmostWins(t *testing.T) {
	box := scene.Transform{Left: 0, Top: 0, Width: 100, Height: 100}
	els := []scene.Element{
		el("low", 1, 1, box),
		el("high", 5, 2, box),
		el("tie-late", 5, 3, box),
		{ID: "flow", Type: scene.TypeText, Mode: scene.ModeFlow, ZIndex: 99},
	}
	got, ok := HitTest(Point{X: 50, Y: 50}, els, scene.Desktop)
	if !ok {
		t.Fatal("expected a hit")
	}
	if got.ID != "tie-late" {
		t.Errorf("hit: got %q, want %q", got.ID, "tie-late")
	}

	if _, ok := HitTest(Point{X: 500, Y: 500}, els, scene.Desktop); ok {
		t.Error("point outside every box must miss")
	}
}

func TestHitTest_Rotated(t *testing.T) {
	// A 200x20 bar rotated 90 degrees becomes a 20x200 column around (100, 10).
	bar := el("bar", 0, 1, scene.Transform{Left: 0, Top: 0, Width: 200, Height: 20, Rotate: 90})
	if _, ok := HitTest(Point{X: 100, Y: 80}, []scene.Element{bar}, scene.Desktop); !ok {
		t.Error("point inside the rotated column should hit")
	}
	if _, ok := HitTest(Point{X: 180, Y: 10}, []scene.Element{bar}, scene.Desktop); ok {
		t.Error("point on the unrotated bar end should miss")
	}
}

func TestHitTest_UsesBreakpointFallback(t *testing.T) {
	e := el("a", 0, 1, scene.Transform{Width: 10, Height: 10})
	if _, ok := HitTest(Point{X: 5, Y: 5}, []scene.Element{e}, scene.Mobile); !ok {
		t.Error("mobile should fall back to the desktop transform")
	}
}

func TestResize_CornerAnchorsOpposite(t *testing.T) {
	start := scene.Transform{Left: 100, Top: 100, Width: 200, Height: 100}
	got := Resize(HandleNW, start, -20, -10, ResizeOptions{})
	if got.Right() != start.Right() || got.Bottom() != start.Bottom() {
		t.Errorf("se corner moved: got right=%v bottom=%v", got.Right(), got.Bottom())
	}
	if got.Width != 220 || got.Height != 110 {
		t.Errorf("size: got %vx%v, want 220x110", got.Width, got.Height)
	}
}

func TestResize_EdgeOnlyChangesOneAxis(t *testing.T) {
	start := scene.Transform{Left: 0, Top: 0, Width: 100, Height: 50}
	got := Resize(HandleE, start, 30, 40, ResizeOptions{})
	if got.Width != 130 || got.Height != 50 || got.Left != 0 || got.Top != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestResize_AspectLockPreservesRatio(t *testing.T) {
	start := scene.Transform{Left: 0, Top: 0, Width: 200, Height: 100}
	ratio := start.Width / start.Height
	for _, h := range ResizeHandles {
		for _, d := range [][2]float64{{50, 10}, {-30, 60}, {-500, -500}, {1000, 3}} {
			got := Resize(h, start, d[0], d[1], ResizeOptions{AspectLock: true})
			if !approx(got.Width/got.Height, ratio) {
				t.Errorf("%s %v: ratio got %v, want %v", h, d, got.Width/got.Height, ratio)
			}
			if got.Width < DefaultMinSize || got.Height < DefaultMinSize {
				t.Errorf("%s %v: below min size %vx%v", h, d, got.Width, got.Height)
			}
		}
	}
}

func TestResize_ClampsToMinimum(t *testing.T) {
	start := scene.Transform{Left: 10, Top: 10, Width: 50, Height: 50}
	got := Resize(HandleSE, start, -100, -100, ResizeOptions{MinSize: 8})
	if got.Width != 8 || got.Height != 8 {
		t.Errorf("size: got %vx%v, want 8x8", got.Width, got.Height)
	}
	if got.Left != 10 || got.Top != 10 {
		t.Errorf("anchor moved: got %v,%v", got.Left, got.Top)
	}
}

func TestResize_NeverNaN(t *testing.T) {
	start := scene.Transform{Left: math.NaN(), Top: math.Inf(1), Width: 0, Height: -4}
	got := Resize(HandleSE, start, math.NaN(), math.Inf(-1), ResizeOptions{AspectLock: true})
	for _, v := range []float64{got.Left, got.Top, got.Width, got.Height, got.Rotate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output: %+v", got)
		}
	}
}

func TestRotate(t *testing.T) {
	c := Point{X: 0, Y: 0}
	got := Rotate(c, Point{X: 10, Y: 0}, Point{X: 0, Y: 10}, 0)
	if !approx(got, 90) {
		t.Errorf("quarter turn: got %v, want 90", got)
	}
	got = Rotate(c, Point{X: 10, Y: 0}, Point{X: 0, Y: -10}, 30)
	if !approx(got, 300) {
		t.Errorf("negative turn: got %v, want 300", got)
	}
	got = Rotate(c, c, c, 45)
	if got != 45 {
		t.Errorf("degenerate drag: got %v, want 45", got)
	}
}

func TestSnapAngle(t *testing.T) {
	if got := SnapAngle(44, 15); got != 45 {
		t.Errorf("SnapAngle(44,15): got %v, want 45", got)
	}
	if got := SnapAngle(-7, 15); got != 0 {
		t.Errorf("SnapAngle(-7,15): got %v, want 0", got)
	}
}

func TestSnap_Threshold(t *testing.T) {
	other := scene.Transform{Left: 100, Top: 500, Width: 50, Height: 50}
	cfg := SnapConfig{Threshold: 8}

	near := scene.Transform{Left: 103, Top: 0, Width: 50, Height: 50}
	res := Snap(near, []scene.Transform{other}, cfg)
	if res.Transform.Left != 100 {
		t.Errorf("Left: got %v, want 100", res.Transform.Left)
	}
	if len(res.Guides) != 1 || res.Guides[0].Axis != Vertical || res.Guides[0].Position != 100 {
		t.Errorf("guides: got %+v", res.Guides)
	}

	far := scene.Transform{Left: 112, Top: 0, Width: 50, Height: 50}
	res = Snap(far, []scene.Transform{other}, cfg)
	if res.Transform.Left != 112 {
		t.Errorf("Left: got %v, want 112 (no snap)", res.Transform.Left)
	}
	if len(res.Guides) != 0 {
		t.Errorf("guides: got %+v, want none", res.Guides)
	}
}

func TestSnap_CenterAlignment(t *testing.T) {
	other := scene.Transform{Left: 0, Top: 0, Width: 100, Height: 100}
	moving := scene.Transform{Left: 300, Top: 28, Width: 40, Height: 40} // middle at 48, other at 50
	res := Snap(moving, []scene.Transform{other}, SnapConfig{Threshold: 8})
	if res.Transform.Top != 30 {
		t.Errorf("Top: got %v, want 30", res.Transform.Top)
	}
	if len(res.Guides) != 1 || res.Guides[0].Axis != Horizontal || res.Guides[0].Position != 50 {
		t.Errorf("guides: got %+v", res.Guides)
	}
}

func TestSnap_GridWhenNoElement(t *testing.T) {
	res := Snap(scene.Transform{Left: 13, Top: 30, Width: 10, Height: 10}, nil, DefaultSnapConfig())
	if res.Transform.Left != 16 || res.Transform.Top != 32 {
		t.Errorf("grid snap: got %v,%v want 16,32", res.Transform.Left, res.Transform.Top)
	}
	if len(res.Guides) != 0 {
		t.Errorf("grid snap emits no guides, got %+v", res.Guides)
	}
}

func TestSnap_NeverNaN(t *testing.T) {
	others := []scene.Transform{
		{Left: 0, Top: 500, Width: 200, Height: 50},
		{Left: math.NaN(), Top: 10, Width: 40, Height: math.Inf(1)},
	}
	moving := scene.Transform{Left: 10, Top: math.Inf(-1), Width: math.NaN(), Height: 20}
	res := Snap(moving, others, DefaultSnapConfig())
	got := res.Transform
	for _, v := range []float64{got.Left, got.Top, got.Width, got.Height, got.Rotate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite output: %+v", got)
		}
	}
	if got.Width != DefaultMinSize {
		t.Errorf("Width: got %v, want %v", got.Width, DefaultMinSize)
	}
	if got.Left != 8 {
		t.Errorf("Left: got %v, want 8 (grid)", got.Left)
	}
	for _, g := range res.Guides {
		if math.IsNaN(g.Position) || math.IsInf(g.Position, 0) {
			t.Errorf("non-finite guide: %+v", g)
		}
	}
	for _, g := range res.Guides {
		if g.Axis == Vertical {
			t.Errorf("unexpected vertical guide: %+v", g)
		}
	}
}

func TestHandleAt(t *testing.T) {
	box := scene.Transform{Left: 100, Top: 100, Width: 100, Height: 50}
	tests := []struct {
		pt   Point
		want Handle
	}{
		{Point{X: 100, Y: 100}, HandleNW},
		{Point{X: 202, Y: 151}, HandleSE},
		{Point{X: 150, Y: 100}, HandleN},
		{Point{X: 150, Y: 76}, HandleRotate},
	}
	for _, tt := range tests {
		got, ok := HandleAt(tt.pt, box, 8)
		if !ok || got != tt.want {
			t.Errorf("HandleAt(%v): got %q,%v want %q", tt.pt, got, ok, tt.want)
		}
	}
	if _, ok := HandleAt(Point{X: 150, Y: 125}, box, 8); ok {
		t.Error("box interior is not a handle")
	}
}
