package geom

import "math"

// Rotate returns the rotation in degrees after dragging the rotate handle
// from start to current around c, given the rotation before the drag. The
// result is normalized into [0, 360).
func Rotate(c, start, current Point, startDeg float64) float64 {
	c, start, current = finitePoint(c), finitePoint(start), finitePoint(current)
	a0 := math.Atan2(start.Y-c.Y, start.X-c.X)
	a1 := math.Atan2(current.Y-c.Y, current.X-c.X)
	return normalizeDeg(finite(startDeg) + (a1-a0)*180/math.Pi)
}

// SnapAngle rounds deg to the nearest multiple of step. A step <= 0
// returns deg normalized.
func SnapAngle(deg, step float64) float64 {
	deg = finite(deg)
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return normalizeDeg(deg)
	}
	return normalizeDeg(math.Round(deg/step) * step)
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
