package geom

import (
	"math"

	"github.com/hazyhaar/canvas/scene"
)

// Axis is the orientation of a snap guide line.
type Axis string

const (
	// Vertical guides are x positions.
	Vertical Axis = "vertical"
	// Horizontal guides are y positions.
	Horizontal Axis = "horizontal"
)

// Guide is a transient alignment line shown while dragging.
type Guide struct {
	Axis     Axis    `json:"axis"`
	Position float64 `json:"position"`
	Label    string  `json:"label,omitempty"`
}

// SnapConfig tunes Snap. A Grid of 0 disables grid snapping.
type SnapConfig struct {
	Threshold     float64 `yaml:"threshold" json:"threshold"`
	Grid          float64 `yaml:"grid" json:"grid"`
	GridThreshold float64 `yaml:"grid_threshold" json:"grid_threshold"`
}

// DefaultSnapConfig returns the editor defaults: 8px element threshold,
// 8px grid with a 4px threshold.
func DefaultSnapConfig() SnapConfig {
	return SnapConfig{Threshold: 8, Grid: 8, GridThreshold: 4}
}

// SnapResult is the snapped transform and the guides that produced it.
type SnapResult struct {
	Transform scene.Transform
	Guides    []Guide
}

type anchor struct {
	label string
	pos   float64
}

func xAnchors(t scene.Transform) []anchor {
	cx, _ := t.Center()
	return []anchor{{"left", t.Left}, {"center", cx}, {"right", t.Right()}}
}

func yAnchors(t scene.Transform) []anchor {
	_, cy := t.Center()
	return []anchor{{"top", t.Top}, {"middle", cy}, {"bottom", t.Bottom()}}
}

// Snap aligns moving to the edges and centers of others, then to the grid on
// any axis that did not align. Neither step moves the box by more than its
// threshold. Element alignment emits a guide per snapped axis.
func Snap(moving scene.Transform, others []scene.Transform, cfg SnapConfig) SnapResult {
	moving = sanitize(moving, DefaultMinSize)
	res := SnapResult{Transform: moving}

	dx, gx, okx := bestOffset(xAnchors(moving), others, xAnchors, cfg.Threshold)
	if okx {
		res.Transform.Left += dx
		res.Guides = append(res.Guides, Guide{Axis: Vertical, Position: gx.pos, Label: gx.label})
	} else if d, ok := gridOffset(moving.Left, cfg); ok {
		res.Transform.Left += d
	}

	dy, gy, oky := bestOffset(yAnchors(moving), others, yAnchors, cfg.Threshold)
	if oky {
		res.Transform.Top += dy
		res.Guides = append(res.Guides, Guide{Axis: Horizontal, Position: gy.pos, Label: gy.label})
	} else if d, ok := gridOffset(moving.Top, cfg); ok {
		res.Transform.Top += d
	}
	return res
}

// bestOffset finds the smallest displacement within threshold that aligns
// one of the moving anchors with a target anchor. The first candidate wins
// on ties so the result is deterministic for a given input order.
func bestOffset(mine []anchor, others []scene.Transform, anchors func(scene.Transform) []anchor, threshold float64) (float64, anchor, bool) {
	if threshold <= 0 || math.IsNaN(threshold) {
		return 0, anchor{}, false
	}
	var (
		best  float64
		guide anchor
		found bool
	)
	for _, o := range others {
		for _, target := range anchors(o) {
			if math.IsNaN(target.pos) || math.IsInf(target.pos, 0) {
				continue
			}
			for _, m := range mine {
				if math.IsNaN(m.pos) || math.IsInf(m.pos, 0) {
					continue
				}
				d := target.pos - m.pos
				if math.Abs(d) > threshold {
					continue
				}
				if !found || math.Abs(d) < math.Abs(best) {
					best, found = d, true
					guide = anchor{label: m.label + ":" + target.label, pos: target.pos}
				}
			}
		}
	}
	return best, guide, found
}

func gridOffset(v float64, cfg SnapConfig) (float64, bool) {
	if cfg.Grid <= 0 || math.IsNaN(cfg.Grid) || math.IsInf(cfg.Grid, 0) {
		return 0, false
	}
	d := math.Round(v/cfg.Grid)*cfg.Grid - v
	if math.Abs(d) > cfg.GridThreshold {
		return 0, false
	}
	return d, true
}
