package bus

import (
	"fmt"

	"github.com/hazyhaar/canvas/scene"
)

// history is the linear command log with periodic scene checkpoints.
// current is the index of the last applied command, -1 when none.
type history struct {
	commands    []scene.Command
	current     int
	interval    int
	checkpoints map[int]*scene.Scene // state after applying commands[k]
}

func newHistory(interval int) *history {
	return &history{current: -1, interval: interval, checkpoints: make(map[int]*scene.Scene)}
}

// push truncates the redo suffix and appends cmd, which the caller has
// already applied to sc.
func (h *history) push(cmd scene.Command, sc *scene.Scene) {
	if h.current < len(h.commands)-1 {
		for k := range h.checkpoints {
			if k > h.current {
				delete(h.checkpoints, k)
			}
		}
		clear(h.commands[h.current+1:])
		h.commands = h.commands[:h.current+1]
	}
	h.commands = append(h.commands, cmd)
	h.current++
	h.maybeCheckpoint(sc)
}

func (h *history) maybeCheckpoint(sc *scene.Scene) {
	if h.interval > 0 && (h.current+1)%h.interval == 0 {
		h.checkpoints[h.current] = sc.Clone()
	}
}

func (h *history) canUndo() bool { return h.current >= 0 }
func (h *history) canRedo() bool { return h.current < len(h.commands)-1 }

// stateAt rebuilds the scene after commands[target] by replaying forward
// from the nearest checkpoint at or before target.
func (h *history) stateAt(target int) (*scene.Scene, error) {
	base, from := scene.New(), 0
	best := -1
	for k := range h.checkpoints {
		if k <= target && k > best {
			best = k
		}
	}
	if best >= 0 {
		base, from = h.checkpoints[best].Clone(), best+1
	}
	for i := from; i <= target; i++ {
		if err := base.Apply(h.commands[i]); err != nil {
			return nil, fmt.Errorf("bus: replay command %d: %w", i, err)
		}
	}
	return base, nil
}

// replay rebuilds the whole log from empty, recording checkpoints, and
// returns the state at current. Used after loading a persisted record.
func (h *history) replay() (*scene.Scene, error) {
	clear(h.checkpoints)
	sc := scene.New()
	for i := 0; i <= h.current; i++ {
		if err := sc.Apply(h.commands[i]); err != nil {
			return nil, fmt.Errorf("bus: replay command %d: %w", i, err)
		}
		if h.interval > 0 && (i+1)%h.interval == 0 {
			h.checkpoints[i] = sc.Clone()
		}
	}
	return sc, nil
}
