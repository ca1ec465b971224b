package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/hazyhaar/canvas/scene"
)

// Queue collects the commands produced by an asynchronous builder.
type Queue struct {
	mu   sync.Mutex
	cmds []scene.Command
	ctx  scene.Context
	set  bool
}

// Push queues cmd. Shape errors are reported immediately.
func (q *Queue) Push(cmd scene.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	q.cmds = append(q.cmds, cmd)
	q.mu.Unlock()
	return nil
}

// SetContext sets the provenance of the committed batch. By default the
// batch takes the context of its first command.
func (q *Queue) SetContext(c scene.Context) {
	q.mu.Lock()
	q.ctx, q.set = c, true
	q.mu.Unlock()
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

func (q *Queue) batch(now int64) (scene.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.cmds) == 0 {
		return scene.Command{}, false
	}
	c := q.ctx
	if !q.set {
		c = q.cmds[0].Context
	}
	if c.Timestamp == 0 {
		c.Timestamp = now
	}
	return scene.Batch(append([]scene.Command(nil), q.cmds...), c), true
}

// DispatchAsync runs build without holding the bus lock, then commits every
// queued command as one batch history entry. If build fails or any queued
// command is rejected, nothing is applied. An empty queue is a no-op and
// returns 0.
func (b *Bus) DispatchAsync(ctx context.Context, build func(ctx context.Context, q *Queue) error) (int, error) {
	q := &Queue{}
	if err := build(ctx, q); err != nil {
		return 0, fmt.Errorf("bus: async build: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cmd, ok := q.batch(b.now().UnixMilli())
	if !ok {
		return 0, nil
	}
	if err := b.Dispatch(ctx, cmd); err != nil {
		return 0, err
	}
	return cmd.Len(), nil
}
