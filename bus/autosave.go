package bus

import (
	"context"
	"time"
)

// autosaver debounces save requests: every kick restarts the window and the
// save runs once the window passes without a kick.
type autosaver struct {
	window  time.Duration
	save    func()
	kicks   chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func newAutosaver(window time.Duration, save func()) *autosaver {
	return &autosaver{
		window:  window,
		save:    save,
		kicks:   make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (a *autosaver) kick() {
	select {
	case a.kicks <- struct{}{}:
	default:
	}
}

func (a *autosaver) run() {
	defer close(a.stopped)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-a.kicks:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(a.window)
			timerC = timer.C
		case <-timerC:
			timer, timerC = nil, nil
			a.save()
		case <-a.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (a *autosaver) stop() {
	close(a.done)
	<-a.stopped
}

// autosave runs on the autosaver goroutine. Failures are warnings.
func (b *Bus) autosave() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Save(ctx); err != nil {
		b.warn(err)
	}
}
