package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/canvas/scene"
)

// Record is the persisted form of a session.
type Record struct {
	History      []scene.Command          `json:"history"`
	CurrentIndex int                      `json:"currentIndex"`
	Elements     map[string]scene.Element `json:"elements"`
}

// Snapshot returns the current session record.
func (b *Bus) Snapshot() Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Bus) snapshot() Record {
	return Record{
		History:      append(make([]scene.Command, 0, len(b.hist.commands)), b.hist.commands...),
		CurrentIndex: b.hist.current,
		Elements:     b.sc.Elements(),
	}
}

// Marshal encodes the current session record.
func (b *Bus) Marshal() ([]byte, error) {
	return json.Marshal(b.Snapshot())
}

// Save writes the session record. Failures are returned as
// *PersistenceError; the in-memory session is unaffected.
func (b *Bus) Save(ctx context.Context) error {
	if b.persister == nil {
		return ErrNoPersister
	}
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	b.mu.Lock()
	rec, version := b.snapshot(), b.version
	b.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return &PersistenceError{Op: "save", Key: b.key, Err: err}
	}
	if err := b.persister.SaveSession(ctx, b.key, data); err != nil {
		return &PersistenceError{Op: "save", Key: b.key, Err: err}
	}

	b.mu.Lock()
	if version > b.saved {
		b.saved = version
	}
	b.mu.Unlock()
	b.logger.Debug("bus: saved", "key", b.key, "bytes", len(data), "index", rec.CurrentIndex)
	return nil
}

// Load replaces the session with the persisted record. A missing record
// leaves an empty session and returns (false, nil). A corrupt or unreadable
// record also leaves an empty session and returns *PersistenceError, which
// callers should surface as a warning.
func (b *Bus) Load(ctx context.Context) (bool, error) {
	if b.persister == nil {
		return false, ErrNoPersister
	}
	data, err := b.persister.LoadSession(ctx, b.key)
	if err != nil {
		b.reset(ctx)
		return false, &PersistenceError{Op: "load", Key: b.key, Err: err}
	}
	if data == nil {
		b.reset(ctx)
		return false, nil
	}
	if err := b.Restore(ctx, data); err != nil {
		b.reset(ctx)
		return false, err
	}
	return true, nil
}

// Restore replaces the session with an encoded record. On error the session
// is unchanged.
func (b *Bus) Restore(ctx context.Context, data []byte) error {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return &PersistenceError{Op: "decode", Key: b.key, Err: err}
	}
	if rec.CurrentIndex < -1 || rec.CurrentIndex >= len(rec.History) {
		return &PersistenceError{Op: "decode", Key: b.key,
			Err: fmt.Errorf("currentIndex %d out of range for %d commands", rec.CurrentIndex, len(rec.History))}
	}

	h := newHistory(b.interval)
	h.commands = rec.History
	h.current = rec.CurrentIndex
	sc, err := h.replay()
	if err != nil {
		return &PersistenceError{Op: "replay", Key: b.key, Err: err}
	}
	if sc.Len() != len(rec.Elements) {
		return &PersistenceError{Op: "replay", Key: b.key,
			Err: fmt.Errorf("replay yields %d elements, record holds %d", sc.Len(), len(rec.Elements))}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.hist = h
	b.sc = sc
	b.version++
	b.saved = b.version
	if b.renderer != nil {
		if err := b.renderer.Render(ctx, b.sc); err != nil {
			b.logger.Warn("bus: render failed", "index", h.current, "error", err)
		}
	}
	b.logger.Info("bus: restored", "key", b.key, "commands", len(h.commands), "index", h.current, "elements", sc.Len())
	return nil
}

func (b *Bus) reset(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hist = newHistory(b.interval)
	b.sc = scene.New()
	b.version++
	b.saved = b.version
	if b.renderer != nil {
		if err := b.renderer.Render(ctx, b.sc); err != nil {
			b.logger.Warn("bus: render failed", "error", err)
		}
	}
}
