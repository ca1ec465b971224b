package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToUndo is returned by Undo when CanUndo is false.
	ErrNothingToUndo = errors.New("bus: nothing to undo")
	// ErrNothingToRedo is returned by Redo when CanRedo is false.
	ErrNothingToRedo = errors.New("bus: nothing to redo")
	// ErrClosed is returned by every mutating call after Close.
	ErrClosed = errors.New("bus: closed")
	// ErrNoPersister is returned by Save and Load when no store is configured.
	ErrNoPersister = errors.New("bus: no persistence store configured")
)

// PersistenceError reports a failed read or write of the session record.
// It is a warning: the session keeps running in memory.
type PersistenceError struct {
	Op  string // "save", "load", "decode" or "replay"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("bus: persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
