package editor

import "errors"

var (
	// ErrAssistDisabled is returned by Assist when no generator is configured.
	ErrAssistDisabled = errors.New("editor: assist is not configured")
	// ErrClosed is returned by Open after Close.
	ErrClosed = errors.New("editor: manager closed")
	// ErrNoStore is returned by operations that need the local store.
	ErrNoStore = errors.New("editor: no store configured")
)
