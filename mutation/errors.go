package mutation

import "fmt"

// UnlockError is returned when a flow node cannot be converted to an
// absolute element. The scene is left untouched.
type UnlockError struct {
	StableID string
	Reason   string
	Err      error
}

func (e *UnlockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mutation: unlock %q: %s: %v", e.StableID, e.Reason, e.Err)
	}
	return fmt.Sprintf("mutation: unlock %q: %s", e.StableID, e.Reason)
}

func (e *UnlockError) Unwrap() error { return e.Err }
