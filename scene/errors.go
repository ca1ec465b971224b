package scene

import "fmt"

// ValidationError is returned when a command is malformed or its
// preconditions do not hold against the current scene. A command that fails
// validation is never applied and never enters history.
type ValidationError struct {
	Type      CommandType
	ElementID string
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.ElementID != "" {
		return fmt.Sprintf("scene: invalid %s command on %q: %s", e.Type, e.ElementID, e.Reason)
	}
	return fmt.Sprintf("scene: invalid %s command: %s", e.Type, e.Reason)
}

func invalid(t CommandType, id, format string, args ...any) *ValidationError {
	return &ValidationError{Type: t, ElementID: id, Reason: fmt.Sprintf(format, args...)}
}
