package assist

import "fmt"

// ServiceError reports a failed or empty generation. No command from the
// failed call is ever dispatched.
type ServiceError struct {
	Status  int // HTTP status when the service answered, else 0
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("status %d: %s", e.Status, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("assist: %s: %v", msg, e.Err)
	}
	return "assist: " + msg
}

func (e *ServiceError) Unwrap() error { return e.Err }
