package ingest

import "fmt"

// LoadError reports that a document's markup could not be obtained. A
// session never starts from a partial load.
type LoadError struct {
	DocumentID string
	Reason     string // "not found", "empty", "fetch", "parse"
	Err        error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest: load %q: %s: %v", e.DocumentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest: load %q: %s", e.DocumentID, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }
