// Package contentsource is the boundary to the product that owns the
// source documents. The editor only needs two operations from it: fetch the
// markup of a document and record which elements map to which stable ids.
package contentsource

import (
	"context"
	"errors"

	"github.com/hazyhaar/canvas/store"
)

// ErrNotFound is returned by FetchMarkup when the document does not exist.
var ErrNotFound = errors.New("contentsource: document not found")

// Mapping binds a scene element to a stable id.
type Mapping struct {
	ElementID string `json:"element_id"`
	StableID  string `json:"stable_id"`
	Mode      string `json:"mode"`
}

// Source fetches document markup and receives element mappings.
type Source interface {
	FetchMarkup(ctx context.Context, documentID string) (string, error)
	SaveElementMappings(ctx context.Context, documentID string, mappings []Mapping) error
}

// Local serves documents imported into the canvas database.
type Local struct {
	st *store.Store
}

// NewLocal returns a Source backed by st.
func NewLocal(st *store.Store) *Local {
	return &Local{st: st}
}

func (l *Local) FetchMarkup(ctx context.Context, documentID string) (string, error) {
	d, err := l.st.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if d == nil {
		return "", ErrNotFound
	}
	return d.HTML, nil
}

func (l *Local) SaveElementMappings(ctx context.Context, documentID string, mappings []Mapping) error {
	rows := make([]store.ElementMapping, len(mappings))
	for i, m := range mappings {
		rows[i] = store.ElementMapping{ElementID: m.ElementID, StableID: m.StableID, Mode: m.Mode}
	}
	return l.st.SaveElementMappings(ctx, documentID, rows)
}
