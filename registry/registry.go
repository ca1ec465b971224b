// CLAUDE:SUMMARY Stable-id → rendered node map with explicit sync against the surface and detached-node pruning.
// Package registry maps stable ids injected at ingestion to the live nodes
// of a surface. Lookups are plain map reads; liveness is re-established only
// by an explicit Sync after the surface changes.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hazyhaar/canvas/surface"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	nodes  map[string]surface.Node
	logger *slog.Logger
}

// SyncStats summarises a Sync pass.
type SyncStats struct {
	Registered int `json:"registered"`
	Pruned     int `json:"pruned"`
	Duplicates int `json:"duplicates"`
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{nodes: make(map[string]surface.Node), logger: logger}
}

// AddStable registers n under id. If id is already registered the existing
// node is kept and false is returned.
func (r *Registry) AddStable(id string, n surface.Node) bool {
	if id == "" || n == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; ok {
		return false
	}
	r.nodes[id] = n
	return true
}

// Get returns the node registered under id.
func (r *Registry) Get(id string) (surface.Node, bool) {
	r.mu.RLock()
	n, ok := r.nodes[id]
	r.mu.RUnlock()
	return n, ok
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// IDs returns the registered ids in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Sync rebuilds the map from the surface's stable nodes. Entries whose node
// is detached are dropped; on duplicate ids the first node in document order
// wins.
func (r *Registry) Sync(ctx context.Context, s surface.Surface) (SyncStats, error) {
	nodes, err := s.StableNodes(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("registry: sync: %w", err)
	}

	fresh := make(map[string]surface.Node, len(nodes))
	var stats SyncStats
	for _, n := range nodes {
		id := n.StableID()
		if id == "" {
			continue
		}
		if _, dup := fresh[id]; dup {
			stats.Duplicates++
			r.logger.Warn("registry: duplicate stable id", "stable_id", id, "tag", n.Tag())
			continue
		}
		fresh[id] = n
	}

	r.mu.Lock()
	for id := range r.nodes {
		if _, ok := fresh[id]; !ok {
			stats.Pruned++
		}
	}
	r.nodes = fresh
	r.mu.Unlock()

	stats.Registered = len(fresh)
	r.logger.Debug("registry: synced", "registered", stats.Registered, "pruned", stats.Pruned, "duplicates", stats.Duplicates)
	return stats, nil
}

// Prune drops registered nodes that are no longer attached. It returns the
// number of entries removed.
func (r *Registry) Prune(ctx context.Context) int {
	r.mu.RLock()
	snapshot := make(map[string]surface.Node, len(r.nodes))
	for id, n := range r.nodes {
		snapshot[id] = n
	}
	r.mu.RUnlock()

	var dead []string
	for id, n := range snapshot {
		if !n.Attached(ctx) {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return 0
	}
	r.mu.Lock()
	for _, id := range dead {
		if r.nodes[id] == snapshot[id] {
			delete(r.nodes, id)
		}
	}
	r.mu.Unlock()
	return len(dead)
}
