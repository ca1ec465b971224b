// Package mutation turns scene state into surface mutations. Compile derives
// the records that bring a surface in line with the scene; Apply executes
// them idempotently; Unlock captures a flow node as an absolute element.
package mutation

import "github.com/hazyhaar/canvas/scene"

// Op is the type of surface mutation.
type Op string

const (
	OpInsert  Op = "insert"   // ensure a canvas node exists with Tag
	OpRemove  Op = "remove"   // remove a canvas node
	OpText    Op = "text"     // replace text content (whitespace-insensitive compare)
	OpHTML    Op = "html"     // replace inner markup
	OpAttr    Op = "attr"     // set attribute Name to Value
	OpAttrDel Op = "attr_del" // remove attribute Name
	OpStyle   Op = "style"    // replace the managed inline style set
	OpVisible Op = "visible"  // show or hide the node
	OpPrune   Op = "prune"    // remove canvas nodes not listed in Keep
)

// TargetKind tells Apply how to resolve Record.Target.
type TargetKind string

const (
	TargetStable TargetKind = "stable" // Target is a stable id, resolved through the registry
	TargetCanvas TargetKind = "canvas" // Target is an element id, resolved on the surface
)

// Record is a single surface mutation.
type Record struct {
	Op      Op                `json:"op"`
	Kind    TargetKind        `json:"kind,omitempty"`
	Target  string            `json:"target,omitempty"`
	Tag     string            `json:"tag,omitempty"`
	Name    string            `json:"name,omitempty"`
	Value   string            `json:"value,omitempty"`
	Styles  map[string]string `json:"styles,omitempty"`
	Visible bool              `json:"visible,omitempty"`
	Keep    []string          `json:"keep,omitempty"`
}

// Batch is the unit emitted per render: every record needed to bring the
// surface in line with one scene state.
type Batch struct {
	ID         string           `json:"id"` // UUIDv7
	DocumentID string           `json:"document_id"`
	Seq        uint64           `json:"seq"` // monotonically increasing per engine
	Breakpoint scene.Breakpoint `json:"breakpoint"`
	Records    []Record         `json:"records"`
	Changes    int              `json:"changes"`   // effective changes after Apply
	Timestamp  int64            `json:"timestamp"` // epoch milliseconds at render
}
