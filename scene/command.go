// CLAUDE:SUMMARY Command envelope, sealed payload variants and their JSON wire form.
package scene

import (
	"encoding/json"
	"fmt"
)

// CommandType names the mutation a command performs.
type CommandType string

const (
	CmdInsert     CommandType = "insert"
	CmdDelete     CommandType = "delete"
	CmdTransform  CommandType = "transform"
	CmdUpdateText CommandType = "update_text"
	CmdUpdateAttr CommandType = "update_attr"
	CmdBatch      CommandType = "batch"
)

// Source records who issued a command.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAI        Source = "ai"
	SourceAuto      Source = "auto"
	SourceHydration Source = "hydration"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceAI, SourceAuto, SourceHydration:
		return true
	}
	return false
}

// Context is the provenance attached to every command.
type Context struct {
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds
	Source      Source `json:"source"`
	Description string `json:"description,omitempty"`
}

// Payload is implemented by exactly the payload types of this package.
// Adding a command kind means adding a type with this method set, so a
// missing handler is a compile error rather than a runtime default.
type Payload interface {
	commandType() CommandType
	// validate checks the payload shape without looking at any scene.
	validate() error
	// check verifies preconditions against s without mutating it.
	check(s *Scene) error
	// apply mutates s. It is only called after check succeeded.
	apply(s *Scene, ctx Context)
}

// Command is one atomic, replayable state transition.
type Command struct {
	Type    CommandType
	Payload Payload
	Context Context
}

// InsertPayload adds a new element.
type InsertPayload struct {
	Element Element `json:"element"`
}

// DeletePayload removes an element.
type DeletePayload struct {
	ID string `json:"id"`
}

// TransformPayload sets an absolute element's transform at one breakpoint.
type TransformPayload struct {
	ID         string     `json:"id"`
	Breakpoint Breakpoint `json:"breakpoint"`
	Transform  Transform  `json:"transform"`
}

// UpdateTextPayload replaces the text of a text or button element.
type UpdateTextPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// UpdateAttrPayload merges styles and content attributes into an element.
// A style value of "" removes the property. ZIndex, when set, replaces the
// stacking order.
type UpdateAttrPayload struct {
	ID     string            `json:"id"`
	Styles map[string]string `json:"styles,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
	ZIndex *int              `json:"zIndex,omitempty"`
}

// BatchPayload applies several commands atomically as one history entry.
type BatchPayload struct {
	Commands []Command `json:"commands"`
}

func newCommand(p Payload, ctx Context) Command {
	return Command{Type: p.commandType(), Payload: p, Context: ctx}
}

// Insert builds an insert command.
func Insert(el Element, ctx Context) Command { return newCommand(&InsertPayload{Element: el}, ctx) }

// Delete builds a delete command.
func Delete(id string, ctx Context) Command { return newCommand(&DeletePayload{ID: id}, ctx) }

// Move builds a transform command.
func Move(id string, bp Breakpoint, t Transform, ctx Context) Command {
	return newCommand(&TransformPayload{ID: id, Breakpoint: bp, Transform: t}, ctx)
}

// UpdateText builds an update_text command.
func UpdateText(id, text string, ctx Context) Command {
	return newCommand(&UpdateTextPayload{ID: id, Text: text}, ctx)
}

// UpdateAttr builds an update_attr command.
func UpdateAttr(p UpdateAttrPayload, ctx Context) Command { return newCommand(&p, ctx) }

// Batch builds a batch command.
func Batch(cmds []Command, ctx Context) Command {
	return newCommand(&BatchPayload{Commands: cmds}, ctx)
}

// Validate checks the command's shape without a scene.
func (c Command) Validate() error {
	if c.Payload == nil {
		return invalid(c.Type, "", "missing payload")
	}
	if c.Type != c.Payload.commandType() {
		return invalid(c.Type, "", "payload is a %s payload", c.Payload.commandType())
	}
	if !c.Context.Source.Valid() {
		return invalid(c.Type, "", "unknown source %q", c.Context.Source)
	}
	return c.Payload.validate()
}

// Targets returns the element ids touched by c, batch members included.
func (c Command) Targets() []string {
	switch p := c.Payload.(type) {
	case *InsertPayload:
		return []string{p.Element.ID}
	case *DeletePayload:
		return []string{p.ID}
	case *TransformPayload:
		return []string{p.ID}
	case *UpdateTextPayload:
		return []string{p.ID}
	case *UpdateAttrPayload:
		return []string{p.ID}
	case *BatchPayload:
		var ids []string
		for _, sub := range p.Commands {
			ids = append(ids, sub.Targets()...)
		}
		return ids
	}
	return nil
}

// Len returns the number of leaf commands in c.
func (c Command) Len() int {
	if b, ok := c.Payload.(*BatchPayload); ok {
		n := 0
		for _, sub := range b.Commands {
			n += sub.Len()
		}
		return n
	}
	return 1
}

type commandJSON struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Context Context         `json:"context"`
}

// MarshalJSON encodes the command as {"type","payload","context"}.
func (c Command) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(c.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandJSON{Type: c.Type, Payload: payload, Context: c.Context})
}

// UnmarshalJSON decodes the payload according to the type tag.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw commandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var p Payload
	switch raw.Type {
	case CmdInsert:
		p = &InsertPayload{}
	case CmdDelete:
		p = &DeletePayload{}
	case CmdTransform:
		p = &TransformPayload{}
	case CmdUpdateText:
		p = &UpdateTextPayload{}
	case CmdUpdateAttr:
		p = &UpdateAttrPayload{}
	case CmdBatch:
		p = &BatchPayload{}
	default:
		return fmt.Errorf("scene: unknown command type %q", raw.Type)
	}
	if len(raw.Payload) > 0 && string(raw.Payload) != "null" {
		if err := json.Unmarshal(raw.Payload, p); err != nil {
			return fmt.Errorf("scene: decode %s payload: %w", raw.Type, err)
		}
	}
	c.Type = raw.Type
	c.Payload = p
	c.Context = raw.Context
	return nil
}
