package scene

import (
	"maps"
	"slices"
)

// --- insert ---

func (*InsertPayload) commandType() CommandType { return CmdInsert }

func (p *InsertPayload) validate() error {
	if err := p.Element.check(); err != nil {
		return invalid(CmdInsert, p.Element.ID, "%v", err)
	}
	return nil
}

func (p *InsertPayload) check(s *Scene) error {
	el := p.Element
	if _, ok := s.elements[el.ID]; ok {
		return invalid(CmdInsert, el.ID, "element already exists")
	}
	if el.StableID != "" {
		switch el.Mode {
		case ModeAbsolute:
			if s.hasAbsoluteStable(el.StableID) {
				return invalid(CmdInsert, el.ID, "stable node %q is already unlocked", el.StableID)
			}
		case ModeFlow:
			if s.hasFlowStable(el.StableID) || s.hasAbsoluteStable(el.StableID) {
				return invalid(CmdInsert, el.ID, "stable node %q is already bound", el.StableID)
			}
		}
	}
	return nil
}

func (p *InsertPayload) apply(s *Scene, ctx Context) {
	el := p.Element.Clone()
	el.Seq = s.nextSeq
	s.nextSeq++
	el.CreatedAt = ctx.Timestamp
	el.UpdatedAt = ctx.Timestamp
	s.put(el)
}

// --- delete ---

func (*DeletePayload) commandType() CommandType { return CmdDelete }

func (p *DeletePayload) validate() error {
	if p.ID == "" {
		return invalid(CmdDelete, "", "element id is required")
	}
	return nil
}

func (p *DeletePayload) check(s *Scene) error {
	if _, ok := s.elements[p.ID]; !ok {
		return invalid(CmdDelete, p.ID, "no such element")
	}
	return nil
}

func (p *DeletePayload) apply(s *Scene, _ Context) {
	s.remove(p.ID)
}

// --- transform ---

func (*TransformPayload) commandType() CommandType { return CmdTransform }

func (p *TransformPayload) validate() error {
	if p.ID == "" {
		return invalid(CmdTransform, "", "element id is required")
	}
	if !p.Breakpoint.Valid() {
		return invalid(CmdTransform, p.ID, "unknown breakpoint %q", p.Breakpoint)
	}
	if err := p.Transform.check(); err != nil {
		return invalid(CmdTransform, p.ID, "%v", err)
	}
	return nil
}

func (p *TransformPayload) check(s *Scene) error {
	el, ok := s.elements[p.ID]
	if !ok {
		return invalid(CmdTransform, p.ID, "no such element")
	}
	if el.Mode != ModeAbsolute {
		return invalid(CmdTransform, p.ID, "flow elements cannot be transformed")
	}
	return nil
}

func (p *TransformPayload) apply(s *Scene, ctx Context) {
	el := s.elements[p.ID].Clone()
	if el.Breakpoints == nil {
		el.Breakpoints = make(map[Breakpoint]Transform, 1)
	}
	el.Breakpoints[p.Breakpoint] = p.Transform
	el.UpdatedAt = ctx.Timestamp
	s.put(el)
}

// --- update_text ---

func (*UpdateTextPayload) commandType() CommandType { return CmdUpdateText }

func (p *UpdateTextPayload) validate() error {
	if p.ID == "" {
		return invalid(CmdUpdateText, "", "element id is required")
	}
	return nil
}

func (p *UpdateTextPayload) check(s *Scene) error {
	el, ok := s.elements[p.ID]
	if !ok {
		return invalid(CmdUpdateText, p.ID, "no such element")
	}
	switch el.Content.(type) {
	case TextContent, LinkContent:
		return nil
	case nil:
		if el.Type == TypeText || el.Type == TypeButton {
			return nil
		}
	}
	return invalid(CmdUpdateText, p.ID, "%s element has no editable text", el.Type)
}

func (p *UpdateTextPayload) apply(s *Scene, ctx Context) {
	el := s.elements[p.ID].Clone()
	switch c := el.Content.(type) {
	case TextContent:
		c.Text = p.Text
		el.Content = c
	case LinkContent:
		c.Label = p.Text
		el.Content = c
	default:
		if el.Type == TypeButton {
			el.Content = LinkContent{Label: p.Text}
		} else {
			el.Content = TextContent{Text: p.Text}
		}
	}
	el.UpdatedAt = ctx.Timestamp
	s.put(el)
}

// --- update_attr ---

func (*UpdateAttrPayload) commandType() CommandType { return CmdUpdateAttr }

func (p *UpdateAttrPayload) validate() error {
	if p.ID == "" {
		return invalid(CmdUpdateAttr, "", "element id is required")
	}
	if len(p.Styles) == 0 && len(p.Attrs) == 0 && p.ZIndex == nil {
		return invalid(CmdUpdateAttr, p.ID, "nothing to update")
	}
	for k := range p.Styles {
		if k == "" {
			return invalid(CmdUpdateAttr, p.ID, "empty style property")
		}
	}
	return nil
}

func (p *UpdateAttrPayload) check(s *Scene) error {
	el, ok := s.elements[p.ID]
	if !ok {
		return invalid(CmdUpdateAttr, p.ID, "no such element")
	}
	if p.ZIndex != nil && el.Mode != ModeAbsolute {
		return invalid(CmdUpdateAttr, p.ID, "flow elements keep document order")
	}
	if len(p.Attrs) > 0 {
		if _, err := p.content(el); err != nil {
			return invalid(CmdUpdateAttr, p.ID, "%v", err)
		}
	}
	return nil
}

// content applies Attrs to the element's content in key order.
func (p *UpdateAttrPayload) content(el Element) (Content, error) {
	c := el.Content
	if c == nil {
		c = DefaultContent(el.Type)
	}
	for _, name := range slices.Sorted(maps.Keys(p.Attrs)) {
		next, err := c.withAttr(name, p.Attrs[name])
		if err != nil {
			return nil, err
		}
		c = next
	}
	return c, nil
}

func (p *UpdateAttrPayload) apply(s *Scene, ctx Context) {
	el := s.elements[p.ID].Clone()
	if len(p.Styles) > 0 {
		if el.Styles == nil {
			el.Styles = make(map[string]string, len(p.Styles))
		}
		for k, v := range p.Styles {
			if v == "" {
				delete(el.Styles, k)
			} else {
				el.Styles[k] = v
			}
		}
		if len(el.Styles) == 0 {
			el.Styles = nil
		}
	}
	if len(p.Attrs) > 0 {
		c, _ := p.content(el)
		el.Content = c
	}
	if p.ZIndex != nil {
		el.ZIndex = *p.ZIndex
	}
	el.UpdatedAt = ctx.Timestamp
	s.put(el)
}

// --- batch ---

func (*BatchPayload) commandType() CommandType { return CmdBatch }

func (p *BatchPayload) validate() error {
	if len(p.Commands) == 0 {
		return invalid(CmdBatch, "", "empty batch")
	}
	for i, sub := range p.Commands {
		if err := sub.Validate(); err != nil {
			return invalid(CmdBatch, "", "command %d: %v", i, err)
		}
	}
	return nil
}

// check dry-runs the whole batch inside a trial so a failure in any member
// rejects the batch and s ends up as it started.
func (p *BatchPayload) check(s *Scene) error {
	return s.trial(func() error {
		for i, sub := range p.Commands {
			if err := sub.Payload.check(s); err != nil {
				return invalid(CmdBatch, "", "command %d: %v", i, err)
			}
			sub.Payload.apply(s, sub.Context)
		}
		return nil
	})
}

func (p *BatchPayload) apply(s *Scene, _ Context) {
	for _, sub := range p.Commands {
		sub.Payload.apply(s, sub.Context)
	}
}
