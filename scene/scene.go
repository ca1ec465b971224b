// CLAUDE:SUMMARY Scene element map with atomic command application and deterministic ordering.
package scene

import (
	"maps"
	"slices"
	"sort"
)

// Scene is the element map of a canvas session. The zero value is not
// usable; call New or FromElements. A Scene is not safe for concurrent use.
type Scene struct {
	elements map[string]Element
	nextSeq  int64

	// stable counts the elements bound to each stable id, per mode.
	stable map[string]stableModes

	// journal holds prior states while a trial is running.
	journal []journalEntry
	trials  int
}

type stableModes struct {
	absolute, flow int
}

type journalEntry struct {
	id   string
	prev Element
	had  bool
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{
		elements: make(map[string]Element),
		stable:   make(map[string]stableModes),
		nextSeq:  1,
	}
}

// FromElements builds a scene from a persisted element map.
func FromElements(elements map[string]Element) *Scene {
	s := New()
	for id, el := range elements {
		el = el.Clone()
		el.ID = id
		s.put(el)
		if el.Seq >= s.nextSeq {
			s.nextSeq = el.Seq + 1
		}
	}
	return s
}

// Apply validates cmd against s and applies it. On error s is unchanged.
func (s *Scene) Apply(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := cmd.Payload.check(s); err != nil {
		return err
	}
	cmd.Payload.apply(s, cmd.Context)
	return nil
}

// Get returns a copy of the element with id.
func (s *Scene) Get(id string) (Element, bool) {
	el, ok := s.elements[id]
	if !ok {
		return Element{}, false
	}
	return el.Clone(), true
}

// Len returns the number of elements.
func (s *Scene) Len() int { return len(s.elements) }

// Elements returns a deep copy of the element map.
func (s *Scene) Elements() map[string]Element {
	out := make(map[string]Element, len(s.elements))
	for id, el := range s.elements {
		out[id] = el.Clone()
	}
	return out
}

// Sorted returns all elements in paint order: ascending ZIndex, then
// insertion sequence.
func (s *Scene) Sorted() []Element {
	out := make([]Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, el.Clone())
	}
	SortPaintOrder(out)
	return out
}

// ByStableID returns the elements bound to a stable node, in paint order.
func (s *Scene) ByStableID(stableID string) []Element {
	if _, ok := s.stable[stableID]; !ok {
		return nil
	}
	var out []Element
	for _, el := range s.elements {
		if el.StableID == stableID {
			out = append(out, el.Clone())
		}
	}
	SortPaintOrder(out)
	return out
}

// IDs returns the element ids in lexical order.
func (s *Scene) IDs() []string {
	ids := slices.Collect(maps.Keys(s.elements))
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy of s.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		elements: make(map[string]Element, len(s.elements)),
		stable:   maps.Clone(s.stable),
		nextSeq:  s.nextSeq,
	}
	for id, el := range s.elements {
		c.elements[id] = el.Clone()
	}
	return c
}

// SortPaintOrder sorts elements by ascending ZIndex then Seq.
func SortPaintOrder(els []Element) {
	sort.SliceStable(els, func(i, j int) bool {
		if els[i].ZIndex != els[j].ZIndex {
			return els[i].ZIndex < els[j].ZIndex
		}
		if els[i].Seq != els[j].Seq {
			return els[i].Seq < els[j].Seq
		}
		return els[i].ID < els[j].ID
	})
}

func (s *Scene) hasAbsoluteStable(stableID string) bool {
	return s.stable[stableID].absolute > 0
}

func (s *Scene) hasFlowStable(stableID string) bool {
	return s.stable[stableID].flow > 0
}

// put stores el under its id. Every write to the element map goes through
// put or remove so the stable index and the trial journal stay current.
func (s *Scene) put(el Element) {
	old, had := s.elements[el.ID]
	s.record(el.ID, old, had)
	if had {
		s.unindex(old)
	}
	s.elements[el.ID] = el
	s.index(el)
}

func (s *Scene) remove(id string) {
	old, had := s.elements[id]
	if !had {
		return
	}
	s.record(id, old, had)
	s.unindex(old)
	delete(s.elements, id)
}

func (s *Scene) record(id string, prev Element, had bool) {
	if s.trials > 0 {
		s.journal = append(s.journal, journalEntry{id: id, prev: prev, had: had})
	}
}

// trial runs fn against s, then reverts every write fn made. Stored
// elements are never mutated in place, so the journal keeps them as is.
func (s *Scene) trial(fn func() error) error {
	mark, seq := len(s.journal), s.nextSeq
	s.trials++
	defer func() {
		for i := len(s.journal) - 1; i >= mark; i-- {
			e := s.journal[i]
			if cur, ok := s.elements[e.id]; ok {
				s.unindex(cur)
				delete(s.elements, e.id)
			}
			if e.had {
				s.elements[e.id] = e.prev
				s.index(e.prev)
			}
		}
		s.journal = s.journal[:mark]
		s.nextSeq = seq
		s.trials--
	}()
	return fn()
}

func (s *Scene) index(el Element) {
	if el.StableID == "" {
		return
	}
	m := s.stable[el.StableID]
	switch el.Mode {
	case ModeAbsolute:
		m.absolute++
	case ModeFlow:
		m.flow++
	}
	s.stable[el.StableID] = m
}

func (s *Scene) unindex(el Element) {
	if el.StableID == "" {
		return
	}
	m, ok := s.stable[el.StableID]
	if !ok {
		return
	}
	switch el.Mode {
	case ModeAbsolute:
		m.absolute--
	case ModeFlow:
		m.flow--
	}
	if m.absolute <= 0 && m.flow <= 0 {
		delete(s.stable, el.StableID)
		return
	}
	s.stable[el.StableID] = m
}
