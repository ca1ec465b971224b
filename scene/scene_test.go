package scene

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

var manual = Context{Timestamp: 1_700_000_000_000, Source: SourceManual}

func absolute(id string, t Transform) Element {
	return Element{
		ID:          id,
		Type:        TypeText,
		Mode:        ModeAbsolute,
		Content:     TextContent{Text: id},
		Breakpoints: map[Breakpoint]Transform{Desktop: t},
	}
}

func mustApply(t *testing.T, s *Scene, cmd Command) {
	t.Helper()
	if err := s.Apply(cmd); err != nil {
		t.Fatalf("Apply(%s): %v", cmd.Type, err)
	}
}

func TestApply_InsertAssignsSeqAndTimestamps(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(absolute("a", Transform{Width: 10, Height: 10}), manual))
	mustApply(t, s, Insert(absolute("b", Transform{Width: 10, Height: 10}), manual))

	a, _ := s.Get("a")
	b, _ := s.Get("b")
	if a.Seq >= b.Seq {
		t.Errorf("seq: a=%d b=%d, want a < b", a.Seq, b.Seq)
	}
	if a.CreatedAt != manual.Timestamp || a.UpdatedAt != manual.Timestamp {
		t.Errorf("timestamps: got %d/%d, want %d", a.CreatedAt, a.UpdatedAt, manual.Timestamp)
	}
}

func TestApply_RejectsDuplicateInsert(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(absolute("a", Transform{Width: 10, Height: 10}), manual))
	err := s.Apply(Insert(absolute("a", Transform{Width: 20, Height: 20}), manual))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.ElementID != "a" {
		t.Errorf("ElementID: got %q, want %q", ve.ElementID, "a")
	}
}

func TestApply_InvalidInserts(t *testing.T) {
	tests := []struct {
		name string
		el   Element
	}{
		{"missing id", Element{Type: TypeText, Mode: ModeFlow}},
		{"unknown type", Element{ID: "x", Type: "widget", Mode: ModeFlow}},
		{"absolute without transform", Element{ID: "x", Type: TypeText, Mode: ModeAbsolute}},
		{"zero width", absolute("x", Transform{Width: 0, Height: 10})},
		{"flow with transform", Element{ID: "x", Type: TypeText, Mode: ModeFlow, Breakpoints: map[Breakpoint]Transform{Desktop: {Width: 1, Height: 1}}}},
		{"media on text", Element{ID: "x", Type: TypeText, Mode: ModeFlow, Content: MediaContent{Src: "a.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			if err := s.Apply(Insert(tt.el, manual)); err == nil {
				t.Fatal("expected error")
			}
			if s.Len() != 0 {
				t.Errorf("Len: got %d, want 0", s.Len())
			}
		})
	}
}

func TestApply_TransformRejectsFlow(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(Element{ID: "f", Type: TypeText, Mode: ModeFlow, StableID: "s-1"}, manual))
	err := s.Apply(Move("f", Desktop, Transform{Width: 5, Height: 5}, manual))
	if err == nil {
		t.Fatal("expected error for flow transform")
	}
}

func TestApply_MissingSource(t *testing.T) {
	s := New()
	err := s.Apply(Insert(absolute("a", Transform{Width: 1, Height: 1}), Context{}))
	if err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestApply_UpdateText(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(Element{ID: "btn", Type: TypeButton, Mode: ModeFlow, Content: LinkContent{Href: "/go", Label: "Go"}}, manual))
	mustApply(t, s, UpdateText("btn", "Start", manual))

	el, _ := s.Get("btn")
	link, ok := el.Content.(LinkContent)
	if !ok {
		t.Fatalf("content: got %T, want LinkContent", el.Content)
	}
	if link.Label != "Start" || link.Href != "/go" {
		t.Errorf("content: got %+v", link)
	}

	mustApply(t, s, Insert(Element{ID: "img", Type: TypeImage, Mode: ModeFlow, Content: MediaContent{Src: "a.png"}}, manual))
	if err := s.Apply(UpdateText("img", "nope", manual)); err == nil {
		t.Fatal("expected error for update_text on image")
	}
}

func TestApply_UpdateAttrMergesStyles(t *testing.T) {
	s := New()
	el := absolute("a", Transform{Width: 10, Height: 10})
	el.Styles = map[string]string{"color": "red", "font-size": "12px"}
	mustApply(t, s, Insert(el, manual))

	z := 5
	mustApply(t, s, UpdateAttr(UpdateAttrPayload{
		ID:     "a",
		Styles: map[string]string{"color": "", "font-weight": "700"},
		ZIndex: &z,
	}, manual))

	got, _ := s.Get("a")
	if _, ok := got.Styles["color"]; ok {
		t.Error("color should be removed")
	}
	if got.Styles["font-weight"] != "700" || got.Styles["font-size"] != "12px" {
		t.Errorf("styles: got %v", got.Styles)
	}
	if got.ZIndex != 5 {
		t.Errorf("ZIndex: got %d, want 5", got.ZIndex)
	}
}

func TestApply_UpdateAttrRejectsWrongContentAttr(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(absolute("a", Transform{Width: 10, Height: 10}), manual))
	err := s.Apply(UpdateAttr(UpdateAttrPayload{ID: "a", Attrs: map[string]string{"src": "x.png"}}, manual))
	if err == nil {
		t.Fatal("expected error for src on text element")
	}
}

func TestApply_BatchIsAtomic(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(absolute("a", Transform{Width: 10, Height: 10}), manual))

	bad := Batch([]Command{
		Insert(absolute("b", Transform{Width: 10, Height: 10}), manual),
		Delete("missing", manual),
	}, manual)
	if err := s.Apply(bad); err == nil {
		t.Fatal("expected batch error")
	}
	if _, ok := s.Get("b"); ok {
		t.Error("partial batch must not be applied")
	}

	good := Batch([]Command{
		Delete("a", manual),
		Insert(absolute("a", Transform{Width: 30, Height: 30}), manual),
	}, manual)
	mustApply(t, s, good)
	a, _ := s.Get("a")
	if tr, _ := a.TransformAt(Desktop); tr.Width != 30 {
		t.Errorf("width: got %v, want 30", tr.Width)
	}
}

func TestStableIndex_FollowsWrites(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(Element{ID: "f", StableID: "s-1", Type: TypeText, Mode: ModeFlow}, manual))
	if !s.hasFlowStable("s-1") || s.hasAbsoluteStable("s-1") {
		t.Fatalf("after insert: got %+v", s.stable["s-1"])
	}

	unlocked := absolute("u", Transform{Width: 10, Height: 10})
	unlocked.StableID = "s-1"
	bad := Batch([]Command{Delete("f", manual), Insert(unlocked, manual), Delete("missing", manual)}, manual)
	if err := s.Apply(bad); err == nil {
		t.Fatal("expected batch error")
	}
	if !s.hasFlowStable("s-1") || s.hasAbsoluteStable("s-1") {
		t.Errorf("failed batch leaked into the index: %+v", s.stable["s-1"])
	}
	if _, ok := s.Get("f"); !ok {
		t.Error("failed batch removed f")
	}
	if s.nextSeq != 2 {
		t.Errorf("nextSeq after failed batch: got %d, want 2", s.nextSeq)
	}

	mustApply(t, s, Batch([]Command{Delete("f", manual), Insert(unlocked, manual)}, manual))
	if s.hasFlowStable("s-1") || !s.hasAbsoluteStable("s-1") {
		t.Errorf("after unlock: got %+v", s.stable["s-1"])
	}
	c := s.Clone()
	if !c.hasAbsoluteStable("s-1") {
		t.Error("clone lost the stable index")
	}

	mustApply(t, s, Delete("u", manual))
	if len(s.stable) != 0 {
		t.Errorf("index after delete: got %+v, want empty", s.stable)
	}
	if got := s.ByStableID("s-1"); len(got) != 0 {
		t.Errorf("ByStableID after delete: got %d elements", len(got))
	}
	if !c.hasAbsoluteStable("s-1") {
		t.Error("clone shares the index with its source")
	}
}

func TestApply_StableUnlockIsOneWay(t *testing.T) {
	s := New()
	mustApply(t, s, Insert(Element{ID: "f", StableID: "s-1", Type: TypeText, Mode: ModeFlow}, manual))

	unlocked := absolute("f", Transform{Width: 10, Height: 10})
	unlocked.StableID = "s-1"
	mustApply(t, s, Batch([]Command{Delete("f", manual), Insert(unlocked, manual)}, manual))

	again := absolute("g", Transform{Width: 10, Height: 10})
	again.StableID = "s-1"
	if err := s.Apply(Insert(again, manual)); err == nil {
		t.Fatal("second absolute element for the same stable node must be rejected")
	}
}

func TestTransformAt_Fallback(t *testing.T) {
	d := Transform{Left: 1, Width: 1, Height: 1}
	tb := Transform{Left: 2, Width: 1, Height: 1}
	m := Transform{Left: 3, Width: 1, Height: 1}

	tests := []struct {
		name string
		bps  map[Breakpoint]Transform
		at   Breakpoint
		want float64
	}{
		{"desktop only, mobile query", map[Breakpoint]Transform{Desktop: d}, Mobile, 1},
		{"desktop only, tablet query", map[Breakpoint]Transform{Desktop: d}, Tablet, 1},
		{"tablet wins for mobile", map[Breakpoint]Transform{Desktop: d, Tablet: tb}, Mobile, 2},
		{"exact mobile", map[Breakpoint]Transform{Desktop: d, Mobile: m}, Mobile, 3},
		{"mobile only, desktop query", map[Breakpoint]Transform{Mobile: m}, Desktop, 3},
		{"tablet and mobile, desktop query", map[Breakpoint]Transform{Tablet: tb, Mobile: m}, Desktop, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := Element{Breakpoints: tt.bps}
			got, ok := el.TransformAt(tt.at)
			if !ok {
				t.Fatal("expected a transform")
			}
			if got.Left != tt.want {
				t.Errorf("Left: got %v, want %v", got.Left, tt.want)
			}
		})
	}

	if _, ok := (Element{}).TransformAt(Desktop); ok {
		t.Error("element without transforms must not resolve")
	}
}

func TestBreakpointForWidth(t *testing.T) {
	tests := []struct {
		width float64
		want  Breakpoint
	}{
		{1440, Desktop}, {1024, Desktop}, {1023, Tablet}, {768, Tablet}, {767, Mobile}, {375, Mobile},
	}
	for _, tt := range tests {
		if got := BreakpointForWidth(tt.width); got != tt.want {
			t.Errorf("BreakpointForWidth(%v): got %q, want %q", tt.width, got, tt.want)
		}
	}
}

func TestRotation_Normalized(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {45, 45}, {360, 0}, {370, 10}, {-90, 270}, {-720, 0},
	}
	for _, tt := range tests {
		if got := (Transform{Rotate: tt.in}).Rotation(); got != tt.want {
			t.Errorf("Rotation(%v): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCommandJSON_StableEncoding(t *testing.T) {
	el := absolute("a", Transform{Left: 10, Top: 20, Width: 100, Height: 50, Rotate: 15})
	el.Styles = map[string]string{"z": "1", "a": "2"}
	el.Breakpoints[Mobile] = Transform{Width: 50, Height: 25}
	cmd := Batch([]Command{
		Insert(el, manual),
		UpdateText("a", "hello", manual),
	}, Context{Timestamp: 1, Source: SourceAI, Description: "generate"})

	first, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Command
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("encoding not stable:\n%s\n%s", first, second)
	}
	if decoded.Len() != 2 {
		t.Errorf("Len: got %d, want 2", decoded.Len())
	}

	ins := decoded.Payload.(*BatchPayload).Commands[0].Payload.(*InsertPayload)
	if _, ok := ins.Element.Content.(TextContent); !ok {
		t.Errorf("content: got %T, want TextContent", ins.Element.Content)
	}
}

func TestCommandJSON_UnknownType(t *testing.T) {
	var c Command
	if err := json.Unmarshal([]byte(`{"type":"explode","payload":{}}`), &c); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
