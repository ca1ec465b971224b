package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/canvas/assist"
	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/interact"
	"github.com/hazyhaar/canvas/mutation"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/store"
)

const landing = `<!DOCTYPE html>
<html><head><title>Landing</title><script>alert(1)</script></head>
<body>
<h1>Welcome aboard</h1>
<p>Plan your trip in minutes.</p>
<img src="https://cdn.example.com/hero.png" alt="hero">
</body></html>`

var fixedNow = time.Unix(1_700_000_000, 0)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Autosave = time.Hour
	return cfg
}

// newManager opens a manager on st with the landing document imported.
func newManager(t *testing.T, st *store.Store, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithClock(func() time.Time { return fixedNow })}, opts...)
	m, err := NewManager(testConfig(), st, opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Import(context.Background(), "landing", "Landing", landing); err != nil {
		t.Fatalf("Import: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	return m
}

func openLanding(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Open(context.Background(), "landing")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func firstOfType(t *testing.T, s *Session, typ scene.ElementType) scene.Element {
	t.Helper()
	for _, el := range s.Elements() {
		if el.Type == typ {
			return el
		}
	}
	t.Fatalf("no %s element", typ)
	return scene.Element{}
}

var manual = scene.Context{Timestamp: fixedNow.UnixMilli(), Source: scene.SourceManual}

func box(id string) scene.Element {
	return scene.Element{
		ID:      id,
		Type:    scene.TypeText,
		Mode:    scene.ModeAbsolute,
		Content: scene.TextContent{Text: "note"},
		Breakpoints: map[scene.Breakpoint]scene.Transform{
			scene.Desktop: {Left: 40, Top: 40, Width: 200, Height: 48},
		},
	}
}

func TestOpen_HydratesAndReportsMappings(t *testing.T) {
	st := store.OpenMemory(t)
	m := newManager(t, st)
	s := openLanding(t, m)

	els := s.Elements()
	if len(els) != 3 {
		t.Fatalf("elements: got %d, want 3", len(els))
	}
	for _, el := range els {
		if el.Mode != scene.ModeFlow || el.StableID == "" {
			t.Fatalf("element %s: got mode %q stable %q, want flow with stable id", el.ID, el.Mode, el.StableID)
		}
	}
	hist := s.History()
	if len(hist) != 1 || hist[0].Source != scene.SourceHydration {
		t.Fatalf("history: got %+v, want one hydration entry", hist)
	}
	if err := s.Undo(context.Background()); !errors.Is(err, bus.ErrNothingToUndo) {
		t.Fatalf("undo past hydration: got %v, want ErrNothingToUndo", err)
	}

	html, err := s.Surface().HTML(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "alert(1)") {
		t.Fatal("script survived ingestion")
	}

	again := openLanding(t, m)
	if again != s {
		t.Fatal("second Open should return the cached session")
	}

	m.pipeline.Wait()
	maps, err := st.ListElementMappings(context.Background(), "landing")
	if err != nil {
		t.Fatal(err)
	}
	if len(maps) != 3 {
		t.Fatalf("mappings: got %d, want 3", len(maps))
	}
}

func TestOpen_UnknownDocument(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	_, err := m.Open(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown document")
	}
	if got := statusOf(err); got != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404 (%v)", got, err)
	}
}

func TestOpen_RestoresPersistedSession(t *testing.T) {
	st := store.OpenMemory(t)
	ctx := context.Background()

	m1, err := NewManager(testConfig(), st, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if err := m1.Import(ctx, "landing", "Landing", landing); err != nil {
		t.Fatal(err)
	}
	s1, err := m1.Open(ctx, "landing")
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.Dispatch(ctx, scene.Insert(box("note"), manual)); err != nil {
		t.Fatal(err)
	}
	if err := m1.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2 := newManager(t, st)
	s2 := openLanding(t, m2)
	if !s2.Status().Restored {
		t.Fatal("expected the session to be restored from the store")
	}
	if n := len(s2.Elements()); n != 4 {
		t.Fatalf("elements: got %d, want 4", n)
	}
	if n := len(s2.History()); n != 2 {
		t.Fatalf("history: got %d, want 2", n)
	}
	if _, ok := s2.Bus().Get("note"); !ok {
		t.Fatal("inserted element missing after restore")
	}
}

func TestUnlock_OneWay(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	s := openLanding(t, m)
	ctx := context.Background()
	flow := firstOfType(t, s, scene.TypeText)

	el, err := s.Unlock(ctx, flow.StableID)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if el.ID != flow.ID || el.Mode != scene.ModeAbsolute || el.StableID != flow.StableID {
		t.Fatalf("unlocked: got id %q mode %q stable %q", el.ID, el.Mode, el.StableID)
	}
	tr, ok := el.TransformAt(scene.Desktop)
	if !ok || tr.Width <= 0 || tr.Height <= 0 {
		t.Fatalf("unlocked transform: got %+v", tr)
	}
	if sel := s.Controller().Selected(); sel != el.ID {
		t.Fatalf("selection: got %q, want %q", sel, el.ID)
	}

	_, err = s.Unlock(ctx, flow.StableID)
	var ue *mutation.UnlockError
	if !errors.As(err, &ue) {
		t.Fatalf("second unlock: got %v, want *mutation.UnlockError", err)
	}

	if err := s.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	back, _ := s.Bus().Get(flow.ID)
	if back.Mode != scene.ModeFlow {
		t.Fatalf("after undo: got mode %q, want flow", back.Mode)
	}
}

func TestUnlock_TakesNestedFlowElements(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	ctx := context.Background()
	if err := m.Import(ctx, "nested", "Nested", `<p>Hello <b>world</b></p>`); err != nil {
		t.Fatal(err)
	}
	s, err := m.Open(ctx, "nested")
	if err != nil {
		t.Fatal(err)
	}
	els := s.Elements()
	if len(els) != 2 {
		t.Fatalf("elements: got %d, want 2", len(els))
	}
	var parent, child scene.Element
	for _, el := range els {
		if tc, ok := el.Content.(scene.TextContent); ok && tc.Text == "Hello world" {
			parent = el
		} else {
			child = el
		}
	}
	if parent.ID == "" || child.ID == "" {
		t.Fatalf("could not tell parent from child: %+v", els)
	}

	if _, err := s.Unlock(ctx, parent.StableID); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	after := s.Elements()
	if len(after) != 1 {
		t.Fatalf("elements after unlock: got %d, want 1", len(after))
	}
	if el, ok := s.Get(parent.ID); !ok || el.Mode != scene.ModeAbsolute {
		t.Fatalf("parent after unlock: got %+v", el)
	}
	if _, ok := s.Get(child.ID); ok {
		t.Fatal("nested flow element survived the unlock")
	}

	if err := s.Undo(ctx); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{parent.ID, child.ID} {
		el, ok := s.Get(id)
		if !ok || el.Mode != scene.ModeFlow {
			t.Errorf("after undo %s: got %+v, want flow", id, el)
		}
	}
}

func TestUnlock_UnknownStableID(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	s := openLanding(t, m)
	_, err := s.Unlock(context.Background(), "s-000000000000")
	var ue *mutation.UnlockError
	if !errors.As(err, &ue) {
		t.Fatalf("got %v, want *mutation.UnlockError", err)
	}
}

func TestAssist(t *testing.T) {
	var seen assist.Context
	gen := assist.GeneratorFunc(func(_ context.Context, prompt string, c assist.Context) (*assist.Response, error) {
		seen = c
		return &assist.Response{Commands: []scene.Command{scene.Insert(box("ai-note"), manual)}}, nil
	})
	m := newManager(t, store.OpenMemory(t), WithGenerator(gen))
	s := openLanding(t, m)

	n, err := s.Assist(context.Background(), "add a note", nil)
	if err != nil {
		t.Fatalf("Assist: %v", err)
	}
	if n != 1 {
		t.Fatalf("commands: got %d, want 1", n)
	}
	if !strings.Contains(seen.Outline, "Welcome aboard") {
		t.Fatalf("outline: got %q", seen.Outline)
	}
	if seen.DocumentID != "landing" || len(seen.Elements) != 3 {
		t.Fatalf("context: got doc %q with %d elements", seen.DocumentID, len(seen.Elements))
	}
	hist := s.History()
	if last := hist[len(hist)-1]; last.Source != scene.SourceAI {
		t.Fatalf("last entry source: got %q, want ai", last.Source)
	}
}

func TestAssist_Disabled(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	s := openLanding(t, m)
	if _, err := s.Assist(context.Background(), "anything", nil); !errors.Is(err, ErrAssistDisabled) {
		t.Fatalf("got %v, want ErrAssistDisabled", err)
	}
}

func TestBreakpoint_RendersAtNewBreakpoint(t *testing.T) {
	var batches []mutation.Batch
	m := newManager(t, store.OpenMemory(t), WithBatchHandler(func(_ context.Context, b mutation.Batch) error {
		batches = append(batches, b)
		return nil
	}))
	s := openLanding(t, m)

	if _, err := s.Key(context.Background(), "2"); err != nil {
		t.Fatal(err)
	}
	if bp := s.Controller().Breakpoint(); bp != scene.Tablet {
		t.Fatalf("controller: got %q, want tablet", bp)
	}
	if len(batches) == 0 || batches[len(batches)-1].Breakpoint != scene.Tablet {
		t.Fatal("expected a render at the tablet breakpoint")
	}
	if err := s.SetBreakpoint("watch"); err == nil {
		t.Fatal("expected error for unknown breakpoint")
	}
}

// --- MCP ---

func mcpSession(t *testing.T, m *Manager) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(&mcp.Implementation{Name: "canvas-test", Version: "0.0.1"}, nil)
	m.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text
}

func toolError(t *testing.T, session *mcp.ClientSession, name string, args any) error {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return result.GetError()
}

func TestMCP_EditRoundTrip(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	session := mcpSession(t, m)

	var listed ElementsResponse
	if err := json.Unmarshal([]byte(callTool(t, session, EndpointElements, map[string]any{"document_id": "landing"})), &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Elements) != 3 {
		t.Fatalf("elements: got %d, want 3", len(listed.Elements))
	}

	cmd, err := json.Marshal(scene.Insert(box("mcp-note"), scene.Context{Timestamp: 1, Source: scene.SourceAI}))
	if err != nil {
		t.Fatal(err)
	}
	out := callTool(t, session, EndpointDispatch, map[string]any{"document_id": "landing", "command": json.RawMessage(cmd)})
	var st Status
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatal(err)
	}
	if st.Bus.Elements != 4 || !st.Bus.CanUndo {
		t.Fatalf("status after dispatch: got %+v", st.Bus)
	}

	callTool(t, session, EndpointUndo, map[string]any{"document_id": "landing"})
	var hist HistoryResponse
	if err := json.Unmarshal([]byte(callTool(t, session, EndpointHistory, map[string]any{"document_id": "landing"})), &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Entries) != 2 || hist.Entries[1].Applied {
		t.Fatalf("history: got %+v, want the insert on the redo stack", hist.Entries)
	}
	callTool(t, session, EndpointRedo, map[string]any{"document_id": "landing"})

	flow := listed.Elements[0]
	var unlocked UnlockResponse
	if err := json.Unmarshal([]byte(callTool(t, session, EndpointUnlock, map[string]any{"document_id": "landing", "stable_id": flow.StableID})), &unlocked); err != nil {
		t.Fatal(err)
	}
	if unlocked.Element.Mode != scene.ModeAbsolute {
		t.Fatalf("unlock: got mode %q", unlocked.Element.Mode)
	}
}

func TestMCP_Errors(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	session := mcpSession(t, m)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"missing document id", EndpointElements, map[string]any{}},
		{"unknown document", EndpointElements, map[string]any{"document_id": "nope"}},
		{"nothing to undo", EndpointUndo, map[string]any{"document_id": "landing"}},
		{"unknown stable id", EndpointUnlock, map[string]any{"document_id": "landing", "stable_id": "s-unknown"}},
		{"assist disabled", EndpointAssist, map[string]any{"document_id": "landing", "prompt": "hi"}},
		{"invalid command", EndpointDispatch, map[string]any{"document_id": "landing", "command": map[string]any{
			"type": "delete", "payload": map[string]any{"id": "ghost"}, "context": map[string]any{"timestamp": 1, "source": "manual"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := toolError(t, session, tt.tool, tt.args); err == nil {
				t.Fatal("expected a tool error")
			}
		})
	}
}

// --- HTTP ---

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestRoutes(t *testing.T) {
	m := newManager(t, store.OpenMemory(t))
	srv := httptest.NewServer(m.Routes())
	t.Cleanup(srv.Close)

	if code, _ := do(t, srv, "GET", "/health", nil); code != http.StatusOK {
		t.Fatalf("health: got %d", code)
	}

	code, data := do(t, srv, "GET", "/api/sessions/landing/elements", nil)
	if code != http.StatusOK {
		t.Fatalf("elements: got %d %s", code, data)
	}
	var listed ElementsResponse
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Elements) != 3 {
		t.Fatalf("elements: got %d, want 3", len(listed.Elements))
	}

	if code, data := do(t, srv, "POST", "/api/sessions/landing/commands", scene.Insert(box("http-note"), manual)); code != http.StatusOK {
		t.Fatalf("commands: got %d %s", code, data)
	}
	if code, _ := do(t, srv, "POST", "/api/sessions/landing/commands", scene.Delete("ghost", manual)); code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid command: got %d, want 422", code)
	}
	if code, _ := do(t, srv, "POST", "/api/sessions/landing/undo", nil); code != http.StatusOK {
		t.Fatalf("undo: got %d", code)
	}
	if code, _ := do(t, srv, "POST", "/api/sessions/landing/undo", nil); code != http.StatusConflict {
		t.Fatalf("undo past floor: got %d, want 409", code)
	}

	code, data = do(t, srv, "POST", "/api/sessions/landing/keys", map[string]string{"chord": "ctrl+shift+z"})
	if code != http.StatusOK {
		t.Fatalf("keys: got %d %s", code, data)
	}
	var key KeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatal(err)
	}
	if key.Action != interact.ActionRedo || key.Status.Bus.Elements != 4 {
		t.Fatalf("keys: got action %q with %d elements", key.Action, key.Status.Bus.Elements)
	}

	code, data = do(t, srv, "PUT", "/api/sessions/landing/breakpoint", map[string]string{"breakpoint": "mobile"})
	if code != http.StatusOK || !strings.Contains(string(data), `"breakpoint":"mobile"`) {
		t.Fatalf("breakpoint: got %d %s", code, data)
	}
	if code, _ := do(t, srv, "PUT", "/api/sessions/landing/breakpoint", map[string]string{"breakpoint": "watch"}); code != http.StatusBadRequest {
		t.Fatalf("bad breakpoint: got %d, want 400", code)
	}

	stable := listed.Elements[0].StableID
	if code, data := do(t, srv, "POST", "/api/sessions/landing/unlock/"+stable, nil); code != http.StatusOK {
		t.Fatalf("unlock: got %d %s", code, data)
	}
	if code, _ := do(t, srv, "POST", "/api/sessions/landing/unlock/"+stable, nil); code != http.StatusConflict {
		t.Fatalf("second unlock: got %d, want 409", code)
	}

	if code, _ := do(t, srv, "POST", "/api/sessions/landing/assist", map[string]string{"prompt": "x"}); code != http.StatusServiceUnavailable {
		t.Fatalf("assist disabled: got %d, want 503", code)
	}
	if code, data := do(t, srv, "POST", "/api/sessions/landing/save", nil); code != http.StatusOK {
		t.Fatalf("save: got %d %s", code, data)
	}

	code, data = do(t, srv, "GET", "/api/sessions/landing/history", nil)
	var hist HistoryResponse
	if code != http.StatusOK || json.Unmarshal(data, &hist) != nil {
		t.Fatalf("history: got %d %s", code, data)
	}
	if last := hist.Entries[len(hist.Entries)-1]; last.Type != scene.CmdBatch || !strings.HasPrefix(last.Description, "unlock ") {
		t.Fatalf("last entry: got %+v, want the unlock batch", last)
	}

	if code, _ := do(t, srv, "GET", "/api/sessions/missing/elements", nil); code != http.StatusNotFound {
		t.Fatalf("missing document: got %d, want 404", code)
	}
	if code, _ := do(t, srv, "DELETE", "/api/sessions/landing", nil); code != http.StatusNoContent {
		t.Fatalf("close: got %d, want 204", code)
	}
	if _, ok := m.Get("landing"); ok {
		t.Fatal("session still open after DELETE")
	}
}

func TestRoutes_AssistRateLimited(t *testing.T) {
	gen := assist.GeneratorFunc(func(_ context.Context, _ string, _ assist.Context) (*assist.Response, error) {
		return &assist.Response{Commands: []scene.Command{scene.UpdateText("x", "y", manual)}}, nil
	})
	cfg := testConfig()
	cfg.Assist.RateLimit = 1
	m, err := NewManager(cfg, store.OpenMemory(t), WithLogger(quietLogger()), WithGenerator(gen))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	if err := m.Import(context.Background(), "landing", "", landing); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(m.Routes())
	t.Cleanup(srv.Close)

	code, data := do(t, srv, "POST", "/api/sessions/landing/assist", map[string]string{"prompt": "edit x"})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("rejected generation: got %d %s, want 422", code, data)
	}
	if code, _ := do(t, srv, "POST", "/api/sessions/landing/assist", map[string]string{"prompt": "edit x"}); code != http.StatusTooManyRequests {
		t.Fatalf("second call: got %d, want 429", code)
	}
}

// --- config ---

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	yml := `
listen: ":9000"
store:
  path: /tmp/canvas.db
surface:
  kind: memory
  viewport_width: 800
snap:
  threshold: 6
  grid: 10
  grid_threshold: 3
autosave: 2s
sinks:
  - type: stdout
keymap:
  undo: ["u"]
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.Store.Path != "/tmp/canvas.db" {
		t.Fatalf("got listen %q store %q", cfg.Listen, cfg.Store.Path)
	}
	if cfg.Surface.ViewportWidth != 800 || cfg.Surface.ViewportHeight != 800 {
		t.Fatalf("viewport: got %vx%v", cfg.Surface.ViewportWidth, cfg.Surface.ViewportHeight)
	}
	if cfg.Snap.Grid != 10 || cfg.Autosave != 2*time.Second {
		t.Fatalf("snap %+v autosave %v", cfg.Snap, cfg.Autosave)
	}
	if got := cfg.Keymap[interact.ActionUndo]; len(got) != 1 || got[0] != "u" {
		t.Fatalf("keymap undo: got %v", got)
	}

	m, err := NewManager(cfg, store.OpenMemory(t), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close(context.Background()) })
	if got := m.keymap.Chords(interact.ActionUndo); len(got) != 1 || got[0] != "u" {
		t.Fatalf("manager keymap undo: got %v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown surface", func(c *Config) { c.Surface.Kind = "canvas2d" }},
		{"webhook without url", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook"}} }},
		{"unknown sink", func(c *Config) { c.Sinks = []SinkConfig{{Type: "nats"}} }},
		{"negative snap", func(c *Config) { c.Snap.Threshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
}

func TestNewManager_NeedsSource(t *testing.T) {
	if _, err := NewManager(DefaultConfig(), nil, WithLogger(quietLogger())); err == nil {
		t.Fatal("expected error without store or content source")
	}
}

func TestUndo_HydrationFloorCoversKeys(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, store.OpenMemory(t))
	s := openLanding(t, m)

	if s.Status().Bus.CanUndo {
		t.Fatal("CanUndo right after hydration")
	}
	if _, err := s.Key(ctx, "ctrl+z"); !errors.Is(err, bus.ErrNothingToUndo) {
		t.Fatalf("ctrl+z at floor: got %v, want ErrNothingToUndo", err)
	}

	if err := s.Dispatch(ctx, scene.Insert(box("note"), manual)); err != nil {
		t.Fatal(err)
	}
	if !s.Status().Bus.CanUndo {
		t.Fatal("CanUndo false after a manual insert")
	}
	if a, err := s.Key(ctx, "ctrl+z"); err != nil || a != interact.ActionUndo {
		t.Fatalf("ctrl+z: got %q, %v", a, err)
	}
	if got := len(s.Elements()); got != 3 {
		t.Errorf("elements after undo: got %d, want 3", got)
	}
	if st := s.Status().Bus; st.CurrentIndex != 0 || st.CanUndo {
		t.Errorf("status after undo: %+v", st)
	}
}
