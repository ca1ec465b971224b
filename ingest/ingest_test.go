package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/contentsource"
	"github.com/hazyhaar/canvas/idgen"
	"github.com/hazyhaar/canvas/mutation"
	"github.com/hazyhaar/canvas/registry"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
	"github.com/hazyhaar/canvas/surface/memsurface"
)

const landing = `<!DOCTYPE html>
<html>
<head>
  <title>Landing</title>
  <meta charset="utf-8">
  <meta http-equiv="refresh" content="0;url=https://evil.example">
  <link rel="stylesheet" href="/site.css">
  <link rel="stylesheet" href="javascript:alert(1)">
  <script>alert("head")</script>
</head>
<body>
  <div class="hero">
    <h1 onclick="steal()">Hello</h1>
    <p>Welcome <strong>home</strong></p>
    <a href="javascript:alert(1)">bad</a>
    <a href="/signup">Sign up</a>
    <img src="/hero.png" alt="Hero">
  </div>
  <script>alert("body")</script>
  <section><video poster="/p.png"><source src="/clip.mp4"></video></section>
</body>
</html>`

type fakeSource struct {
	mu    sync.Mutex
	docs  map[string]string
	err   error
	saved map[string][]contentsource.Mapping
}

func newFakeSource(docs map[string]string) *fakeSource {
	return &fakeSource{docs: docs, saved: make(map[string][]contentsource.Mapping)}
}

func (f *fakeSource) FetchMarkup(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	raw, ok := f.docs[id]
	if !ok {
		return "", contentsource.ErrNotFound
	}
	return raw, nil
}

func (f *fakeSource) SaveElementMappings(_ context.Context, id string, m []contentsource.Mapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved[id] = m
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitize_StripsExecutableContent(t *testing.T) {
	doc, err := Sanitize(landing)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Landing" {
		t.Errorf("title: got %q, want %q", doc.Title, "Landing")
	}
	all := strings.ToLower(doc.Head + doc.Body)
	for _, bad := range []string{"<script", "onclick", "javascript:", "http-equiv", "alert("} {
		if strings.Contains(all, bad) {
			t.Errorf("sanitized markup still contains %q", bad)
		}
	}
	for _, want := range []string{"charset", "/site.css"} {
		if !strings.Contains(doc.Head, want) {
			t.Errorf("head lost %q: %s", want, doc.Head)
		}
	}
	for _, want := range []string{"Hello", `class="hero"`, "/signup", "/hero.png", "<video", "/clip.mp4"} {
		if !strings.Contains(doc.Body, want) {
			t.Errorf("body lost %q: %s", want, doc.Body)
		}
	}
}

func TestSanitize_MalformedMarkup(t *testing.T) {
	doc, err := Sanitize(`<div><p>unclosed <span>text`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Body, "unclosed") {
		t.Errorf("body: got %q", doc.Body)
	}
}

func TestInjectStableIDs(t *testing.T) {
	body := `<div><p>a</p><p>b</p><script>x()</script></div><p data-stable-id="s-fixed">c</p>`
	ann, err := InjectStableIDs(body, "doc")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		idgen.StableID("doc", "/body/div[1]"),
		idgen.StableID("doc", "/body/div[1]/p[1]"),
		idgen.StableID("doc", "/body/div[1]/p[2]"),
		"s-fixed",
	}
	if len(ann.StableIDs) != len(want) {
		t.Fatalf("ids: got %v, want %v", ann.StableIDs, want)
	}
	for i := range want {
		if ann.StableIDs[i] != want[i] {
			t.Errorf("id %d: got %q, want %q", i, ann.StableIDs[i], want[i])
		}
	}
	if ann.Assigned != 3 {
		t.Errorf("assigned: got %d, want 3", ann.Assigned)
	}
	if strings.Contains(ann.Body, `<script `+surface.StableAttr) {
		t.Errorf("script received a stable id: %s", ann.Body)
	}

	again, err := InjectStableIDs(body, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if again.Body != ann.Body {
		t.Error("injection is not deterministic")
	}
	reinjected, err := InjectStableIDs(ann.Body, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if reinjected.Assigned != 0 || reinjected.Body != ann.Body {
		t.Errorf("re-injection changed the body (assigned %d)", reinjected.Assigned)
	}
}

func TestInjectStableIDs_DuplicateExistingIDs(t *testing.T) {
	ann, err := InjectStableIDs(`<p data-stable-id="dup">x</p><p data-stable-id="dup">y</p>`, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if len(ann.StableIDs) != 2 || ann.StableIDs[0] != "dup" {
		t.Fatalf("ids: got %v", ann.StableIDs)
	}
	if got, want := ann.StableIDs[1], idgen.StableID("doc", "/body/p[2]"); got != want {
		t.Errorf("second id: got %q, want %q", got, want)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		tag, role string
		want      scene.ElementType
	}{
		{"img", "", scene.TypeImage},
		{"video", "", scene.TypeVideo},
		{"a", "", scene.TypeButton},
		{"BUTTON", "", scene.TypeButton},
		{"h2", "", scene.TypeText},
		{"span", "", scene.TypeText},
		{"div", "", scene.TypeSection},
		{"ul", "", scene.TypeSection},
		{"div", "button", scene.TypeButton},
		{"span", "img", scene.TypeImage},
		{"hr", "", scene.TypeCustom},
		{"custom-widget", "", scene.TypeCustom},
		{"div", "unknown-role", scene.TypeSection},
	}
	for _, tt := range tests {
		if got := InferType(tt.tag, tt.role); got != tt.want {
			t.Errorf("InferType(%q, %q): got %q, want %q", tt.tag, tt.role, got, tt.want)
		}
	}
}

func TestDeriveInitialElements(t *testing.T) {
	annotated := `<section data-stable-id="s-sec">` +
		`<h1 data-stable-id="s-h1">  Big   title </h1>` +
		`<a data-stable-id="s-a" href="/go">Go <b>now</b></a>` +
		`<img data-stable-id="s-img" src="/x.png" alt="X">` +
		`<video data-stable-id="s-vid" poster="/p.png"><source src="/v.mp4"></video>` +
		`<custom-widget data-stable-id="s-cw">?</custom-widget>` +
		`<p>not annotated</p>` +
		`</section>`
	els, err := DeriveInitialElements(annotated)
	if err != nil {
		t.Fatal(err)
	}
	byID := make(map[string]scene.Element)
	for _, el := range els {
		if el.Mode != scene.ModeFlow {
			t.Errorf("%s: mode %q, want flow", el.ID, el.Mode)
		}
		if el.ID != ElementID(el.StableID) {
			t.Errorf("%s: id does not derive from stable id %q", el.ID, el.StableID)
		}
		byID[el.StableID] = el
	}
	if len(els) != 6 {
		t.Fatalf("elements: got %d, want 6", len(els))
	}
	if els[0].StableID != "s-sec" {
		t.Errorf("first element: got %q, want document order", els[0].StableID)
	}
	if c, _ := byID["s-h1"].Content.(scene.TextContent); c.Text != "Big title" {
		t.Errorf("h1 text: got %q", c.Text)
	}
	if c, _ := byID["s-a"].Content.(scene.LinkContent); c.Href != "/go" || c.Label != "Go now" {
		t.Errorf("link: got %+v", c)
	}
	if c, _ := byID["s-img"].Content.(scene.MediaContent); c.Src != "/x.png" || c.Alt != "X" {
		t.Errorf("image: got %+v", c)
	}
	if c, _ := byID["s-vid"].Content.(scene.MediaContent); c.Src != "/v.mp4" || c.Poster != "/p.png" {
		t.Errorf("video: got %+v", c)
	}
	if el := byID["s-cw"]; el.Type != scene.TypeCustom || el.Content != nil {
		t.Errorf("custom: got %+v", el)
	}
	if el := byID["s-sec"]; el.Type != scene.TypeSection || el.Content != nil {
		t.Errorf("section: got %+v", el)
	}
}

func TestPipeline_RunHydrates(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(map[string]string{"landing": landing})
	p := New(src, WithLogger(quietLogger()))
	surf := memsurface.New()
	reg := registry.New(quietLogger())

	res, err := p.Run(ctx, "landing", surf, reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Elements) == 0 || len(res.Elements) != len(res.Annotated.StableIDs) {
		t.Fatalf("elements %d, stable ids %d", len(res.Elements), len(res.Annotated.StableIDs))
	}
	if res.Sync.Registered != len(res.Annotated.StableIDs) {
		t.Errorf("registered %d, want %d", res.Sync.Registered, len(res.Annotated.StableIDs))
	}
	for _, id := range res.Annotated.StableIDs {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("stable id %q not registered", id)
		}
	}
	rendered, err := surf.HTML(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(rendered, "<script") {
		t.Error("surface received a script")
	}

	b := bus.New(bus.WithLogger(quietLogger()))
	if err := b.Hydrate(ctx, res.Elements); err != nil {
		t.Fatalf("derived elements rejected by the bus: %v", err)
	}
	if got := len(b.Elements()); got != len(res.Elements) {
		t.Errorf("bus elements: got %d, want %d", got, len(res.Elements))
	}

	again, err := p.Prepare(ctx, "landing")
	if err != nil {
		t.Fatal(err)
	}
	if again.Annotated.Body != res.Annotated.Body {
		t.Error("re-ingesting the same document produced different stable ids")
	}
}

func TestPipeline_LoadErrors(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource(map[string]string{"blank": "   \n"})
	p := New(src, WithLogger(quietLogger()))

	tests := []struct {
		id, reason string
	}{
		{"", "missing document id"},
		{"absent", "not found"},
		{"blank", "empty"},
	}
	for _, tt := range tests {
		_, err := p.Run(ctx, tt.id, memsurface.New(), registry.New(quietLogger()))
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("%q: expected *LoadError, got %v", tt.id, err)
		}
		if le.Reason != tt.reason {
			t.Errorf("%q: reason %q, want %q", tt.id, le.Reason, tt.reason)
		}
	}

	boom := errors.New("backend down")
	src.err = boom
	_, err := p.Prepare(ctx, "landing")
	var le *LoadError
	if !errors.As(err, &le) || le.Reason != "fetch" || !errors.Is(err, boom) {
		t.Errorf("fetch failure: got %v", err)
	}
}

func TestReportMappings(t *testing.T) {
	src := newFakeSource(nil)
	p := New(src, WithLogger(quietLogger()))
	els := []scene.Element{
		{ID: "flow-s-a", StableID: "s-a", Type: scene.TypeText, Mode: scene.ModeFlow},
		{ID: "free", Type: scene.TypeText, Mode: scene.ModeAbsolute},
	}
	p.ReportMappings("doc", els)
	p.Wait()

	src.mu.Lock()
	got := src.saved["doc"]
	src.mu.Unlock()
	if len(got) != 1 || got[0].StableID != "s-a" || got[0].Mode != "flow" {
		t.Errorf("mappings: got %+v", got)
	}

	src.err = errors.New("unavailable")
	p.ReportMappings("doc", els)
	p.Wait()
}

func TestNestedTextEdit_RendersStably(t *testing.T) {
	ctx := context.Background()
	ann, err := InjectStableIDs(`<p>Hello <b>world</b></p>`, "doc")
	if err != nil {
		t.Fatal(err)
	}
	els, err := DeriveInitialElements(ann.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 2 {
		t.Fatalf("got %d elements, want 2", len(els))
	}
	parent, child := els[0], els[1]

	surf := memsurface.New()
	if err := surf.LoadMarkup(ctx, "<html><body>"+ann.Body+"</body></html>"); err != nil {
		t.Fatal(err)
	}
	reg := registry.New(quietLogger())
	if _, err := reg.Sync(ctx, surf); err != nil {
		t.Fatal(err)
	}
	eng := mutation.NewEngine(surf, reg, mutation.WithLogger(quietLogger()))

	sc := scene.New()
	c := scene.Context{Source: scene.SourceHydration}
	for _, el := range els {
		if err := sc.Apply(scene.Insert(el, c)); err != nil {
			t.Fatal(err)
		}
	}
	if err := sc.Apply(scene.UpdateText(child.ID, "there", c)); err != nil {
		t.Fatal(err)
	}

	var first string
	for i := 0; i < 2; i++ {
		if err := eng.Render(ctx, sc); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		html, _ := surf.HTML(ctx)
		if i == 0 {
			first = html
		} else if html != first {
			t.Errorf("second render changed the surface:\n%s\n%s", first, html)
		}
	}

	b, ok := reg.Get(child.StableID)
	if !ok || !b.Attached(ctx) {
		t.Fatal("nested node was detached")
	}
	if got, _ := b.Text(ctx); got != "there" {
		t.Errorf("nested text: got %q, want %q", got, "there")
	}
	p, _ := reg.Get(parent.StableID)
	if got, _ := p.Text(ctx); surface.NormalizeText(got) != "Hello there" {
		t.Errorf("parent text: got %q, want %q", got, "Hello there")
	}
}
