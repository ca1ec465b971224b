// CLAUDE:SUMMARY Markup ingestion pipeline: load from the content source, sanitize, inject stable ids, load the surface, sync the registry, derive flow elements.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/canvas/contentsource"
	"github.com/hazyhaar/canvas/registry"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/surface"
)

// Pipeline turns a content source document into hydration-ready elements.
type Pipeline struct {
	source         contentsource.Source
	logger         *slog.Logger
	mappingTimeout time.Duration
	wg             sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMappingTimeout bounds background mapping reports. Default: 30s.
func WithMappingTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.mappingTimeout = d }
}

// New creates a pipeline reading from src.
func New(src contentsource.Source, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:         src,
		logger:         slog.Default(),
		mappingTimeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Result is the outcome of a pipeline run.
type Result struct {
	DocumentID string
	Document   Document
	Annotated  Annotated
	Elements   []scene.Element
	Sync       registry.SyncStats
}

// Markup is the annotated document loaded into the surface.
func (r *Result) Markup() string {
	d := r.Document
	d.Body = r.Annotated.Body
	return d.Markup()
}

// Load fetches the raw markup of documentID.
func (p *Pipeline) Load(ctx context.Context, documentID string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", &LoadError{DocumentID: documentID, Reason: "missing document id"}
	}
	raw, err := p.source.FetchMarkup(ctx, documentID)
	switch {
	case errors.Is(err, contentsource.ErrNotFound):
		return "", &LoadError{DocumentID: documentID, Reason: "not found", Err: err}
	case err != nil:
		return "", &LoadError{DocumentID: documentID, Reason: "fetch", Err: err}
	case strings.TrimSpace(raw) == "":
		return "", &LoadError{DocumentID: documentID, Reason: "empty"}
	}
	return raw, nil
}

// Prepare loads, sanitizes and annotates documentID and derives its flow
// elements without touching any surface.
func (p *Pipeline) Prepare(ctx context.Context, documentID string) (*Result, error) {
	raw, err := p.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return p.prepare(documentID, raw)
}

// PrepareMarkup runs the pipeline on markup already in hand.
func (p *Pipeline) PrepareMarkup(documentID, raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &LoadError{DocumentID: documentID, Reason: "empty"}
	}
	return p.prepare(documentID, raw)
}

func (p *Pipeline) prepare(documentID, raw string) (*Result, error) {
	doc, err := Sanitize(raw)
	if err != nil {
		return nil, &LoadError{DocumentID: documentID, Reason: "parse", Err: err}
	}
	ann, err := InjectStableIDs(doc.Body, documentID)
	if err != nil {
		return nil, &LoadError{DocumentID: documentID, Reason: "parse", Err: err}
	}
	els, err := DeriveInitialElements(ann.Body)
	if err != nil {
		return nil, &LoadError{DocumentID: documentID, Reason: "parse", Err: err}
	}
	return &Result{DocumentID: documentID, Document: doc, Annotated: ann, Elements: els}, nil
}

// Run prepares documentID, loads it into surf and registers its stable
// nodes in reg.
func (p *Pipeline) Run(ctx context.Context, documentID string, surf surface.Surface, reg *registry.Registry) (*Result, error) {
	res, err := p.Prepare(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := p.Mount(ctx, res, surf, reg); err != nil {
		return nil, err
	}
	return res, nil
}

// Mount loads a prepared result into surf and resynchronises reg.
func (p *Pipeline) Mount(ctx context.Context, res *Result, surf surface.Surface, reg *registry.Registry) error {
	if err := surf.LoadMarkup(ctx, res.Markup()); err != nil {
		return &LoadError{DocumentID: res.DocumentID, Reason: "render", Err: err}
	}
	stats, err := reg.Sync(ctx, surf)
	if err != nil {
		return &LoadError{DocumentID: res.DocumentID, Reason: "register", Err: err}
	}
	res.Sync = stats
	p.logger.Info("ingest: document mounted",
		"document_id", res.DocumentID,
		"stable_ids", len(res.Annotated.StableIDs),
		"assigned", res.Annotated.Assigned,
		"registered", stats.Registered,
		"elements", len(res.Elements),
	)
	return nil
}

// Mappings lists the stable bindings of elements.
func Mappings(elements []scene.Element) []contentsource.Mapping {
	var out []contentsource.Mapping
	for _, el := range elements {
		if el.StableID == "" {
			continue
		}
		out = append(out, contentsource.Mapping{ElementID: el.ID, StableID: el.StableID, Mode: string(el.Mode)})
	}
	return out
}

// ReportMappings sends the element mappings of documentID to the content
// source in the background. Failures are logged and never reach the caller.
func (p *Pipeline) ReportMappings(documentID string, elements []scene.Element) {
	mappings := Mappings(elements)
	if len(mappings) == 0 {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.mappingTimeout)
		defer cancel()
		if err := p.source.SaveElementMappings(ctx, documentID, mappings); err != nil {
			p.logger.Warn("ingest: save element mappings", "document_id", documentID, "count", len(mappings), "error", err)
			return
		}
		p.logger.Debug("ingest: element mappings saved", "document_id", documentID, "count", len(mappings))
	}()
}

// Wait blocks until background mapping reports have finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
