package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/interact"
	"github.com/hazyhaar/canvas/kit"
	"github.com/hazyhaar/canvas/scene"
)

// Request types shared by the MCP tools and the HTTP API.

type DocumentRequest struct {
	DocumentID string `json:"document_id"`
}

func (r *DocumentRequest) document() string { return r.DocumentID }

type DispatchRequest struct {
	DocumentRequest
	Command scene.Command `json:"command"`
}

type UnlockRequest struct {
	DocumentRequest
	StableID string `json:"stable_id"`
}

type AssistRequest struct {
	DocumentRequest
	Prompt    string   `json:"prompt"`
	Selection []string `json:"selection,omitempty"`
}

type KeyRequest struct {
	DocumentRequest
	Chord string `json:"chord"`
}

type BreakpointRequest struct {
	DocumentRequest
	Breakpoint scene.Breakpoint `json:"breakpoint"`
}

// Responses.

type ElementsResponse struct {
	Status   Status          `json:"status"`
	Elements []scene.Element `json:"elements"`
}

type UnlockResponse struct {
	Status  Status        `json:"status"`
	Element scene.Element `json:"element"`
}

type AssistResponse struct {
	Status   Status `json:"status"`
	Commands int    `json:"commands"`
}

type HistoryResponse struct {
	Status  Status      `json:"status"`
	Entries []bus.Entry `json:"entries"`
}

type KeyResponse struct {
	Status  Status           `json:"status"`
	Action  interact.Action  `json:"action,omitempty"`
	Overlay interact.Overlay `json:"overlay"`
}

// ErrBadRequest marks requests rejected before reaching a session.
var ErrBadRequest = errors.New("editor: bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// Endpoint names, also used as MCP tool names.
const (
	EndpointElements   = "canvas_elements"
	EndpointDispatch   = "canvas_dispatch"
	EndpointUndo       = "canvas_undo"
	EndpointRedo       = "canvas_redo"
	EndpointUnlock     = "canvas_unlock"
	EndpointAssist     = "canvas_assist"
	EndpointHistory    = "canvas_history"
	EndpointSave       = "canvas_save"
	EndpointKey        = "canvas_key"
	EndpointBreakpoint = "canvas_breakpoint"
)

// Endpoints returns the editor operations keyed by name, each wrapped with
// recovery and logging.
func (m *Manager) Endpoints() map[string]kit.Endpoint {
	raw := map[string]kit.Endpoint{
		EndpointElements:   m.elements,
		EndpointDispatch:   m.dispatch,
		EndpointUndo:       m.undo,
		EndpointRedo:       m.redo,
		EndpointUnlock:     m.unlock,
		EndpointAssist:     m.assist,
		EndpointHistory:    m.history,
		EndpointSave:       m.save,
		EndpointKey:        m.key,
		EndpointBreakpoint: m.breakpoint,
	}
	out := make(map[string]kit.Endpoint, len(raw))
	for name, ep := range raw {
		out[name] = kit.Chain(kit.Recovery(m.logger), kit.Logging(m.logger, name))(ep)
	}
	return out
}

func (m *Manager) open(ctx context.Context, req any) (*Session, error) {
	d, ok := req.(interface{ document() string })
	if !ok {
		return nil, badRequest("unexpected request %T", req)
	}
	id := strings.TrimSpace(d.document())
	if id == "" {
		return nil, badRequest("document_id is required")
	}
	return m.Open(ctx, id)
}

func (m *Manager) elements(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ElementsResponse{Status: s.Status(), Elements: s.Elements()}, nil
}

func (m *Manager) dispatch(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	r := req.(*DispatchRequest)
	if r.Command.Payload == nil {
		return nil, badRequest("command is required")
	}
	if err := s.Dispatch(ctx, r.Command); err != nil {
		return nil, err
	}
	return s.Status(), nil
}

func (m *Manager) undo(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Undo(ctx); err != nil {
		return nil, err
	}
	return s.Status(), nil
}

func (m *Manager) redo(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Redo(ctx); err != nil {
		return nil, err
	}
	return s.Status(), nil
}

func (m *Manager) unlock(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	r := req.(*UnlockRequest)
	if r.StableID == "" {
		return nil, badRequest("stable_id is required")
	}
	el, err := s.Unlock(ctx, r.StableID)
	if err != nil {
		return nil, err
	}
	return &UnlockResponse{Status: s.Status(), Element: el}, nil
}

func (m *Manager) assist(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	r := req.(*AssistRequest)
	n, err := s.Assist(ctx, r.Prompt, r.Selection)
	if err != nil {
		return nil, err
	}
	return &AssistResponse{Status: s.Status(), Commands: n}, nil
}

func (m *Manager) history(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Status: s.Status(), Entries: s.History()}, nil
}

func (m *Manager) save(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx); err != nil {
		return nil, err
	}
	return s.Status(), nil
}

func (m *Manager) key(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	r := req.(*KeyRequest)
	a, err := s.Key(ctx, r.Chord)
	if err != nil {
		return nil, err
	}
	return &KeyResponse{Status: s.Status(), Action: a, Overlay: s.Controller().Overlay()}, nil
}

func (m *Manager) breakpoint(ctx context.Context, req any) (any, error) {
	s, err := m.open(ctx, req)
	if err != nil {
		return nil, err
	}
	r := req.(*BreakpointRequest)
	if err := s.SetBreakpoint(r.Breakpoint); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return s.Status(), nil
}
