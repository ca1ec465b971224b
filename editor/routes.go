// CLAUDE:SUMMARY chi HTTP API over editor sessions plus the MCP streamable HTTP endpoint; maps typed errors to status codes.
package editor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/canvas/assist"
	"github.com/hazyhaar/canvas/bus"
	"github.com/hazyhaar/canvas/ingest"
	"github.com/hazyhaar/canvas/kit"
	"github.com/hazyhaar/canvas/mutation"
	"github.com/hazyhaar/canvas/scene"
	"github.com/hazyhaar/canvas/shield"
)

// Version is reported by /health and the MCP server.
var Version = "0.1.0"

// Routes returns the HTTP API:
//
//	GET    /health
//	GET    /api/sessions
//	GET    /api/sessions/{doc}/elements
//	POST   /api/sessions/{doc}/commands
//	POST   /api/sessions/{doc}/undo
//	POST   /api/sessions/{doc}/redo
//	POST   /api/sessions/{doc}/unlock/{stableID}
//	POST   /api/sessions/{doc}/assist
//	GET    /api/sessions/{doc}/history
//	POST   /api/sessions/{doc}/save
//	POST   /api/sessions/{doc}/keys
//	PUT    /api/sessions/{doc}/breakpoint
//	DELETE /api/sessions/{doc}
//	*      /mcp
func (m *Manager) Routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(m.logger) {
		r.Use(mw)
	}
	eps := m.Endpoints()
	limiter := shield.NewRateLimiter(m.cfg.Assist.RateLimit, time.Minute)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  Version,
			"sessions": len(m.Sessions()),
		})
	})
	r.Get("/api/sessions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.Sessions())
	})

	r.Route("/api/sessions/{doc}", func(r chi.Router) {
		r.Get("/elements", serve(eps[EndpointElements], docOnly))
		r.Post("/commands", serve(eps[EndpointDispatch], func(req *http.Request) (any, error) {
			out := &DispatchRequest{DocumentRequest: docParam(req)}
			if err := decodeBody(req, &out.Command); err != nil {
				return nil, err
			}
			return out, nil
		}))
		r.Post("/undo", serve(eps[EndpointUndo], docOnly))
		r.Post("/redo", serve(eps[EndpointRedo], docOnly))
		r.With(limiter.Middleware).Post("/unlock/{stableID}", serve(eps[EndpointUnlock], func(req *http.Request) (any, error) {
			return &UnlockRequest{DocumentRequest: docParam(req), StableID: chi.URLParam(req, "stableID")}, nil
		}))
		r.With(limiter.Middleware).Post("/assist", serve(eps[EndpointAssist], func(req *http.Request) (any, error) {
			out := &AssistRequest{}
			if err := decodeBody(req, out); err != nil {
				return nil, err
			}
			out.DocumentRequest = docParam(req)
			return out, nil
		}))
		r.Get("/history", serve(eps[EndpointHistory], docOnly))
		r.Post("/save", serve(eps[EndpointSave], docOnly))
		r.Post("/keys", serve(eps[EndpointKey], func(req *http.Request) (any, error) {
			out := &KeyRequest{}
			if err := decodeBody(req, out); err != nil {
				return nil, err
			}
			out.DocumentRequest = docParam(req)
			return out, nil
		}))
		r.Put("/breakpoint", serve(eps[EndpointBreakpoint], func(req *http.Request) (any, error) {
			out := &BreakpointRequest{}
			if err := decodeBody(req, out); err != nil {
				return nil, err
			}
			out.DocumentRequest = docParam(req)
			return out, nil
		}))
		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			if err := m.CloseSession(req.Context(), chi.URLParam(req, "doc")); err != nil {
				writeError(w, statusOf(err), err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "canvas", Version: Version}, nil)
	m.RegisterMCP(mcpSrv)
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))

	return r
}

// serve adapts an endpoint to HTTP: decode builds the request, the
// response is written as JSON, errors go through statusOf.
func serve(ep kit.Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		ctx := kit.WithDocumentID(r.Context(), chi.URLParam(r, "doc"))
		resp, err := ep(ctx, req)
		if err != nil {
			shield.GetLogger(ctx).Debug("editor: request failed", "error", err)
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func docParam(r *http.Request) DocumentRequest {
	return DocumentRequest{DocumentID: chi.URLParam(r, "doc")}
}

func docOnly(r *http.Request) (any, error) {
	d := docParam(r)
	return &d, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("empty body")
		}
		return badRequest("invalid JSON: %v", err)
	}
	return nil
}

// statusOf maps the error taxonomy to HTTP status codes.
func statusOf(err error) int {
	var (
		validation *scene.ValidationError
		unlock     *mutation.UnlockError
		load       *ingest.LoadError
		service    *assist.ServiceError
		persist    *bus.PersistenceError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, bus.ErrNothingToUndo), errors.Is(err, bus.ErrNothingToRedo):
		return http.StatusConflict
	case errors.As(err, &unlock):
		return http.StatusConflict
	case errors.As(err, &load):
		switch load.Reason {
		case "missing document id":
			return http.StatusBadRequest
		case "not found":
			return http.StatusNotFound
		case "empty", "parse":
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.Is(err, ErrAssistDisabled), errors.Is(err, ErrClosed), errors.Is(err, bus.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &service):
		if service.Status == 0 && service.Err == nil && service.Message == "empty prompt" {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &persist), errors.Is(err, bus.ErrNoPersister):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
