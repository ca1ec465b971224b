// CLAUDE:SUMMARY Registers the canvas editor operations as MCP tools (elements, dispatch, undo, redo, unlock, assist, history, save, key, breakpoint).
package editor

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/canvas/kit"
)

// RegisterMCP registers every editor tool on srv.
func (m *Manager) RegisterMCP(srv *mcp.Server) {
	eps := m.Endpoints()
	docID := map[string]any{"type": "string", "description": "Document id in the content source"}

	tools := []struct {
		tool   *mcp.Tool
		decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)
	}{
		{
			tool: &mcp.Tool{
				Name:        EndpointElements,
				Description: "List the elements of a document's canvas session in paint order, with session status. Opens the session if needed.",
				InputSchema: inputSchema(map[string]any{"document_id": docID}, []string{"document_id"}),
			},
			decode: decodeArgs[DocumentRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointDispatch,
				Description: "Apply one command (insert, delete, transform, update_text, update_attr or batch). Invalid commands are rejected and leave the session unchanged.",
				InputSchema: inputSchema(map[string]any{
					"document_id": docID,
					"command": map[string]any{
						"type":        "object",
						"description": `Command object: {"type":"transform","payload":{...},"context":{"timestamp":0,"source":"ai","description":"..."}}`,
					},
				}, []string{"document_id", "command"}),
			},
			decode: decodeArgs[DispatchRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointUndo,
				Description: "Undo the last command. Fails when there is nothing to undo.",
				InputSchema: inputSchema(map[string]any{"document_id": docID}, []string{"document_id"}),
			},
			decode: decodeArgs[DocumentRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointRedo,
				Description: "Redo the next undone command. Fails when there is nothing to redo.",
				InputSchema: inputSchema(map[string]any{"document_id": docID}, []string{"document_id"}),
			},
			decode: decodeArgs[DocumentRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointUnlock,
				Description: "Convert a flow element into a freely positioned element, capturing its rendered box and appearance. One-way; undo restores the flow element.",
				InputSchema: inputSchema(map[string]any{
					"document_id": docID,
					"stable_id":   map[string]any{"type": "string", "description": "data-stable-id of the flow node"},
				}, []string{"document_id", "stable_id"}),
			},
			decode: decodeArgs[UnlockRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointAssist,
				Description: "Ask the generative assist service for edits. Its commands commit as one undoable history entry tagged source=ai.",
				InputSchema: inputSchema(map[string]any{
					"document_id": docID,
					"prompt":      map[string]any{"type": "string", "description": "Instruction for the assist service"},
					"selection":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Element ids to focus on"},
				}, []string{"document_id", "prompt"}),
			},
			decode: decodeArgs[AssistRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointHistory,
				Description: "List the command history. Entries with applied=false form the redo stack.",
				InputSchema: inputSchema(map[string]any{"document_id": docID}, []string{"document_id"}),
			},
			decode: decodeArgs[DocumentRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointSave,
				Description: "Persist the session now instead of waiting for autosave.",
				InputSchema: inputSchema(map[string]any{"document_id": docID}, []string{"document_id"}),
			},
			decode: decodeArgs[DocumentRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointKey,
				Description: "Press a key chord (e.g. ctrl+z, 2, delete) as the editor would, returning the bound action and the overlay.",
				InputSchema: inputSchema(map[string]any{
					"document_id": docID,
					"chord":       map[string]any{"type": "string", "description": "Key chord such as ctrl+shift+z"},
				}, []string{"document_id", "chord"}),
			},
			decode: decodeArgs[KeyRequest],
		},
		{
			tool: &mcp.Tool{
				Name:        EndpointBreakpoint,
				Description: "Switch the edited and rendered breakpoint.",
				InputSchema: inputSchema(map[string]any{
					"document_id": docID,
					"breakpoint":  map[string]any{"type": "string", "enum": []any{"desktop", "tablet", "mobile"}},
				}, []string{"document_id", "breakpoint"}),
			},
			decode: decodeArgs[BreakpointRequest],
		},
	}

	for _, t := range tools {
		kit.RegisterMCPTool(srv, t.tool, eps[t.tool.Name], t.decode)
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// decodeArgs unmarshals the tool arguments into T and tags the context
// with the document id.
func decodeArgs[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	r := new(T)
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, r); err != nil {
			return nil, err
		}
	}
	res := &kit.MCPDecodeResult{Request: r}
	if d, ok := any(r).(interface{ document() string }); ok {
		id := d.document()
		res.EnrichCtx = func(ctx context.Context) context.Context {
			return kit.WithDocumentID(ctx, id)
		}
	}
	return res, nil
}
