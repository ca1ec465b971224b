package kit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	base := func(ctx context.Context, _ any) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			return nil, errors.New("no deadline")
		}
		return "ok", nil
	}
	if _, err := Timeout(time.Second)(base)(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestRecovery_ConvertsPanic(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := func(_ context.Context, _ any) (any, error) {
		panic("boom")
	}
	_, err := Chain(Logging(logger, "test"), Recovery(logger))(base)(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error: got %v, want panic error", err)
	}
}

func TestContext_Transport_Default(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
}

func TestContext_Transport_Set(t *testing.T) {
	ctx := WithTransport(context.Background(), "mcp")
	if v := GetTransport(ctx); v != "mcp" {
		t.Fatalf("transport: got %q", v)
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
}

func TestContext_TraceID(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trc_xyz")
	if v := GetTraceID(ctx); v != "trc_xyz" {
		t.Fatalf("trace_id: got %q", v)
	}
}

func TestContext_DocumentID(t *testing.T) {
	ctx := WithDocumentID(context.Background(), "landing")
	if v := GetDocumentID(ctx); v != "landing" {
		t.Fatalf("document_id: got %q", v)
	}
}

func TestContext_EmptyDefaults(t *testing.T) {
	ctx := context.Background()
	if v := GetDocumentID(ctx); v != "" {
		t.Fatalf("document_id default: got %q", v)
	}
	if v := GetRequestID(ctx); v != "" {
		t.Fatalf("request_id default: got %q", v)
	}
	if v := GetTraceID(ctx); v != "" {
		t.Fatalf("trace_id default: got %q", v)
	}
}

func TestRegisterMCPTool(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "kit-test", Version: "0.0.1"}, nil)
	tool := &mcp.Tool{
		Name:        "echo",
		Description: "Echo the document id and transport",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"document_id": map[string]any{"type": "string"}},
		},
	}
	ep := func(ctx context.Context, req any) (any, error) {
		id := req.(string)
		if id == "" {
			return nil, errors.New("document_id is required")
		}
		return map[string]string{"document_id": GetDocumentID(ctx), "transport": GetTransport(ctx)}, nil
	}
	RegisterMCPTool(srv, tool, ep, func(req *mcp.CallToolRequest) (*MCPDecodeResult, error) {
		var args struct {
			DocumentID string `json:"document_id"`
		}
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, err
		}
		return &MCPDecodeResult{
			Request: args.DocumentID,
			EnrichCtx: func(ctx context.Context) context.Context {
				return WithDocumentID(ctx, args.DocumentID)
			},
		}, nil
	})

	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	go func() {
		_ = srv.Run(ctx, st)
	}()
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"document_id": "landing"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.GetError() != nil {
		t.Fatalf("tool error: %v", res.GetError())
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"document_id":"landing"`) || !strings.Contains(text, `"transport":"mcp"`) {
		t.Fatalf("got %q", text)
	}

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: "echo", Arguments: map[string]any{"document_id": ""}})
	if err != nil {
		t.Fatal(err)
	}
	if res.GetError() == nil {
		t.Fatal("expected tool error for empty document id")
	}
}
