// CLAUDE:SUMMARY HTTP generative assist client: JSON prompt/context request, retry on transport and 5xx errors, typed ServiceError.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/canvas/netsafe"
)

// Client calls a generative service over HTTP:
//
//	POST {endpoint}  {"prompt": "...", "context": {...}}
//	-> 200 {"commands": [...]} | {"error": "..."}
type Client struct {
	endpoint   string
	client     *http.Client
	token      string
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	c            *Client
	allowPrivate bool
}

// WithHTTPClient replaces the HTTP client. Default timeout: 120s.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(cfg *clientConfig) { cfg.c.client = h }
}

// WithToken sends a bearer token.
func WithToken(token string) ClientOption {
	return func(cfg *clientConfig) { cfg.c.token = token }
}

// WithModel names the model in every request.
func WithModel(model string) ClientOption {
	return func(cfg *clientConfig) { cfg.c.model = model }
}

// WithRetries sets the retry count. Default: 2.
func WithRetries(n int) ClientOption {
	return func(cfg *clientConfig) { cfg.c.maxRetries = n }
}

// WithBackoff sets the first retry delay. Default: 1s.
func WithBackoff(d time.Duration) ClientOption {
	return func(cfg *clientConfig) { cfg.c.backoff = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) { cfg.c.logger = l }
}

// WithPrivateNetwork allows an endpoint on a loopback or private address.
func WithPrivateNetwork() ClientOption {
	return func(cfg *clientConfig) { cfg.allowPrivate = true }
}

// NewClient validates endpoint and returns a client.
func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: 120 * time.Second},
		maxRetries: 2,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	cfg := &clientConfig{c: c}
	for _, o := range opts {
		o(cfg)
	}
	var uopts []netsafe.URLOption
	if cfg.allowPrivate {
		uopts = append(uopts, netsafe.AllowPrivate())
	}
	if err := netsafe.ValidateURL(endpoint, uopts...); err != nil {
		return nil, fmt.Errorf("assist: endpoint: %w", err)
	}
	return c, nil
}

type request struct {
	Model   string  `json:"model,omitempty"`
	Prompt  string  `json:"prompt"`
	Context Context `json:"context"`
}

// Generate posts the prompt and decodes the generated commands. Service
// refusals and empty answers are returned as *ServiceError.
func (c *Client) Generate(ctx context.Context, prompt string, sc Context) (*Response, error) {
	payload, err := json.Marshal(request{Model: c.model, Prompt: prompt, Context: sc})
	if err != nil {
		return nil, fmt.Errorf("assist: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		resp, retry, err := c.post(ctx, payload)
		if err == nil {
			return resp, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("assist: generate failed", "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, payload []byte) (*Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("assist: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	httpResp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, &ServiceError{Message: "request failed", Err: err}
	}
	defer httpResp.Body.Close()
	body, err := netsafe.LimitedReadAll(httpResp.Body, netsafe.MaxResponseBody)
	if err != nil {
		return nil, true, &ServiceError{Status: httpResp.StatusCode, Message: "read response", Err: err}
	}

	var out Response
	decodeErr := json.Unmarshal(body, &out)
	if httpResp.StatusCode != http.StatusOK {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = truncate(string(body), 200)
		}
		return nil, httpResp.StatusCode >= 500, &ServiceError{Status: httpResp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, false, &ServiceError{Status: httpResp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if out.Error != "" {
		return nil, false, &ServiceError{Status: httpResp.StatusCode, Message: out.Error}
	}
	if len(out.Commands) == 0 {
		return nil, false, &ServiceError{Status: httpResp.StatusCode, Message: "no commands generated"}
	}
	c.logger.Debug("assist: generated", "commands", len(out.Commands), "duration", time.Since(start))
	return &out, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
