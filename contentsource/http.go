// CLAUDE:SUMMARY HTTP content source client with URL guards, bounded reads and retry with exponential backoff.
package contentsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/canvas/netsafe"
)

// HTTP talks to a content service exposing
//
//	GET {base}/documents/{id}/markup    -> text/html, or JSON {"html": "..."}
//	PUT {base}/documents/{id}/mappings  <- JSON {"mappings": [...]}
type HTTP struct {
	base       *url.URL
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	maxBody    int64
	token      string
	logger     *slog.Logger
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	h            *HTTP
	allowPrivate bool
}

// WithClient replaces the HTTP client. Default timeout: 15s.
func WithClient(c *http.Client) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.client = c }
}

// WithRetries sets the maximum number of retries. Default: 3.
func WithRetries(n int) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.maxRetries = n }
}

// WithBackoff sets the first retry delay. Default: 500ms.
func WithBackoff(d time.Duration) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.backoff = d }
}

// WithMaxBody caps the markup size. Default: netsafe.MaxResponseBody.
func WithMaxBody(n int64) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.maxBody = n }
}

// WithBearerToken sends an Authorization header with every request.
func WithBearerToken(token string) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(cfg *httpConfig) { cfg.h.logger = l }
}

// WithPrivateNetwork allows a base URL on a loopback or private address.
func WithPrivateNetwork() HTTPOption {
	return func(cfg *httpConfig) { cfg.allowPrivate = true }
}

// NewHTTP validates baseURL and returns a client for it.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	h := &HTTP{
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		maxBody:    netsafe.MaxResponseBody,
		logger:     slog.Default(),
	}
	cfg := &httpConfig{h: h}
	for _, o := range opts {
		o(cfg)
	}
	var uopts []netsafe.URLOption
	if cfg.allowPrivate {
		uopts = append(uopts, netsafe.AllowPrivate())
	}
	if err := netsafe.ValidateURL(baseURL, uopts...); err != nil {
		return nil, fmt.Errorf("contentsource: base url: %w", err)
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("contentsource: base url: %w", err)
	}
	h.base = u
	return h, nil
}

func (h *HTTP) endpoint(documentID, leaf string) (string, error) {
	if err := netsafe.ValidateIdentifier(documentID); err != nil {
		return "", fmt.Errorf("contentsource: document id: %w", err)
	}
	return h.base.JoinPath("documents", documentID, leaf).String(), nil
}

// FetchMarkup returns the markup of documentID. A 404 yields ErrNotFound.
func (h *HTTP) FetchMarkup(ctx context.Context, documentID string) (string, error) {
	u, err := h.endpoint(documentID, "markup")
	if err != nil {
		return "", err
	}
	body, ctype, err := h.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	if mt, _, _ := mime.ParseMediaType(ctype); mt == "application/json" {
		var doc struct {
			HTML string `json:"html"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return "", fmt.Errorf("contentsource: decode markup: %w", err)
		}
		return doc.HTML, nil
	}
	return string(body), nil
}

// SaveElementMappings uploads the element mappings of documentID.
func (h *HTTP) SaveElementMappings(ctx context.Context, documentID string, mappings []Mapping) error {
	u, err := h.endpoint(documentID, "mappings")
	if err != nil {
		return err
	}
	payload, err := json.Marshal(struct {
		Mappings []Mapping `json:"mappings"`
	}{mappings})
	if err != nil {
		return fmt.Errorf("contentsource: marshal mappings: %w", err)
	}
	_, _, err = h.do(ctx, http.MethodPut, u, payload)
	return err
}

// do runs a request with retry on network errors and 5xx responses.
func (h *HTTP) do(ctx context.Context, method, u string, payload []byte) ([]byte, string, error) {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(h.backoff << uint(attempt-1)):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return nil, "", fmt.Errorf("contentsource: new request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "text/html, application/json")
		if h.token != "" {
			req.Header.Set("Authorization", "Bearer "+h.token)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			lastErr = err
			h.logger.Warn("contentsource: request failed", "method", method, "attempt", attempt+1, "error", err)
			continue
		}
		data, rerr := netsafe.LimitedReadAll(resp.Body, h.maxBody)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, "", ErrNotFound
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("contentsource: status %d", resp.StatusCode)
			h.logger.Warn("contentsource: bad status", "method", method, "attempt", attempt+1, "status", resp.StatusCode)
			continue
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return nil, "", fmt.Errorf("contentsource: %s %s: status %d", method, u, resp.StatusCode)
		}
		if rerr != nil {
			return nil, "", fmt.Errorf("contentsource: read body: %w", rerr)
		}
		return data, resp.Header.Get("Content-Type"), nil
	}
	return nil, "", fmt.Errorf("contentsource: all retries exhausted: %w", lastErr)
}
