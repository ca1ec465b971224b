package shield

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/canvas/kit"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func stack(h http.Handler) http.Handler {
	mws := DefaultStack(quietLogger())
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestDefaultStack_Headers(t *testing.T) {
	w := httptest.NewRecorder()
	stack(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "X-Request-ID"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing header %s", h)
		}
	}
}

func TestTrace_PropagatesRequestID(t *testing.T) {
	var seen string
	h := stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = kit.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen != "req-42" {
		t.Fatalf("context request id: got %q, want %q", seen, "req-42")
	}
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("header: got %q, want %q", got, "req-42")
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("HEAD", "/health", nil))
	if method != "GET" {
		t.Fatalf("got %q, want GET", method)
	}
}

func TestMaxJSONBody(t *testing.T) {
	h := MaxJSONBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"commands":[]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("json over limit: got %d, want 413", w.Code)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("plain text body"))
	req.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("non-json: got %d, want 200", w.Code)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Fatalf("body: got %q", w.Body.String())
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	call := func(ip string) int {
		req := httptest.NewRequest("POST", "/api/sessions/d/assist", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, code)
		}
	}
	if code := call("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want 429", code)
	}
	if code := call("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other client: got %d, want 200", code)
	}

	now = now.Add(2 * time.Minute)
	if code := call("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("after window: got %d, want 200", code)
	}
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ExtractIP(req); got != "203.0.113.7" {
		t.Fatalf("got %q, want %q", got, "203.0.113.7")
	}
}
