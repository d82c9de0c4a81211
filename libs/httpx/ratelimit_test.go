package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), rl.Middleware())

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/slots", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if c := call(); c != http.StatusOK {
		t.Fatalf("first call: expected 200, got %d", c)
	}
	if c := call(); c != http.StatusOK {
		t.Fatalf("second call: expected 200, got %d", c)
	}
	if c := call(); c != http.StatusTooManyRequests {
		t.Fatalf("third call: expected 429, got %d", c)
	}

	now = now.Add(61 * time.Second)
	if c := call(); c != http.StatusOK {
		t.Fatalf("after window: expected 200, got %d", c)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "req-123" || rw.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rw.Header().Get(RequestIDHeader))
	}
}
