package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimitedHandler(t *testing.T, addr string, max int) (Handler, http.Handler) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	h := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:test:"},
		Config: Config{
			Key:    func(*http.Request) string { return "fixed" },
			Window: time.Second,
			Max:    max,
		},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return h, next
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	h, next := newLimitedHandler(t, mr.Addr(), 1)
	wrapped := h.Middleware(next)

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)

	first := httptest.NewRecorder()
	wrapped.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusNoContent {
		t.Fatalf("first request: got %d", first.Code)
	}

	second := httptest.NewRecorder()
	wrapped.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", second.Code)
	}
	if got := second.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("limit header = %q", got)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on rejection")
	}
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	h, next := newLimitedHandler(t, "127.0.0.1:1", 1)
	var gotErr error
	h.OnError = func(err error) { gotErr = err }
	wrapped := h.Middleware(next)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through on backend error, got %d", rec.Code)
	}
	if gotErr == nil {
		t.Fatal("expected OnError to receive the redis error")
	}
}
