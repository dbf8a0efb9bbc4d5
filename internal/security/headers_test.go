package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWith(h Headers, req *http.Request) *httptest.ResponseRecorder {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHeadersSetOnTLSRequests(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.local/menu", nil)
	req.TLS = &tls.ConnectionState{}
	rec := serveWith(Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	hsts := rec.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") || !strings.Contains(hsts, "includeSubDomains") {
		t.Fatalf("unexpected HSTS value %q", hsts)
	}
}

func TestHeadersSkipHSTSOverPlainHTTP(t *testing.T) {
	rec := serveWith(Headers{Enable: true, EnableHSTS: true},
		httptest.NewRequest(http.MethodGet, "http://api.local/menu", nil))
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be sent over plain HTTP")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected frame denial even without TLS")
	}
}

func TestHeadersDisabled(t *testing.T) {
	rec := serveWith(Headers{},
		httptest.NewRequest(http.MethodGet, "http://api.local/menu", nil))
	if rec.Header().Get("X-Content-Type-Options") != "" {
		t.Fatal("expected no headers when disabled")
	}
}
