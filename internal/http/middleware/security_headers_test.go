package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rr := httptest.NewRecorder()
	SecurityHeaders(false)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Header().Get("X-Frame-Options") != "DENY" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing baseline headers: %v", rr.Header())
	}
	if rr.Header().Get("Strict-Transport-Security") != "" || rr.Header().Get("Content-Security-Policy") != "" {
		t.Fatal("HSTS and CSP are production only")
	}

	rr = httptest.NewRecorder()
	SecurityHeaders(true)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Header().Get("Strict-Transport-Security") == "" || rr.Header().Get("Content-Security-Policy") == "" {
		t.Fatalf("expected production headers: %v", rr.Header())
	}
}

func TestCORS(t *testing.T) {
	called := false
	h := CORS([]string{"https://ops.example.com/"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/workers", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || called {
		t.Fatalf("preflight must end in the middleware, got %d called=%v", rr.Code, called)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://ops.example.com" || rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("missing CORS headers: %v", rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/workers", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("CORS applies to /api only")
	}
}

func TestBodyLimit(t *testing.T) {
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/workers", strings.NewReader(strings.Repeat("x", 32))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/workers", strings.NewReader("{}")))
	if rr.Code != http.StatusOK {
		t.Fatalf("small body must pass, got %d", rr.Code)
	}
}
