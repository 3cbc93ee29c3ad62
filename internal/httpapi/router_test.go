package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSPreflightAllowsTaskMutations(t *testing.T) {
	h := withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached the mux")
	}))

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/tasks/abc", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", method)
		req.Header.Set("Access-Control-Request-Headers", "authorization")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s preflight status = %d, want %d", method, rec.Code, http.StatusNoContent)
		}
		if allowed := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(allowed, method) {
			t.Fatalf("expected %s in allowed methods, got %q", method, allowed)
		}
		if allowed := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(allowed, "Authorization") {
			t.Fatalf("expected Authorization in allowed headers, got %q", allowed)
		}
	}
}

func TestJSONContentTypeDefaultsOnWrites(t *testing.T) {
	var seen string
	h := withJSONContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Content-Type")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/chat", strings.NewReader("{}")))
	if seen != "application/json" {
		t.Fatalf("expected default json content type on PUT, got %q", seen)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if seen != "" {
		t.Fatalf("expected GET untouched, got %q", seen)
	}
}

func TestRequestLoggingKeepsStatus(t *testing.T) {
	h := withRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
