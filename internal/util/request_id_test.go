package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithRequestIDRoundTrip(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	t.Run("echoes caller-supplied id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("X-Request-Id", "rid-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen != "rid-42" {
			t.Fatalf("context id = %q, want rid-42", seen)
		}
		if got := rec.Header().Get("X-Request-Id"); got != "rid-42" {
			t.Fatalf("response header = %q, want rid-42", got)
		}
	})

	t.Run("mints an id when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if seen == "" {
			t.Fatal("no request id placed in context")
		}
		if rec.Header().Get("X-Request-Id") != seen {
			t.Fatal("response header disagrees with context id")
		}
	})
}

func TestRequestIDFromContextDefaultsEmpty(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("RequestIDFromContext on bare context = %q, want empty", got)
	}
}
