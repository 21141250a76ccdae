package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)

	var seen string
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	if seen == "" {
		t.Fatal("expected a request id in the handler context")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status must pass through, got %d", rec.Code)
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	m := NewMiddleware(nil)

	ids := make(map[string]bool)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids[GetRequestID(r.Context())] = true
	}))

	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}
	if len(ids) != 5 {
		t.Fatalf("expected 5 distinct ids, got %d", len(ids))
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMiddleware(func(r *http.Request) string { return "1.2.3.4" })
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 3 {
		t.Fatalf("expected 3 requests counted, got %d", got.TotalRequests)
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
