package gemini_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/gemini"
)

func TestCompleter_Complete(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello@acme.com"}]}}]}`))
	}))
	defer srv.Close()

	c, err := gemini.New(context.Background(), gemini.Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := c.Complete(context.Background(), "find the email")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello@acme.com" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if !strings.HasSuffix(gotPath, "/models/gemini-test:generateContent") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header: %q", gotKey)
	}
}

func TestCompleter_ClassifiesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := gemini.New(context.Background(), gemini.Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.Complete(context.Background(), "p")
	var ce *enrich.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CallError, got %T: %v", err, err)
	}
	if ce.Kind != enrich.KindRateLimit || ce.StatusCode != 429 {
		t.Fatalf("unexpected error: %#v", ce)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := gemini.New(context.Background(), gemini.Config{}); err == nil {
		t.Fatalf("expected error")
	}
}
