// Package mockupstream serves SerpAPI-, Groq- and Google Sheets-shaped endpoints from a
// fixture, for local runs and integration tests.
package mockupstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	// Subject is the search query, the prompt, or the sheet id.
	Subject string
}

// Server implements the upstream API surface used by the enricher.
type Server struct {
	fixture *Fixture

	mu             sync.Mutex
	calls          []Call
	expectedAPIKey string
}

func New(f *Fixture) *Server {
	if f == nil {
		f = &Fixture{}
	}
	return &Server{fixture: f}
}

// RequireAPIKey enforces that search requests carry api_key=key and completion requests
// carry "Authorization: Bearer key". An empty key disables the check.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAPIKey = strings.TrimSpace(key)
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search.json", s.handleSearch)
	mux.HandleFunc("POST /openai/v1/chat/completions", s.handleChat)
	mux.HandleFunc("GET /spreadsheets/d/{id}/export", s.handleExport)
	return mux
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the subjects of calls whose path has the given prefix.
func (s *Server) CallsTo(pathPrefix string) []string {
	var out []string
	for _, c := range s.Calls() {
		if strings.HasPrefix(c.Path, pathPrefix) {
			out = append(out, c.Subject)
		}
	}
	return out
}

func (s *Server) record(r *http.Request, subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Subject: subject})
}

func (s *Server) apiKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expectedAPIKey
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	s.record(r, query)

	if key := s.apiKey(); key != "" && q.Get("api_key") != key {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key",
		})
		return
	}
	if q.Get("engine") != "google" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Unsupported engine"})
		return
	}
	if f, ok := s.fixture.SearchFailures[query]; ok {
		writeJSON(w, statusOr(f.Status, http.StatusInternalServerError), map[string]any{"error": f.Message})
		return
	}
	hits, ok := s.fixture.Search[query]
	if !ok || len(hits) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"search_metadata": map[string]any{"status": "Success"},
			"error":           "Google hasn't returned any results for this query.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"search_metadata": map[string]any{"status": "Success"},
		"organic_results": hits,
	})
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.record(r, "")
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body")
		return
	}
	var prompt strings.Builder
	for _, m := range req.Messages {
		prompt.WriteString(m.Content)
	}
	s.record(r, prompt.String())

	if key := s.apiKey(); key != "" && r.Header.Get("Authorization") != "Bearer "+key {
		writeOpenAIError(w, http.StatusUnauthorized, "invalid_request_error", "Invalid API Key")
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeOpenAIError(w, http.StatusBadRequest, "invalid_request_error", "model is required")
		return
	}

	reply, failure := s.fixture.completion(prompt.String())
	if failure != nil {
		writeOpenAIError(w, statusOr(failure.Status, http.StatusInternalServerError), "api_error", failure.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      fmt.Sprintf("chatcmpl-mock-%d", len(s.Calls())),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": reply},
		}},
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.record(r, id)

	if r.URL.Query().Get("format") != "csv" {
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	body, ok := s.fixture.Sheets[id]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write([]byte(body))
}

func writeOpenAIError(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg, "type": typ},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}
