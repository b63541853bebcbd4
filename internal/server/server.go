// Package server exposes the enrichment pipeline over HTTP and serves the dashboard page.
package server

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shpitdev/entity-search-enricher/internal/app"
	"github.com/shpitdev/entity-search-enricher/internal/metrics"
)

//go:embed static/index.html
var indexHTML []byte

const (
	maxJSONBytes   = 10 << 20
	maxUploadBytes = 32 << 20
)

type Server struct {
	svc *app.Services
	log zerolog.Logger
}

func New(svc *app.Services, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Handler returns the full route table wrapped in logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /upload_csv", s.handleUploadCSV)
	mux.HandleFunc("POST /get_google_sheet", s.handleGetGoogleSheet)
	mux.HandleFunc("POST /generate_queries", s.handleGenerateQueries)
	mux.HandleFunc("POST /perform_search", s.handlePerformSearch)
	mux.HandleFunc("POST /correlate", s.handleCorrelate)
	mux.HandleFunc("POST /process_with_groq", s.handleProcessWithGroq)
	mux.HandleFunc("POST /download_csv", s.handleDownloadCSV)

	return s.withRequestLog(metrics.Middleware(mux))
}

// NewHTTPServer wraps handler with conservative timeouts. WriteTimeout is left unset since
// search and extraction requests run one upstream call per entity.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		log := s.log.With().Str("run", id).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := log.Info()
		if rec.status >= 500 {
			ev = log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// errorResponse is the body of every non-2xx JSON answer.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its zero value so
// handlers report their own "not provided" error; any other decode failure writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
	return false
}

// contextStatus maps a cancelled batch to a response status.
func contextStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusServiceUnavailable
}
