package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
)

// errorEnvelope covers the error bodies returned by the upstreams this module calls.
// SerpAPI answers {"error": "..."}; OpenAI-compatible APIs answer {"error": {"message": "..."}}.
type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type nestedError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// HTTPError is a sanitized summary of a non-2xx upstream response.
//
// Important: do not include raw response bodies here (can leak PII/tokens).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string

	// Message is the upstream's own error message when the body carried one.
	Message string

	// Snippet is a redacted, truncated hint for bodies without an error envelope.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	parts := []string{
		fmt.Sprintf("upstream error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, "message="+strings.TrimSpace(e.Message))
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// NewHTTPError builds an HTTPError from a response and its already-read body.
func NewHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	if msg := envelopeMessage(body); msg != "" {
		h.Message = redact.Secrets(msg)
		return h
	}

	h.Snippet = redactAndTruncate(body)
	return h
}

func envelopeMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Error) == 0 {
		return ""
	}
	var flat string
	if err := json.Unmarshal(env.Error, &flat); err == nil {
		return strings.TrimSpace(flat)
	}
	var nested nestedError
	if err := json.Unmarshal(env.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	const max = 256
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redact.Secrets(string(b))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
