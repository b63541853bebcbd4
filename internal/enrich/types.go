package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchOutcome is the result of one search query: either a non-empty list of hits or an
// error marker. On the wire it is a JSON array or {"error": "..."}.
type SearchOutcome struct {
	Results []SearchResult
	Err     string
}

// Failed reports whether the outcome is an error marker.
func (o SearchOutcome) Failed() bool {
	return o.Err != ""
}

func (o SearchOutcome) MarshalJSON() ([]byte, error) {
	if o.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: o.Err})
	}
	if o.Results == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(o.Results)
}

func (o *SearchOutcome) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*o = SearchOutcome{}
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '[':
		return json.Unmarshal(b, &o.Results)
	case b[0] == '{':
		var marker struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(b, &marker); err != nil {
			return err
		}
		o.Err = marker.Error
		if o.Err == "" {
			o.Err = "unknown error"
		}
		return nil
	default:
		return fmt.Errorf("search outcome: want array or object, got %q", string(b[:1]))
	}
}

// Query is a rendered search query tagged with the entity it was generated for.
type Query struct {
	Entity string `json:"entity"`
	Text   string `json:"query"`
}

// EntityBundle groups the search evidence gathered for one entity.
type EntityBundle struct {
	Entity        string         `json:"company"`
	Query         string         `json:"query,omitempty"`
	SearchResults []SearchResult `json:"search_results"`
	Emails        []string       `json:"emails"`
}

// ExtractionRecord is the language-model answer for one entity.
type ExtractionRecord struct {
	Entity        string `json:"entity"`
	ExtractedText string `json:"extracted_info"`
}

// Searcher runs a single web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Completer sends a single user prompt to a language model and returns its reply text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Failure kinds reported by provider clients.
const (
	KindAuth      = "auth"
	KindRateLimit = "rate_limit"
	KindServer    = "server"
	KindTimeout   = "timeout"
	KindOther     = "other"
)

// CallError is a classified failure of one upstream call.
type CallError struct {
	Provider   string
	Kind       string
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	if e == nil || e.Err == nil {
		return "upstream call failed"
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindForStatus maps an HTTP status code to a failure kind.
func KindForStatus(code int) string {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code/100 == 5:
		return KindServer
	default:
		return KindOther
	}
}

// ErrorKind returns the failure kind of err, or "" for a nil error.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var ce *CallError
	if errors.As(err, &ce) && ce.Kind != "" {
		return ce.Kind
	}
	var he *upstream.HTTPError
	if errors.As(err, &he) {
		return KindForStatus(he.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindOther
}
