// Package serpapi searches Google through SerpAPI's JSON endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

const (
	DefaultBaseURL    = "https://serpapi.com/"
	DefaultNumResults = 5
)

type Config struct {
	APIKey string

	// BaseURL overrides the SerpAPI base URL. Useful for proxies/testing.
	BaseURL string

	// NumResults caps the organic results kept per query.
	NumResults int
}

type Client struct {
	apiKey string
	base   *url.URL
	num    int
	hc     *http.Client
}

var _ enrich.Searcher = (*Client)(nil)

func New(cfg Config, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("SERPAPI_API_KEY is required")
	}
	raw := cfg.BaseURL
	if strings.TrimSpace(raw) == "" {
		raw = DefaultBaseURL
	}
	base, err := upstream.ParseBaseURL(raw, "serpapi")
	if err != nil {
		return nil, err
	}
	if cfg.NumResults <= 0 {
		cfg.NumResults = DefaultNumResults
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		apiKey: strings.TrimSpace(cfg.APIKey),
		base:   base,
		num:    cfg.NumResults,
		hc:     hc,
	}, nil
}

type organicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// Search returns up to NumResults organic hits for query.
//
// A 2xx response that carries only an "error" field (SerpAPI's "Google hasn't returned any
// results for this query.") yields an empty list rather than an error.
func (c *Client) Search(ctx context.Context, query string) ([]enrich.SearchResult, error) {
	u := c.base.ResolveReference(&url.URL{Path: "search.json"})
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", c.apiKey)
	q.Set("num", strconv.Itoa(c.num))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", upstream.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		// *url.Error embeds the request URL, which carries the API key.
		return nil, &transportError{msg: "serpapi search: " + scrubURLError(err, c.apiKey), err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read serpapi response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, upstream.NewHTTPError("serpapi.search", resp, body)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}

	out := make([]enrich.SearchResult, 0, len(parsed.OrganicResults))
	for _, r := range parsed.OrganicResults {
		if len(out) == c.num {
			break
		}
		out = append(out, enrich.SearchResult{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
		})
	}
	return out, nil
}

// transportError carries a key-free message while keeping the cause reachable for
// errors.Is and errors.As (deadlines, net.Error timeouts).
type transportError struct {
	msg string
	err error
}

func (e *transportError) Error() string { return e.msg }

func (e *transportError) Unwrap() error { return e.err }

func scrubURLError(err error, secret string) string {
	msg := err.Error()
	if secret != "" {
		msg = strings.ReplaceAll(msg, url.QueryEscape(secret), "<redacted>")
		msg = strings.ReplaceAll(msg, secret, "<redacted>")
	}
	return msg
}
