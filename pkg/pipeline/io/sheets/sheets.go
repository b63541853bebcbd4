// Package sheets fetches publicly shared Google Sheets through their CSV export endpoint.
package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/local"
	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

// DefaultBaseURL is the public Google Sheets document root.
const DefaultBaseURL = "https://docs.google.com/spreadsheets/d/"

// maxExportBytes caps how much of an export body is read.
const maxExportBytes = 32 << 20

// Client downloads the first sheet of a shared spreadsheet as CSV.
type Client struct {
	base *url.URL
	hc   *http.Client
}

// NewClient returns a Client rooted at baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := upstream.ParseBaseURL(baseURL, "sheets")
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: u, hc: hc}, nil
}

// ExportURL returns {base}/{sheetID}/export?format=csv.
func (c *Client) ExportURL(sheetID string) string {
	rel := &url.URL{Path: url.PathEscape(sheetID) + "/export"}
	u := c.base.ResolveReference(rel)
	q := url.Values{}
	q.Set("format", "csv")
	u.RawQuery = q.Encode()
	return u.String()
}

// ExportCSV downloads the sheet as raw CSV bytes.
func (c *Client) ExportCSV(ctx context.Context, sheetID string) ([]byte, error) {
	sheetID = strings.TrimSpace(sheetID)
	if sheetID == "" {
		return nil, fmt.Errorf("sheet id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(sheetID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", upstream.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets export: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes))
	if err != nil {
		return nil, fmt.Errorf("read sheets export: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, upstream.NewHTTPError("sheets.export", resp, body)
	}
	// Private sheets redirect to an HTML sign-in page instead of failing.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, fmt.Errorf("sheets export: sheet %q is not publicly readable", sheetID)
	}
	return body, nil
}

// Fetch downloads and parses the sheet.
func (c *Client) Fetch(ctx context.Context, sheetID string) (*local.Table, error) {
	b, err := c.ExportCSV(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	t, err := local.ReadTableBytes(b)
	if err != nil {
		return nil, fmt.Errorf("parse sheet %q: %w", sheetID, err)
	}
	return t, nil
}
