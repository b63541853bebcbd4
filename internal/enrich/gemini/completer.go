// Package gemini is the Gemini API alternative to the groq extraction provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
)

const DefaultModel = "gemini-2.5-flash"

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type Completer struct {
	client *genai.Client
	model  string
}

var _ enrich.Completer = (*Completer)(nil)

func New(ctx context.Context, cfg Config) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &Completer{client: client, model: model}, nil
}

func (c *Completer) Model() string {
	return c.model
}

// Complete sends prompt as a single user turn. The model answers from the prompt alone;
// no search tools are attached since the search results are already inlined.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(
		ctx,
		c.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{CandidateCount: 1},
	)
	if err != nil {
		return "", classifyErr(err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", &enrich.CallError{Provider: "gemini", Kind: enrich.KindOther, Err: errors.New("empty response")}
	}
	return text, nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &enrich.CallError{
			Provider:   "gemini",
			Kind:       enrich.KindForStatus(apiErr.Code),
			StatusCode: apiErr.Code,
			Err:        err,
		}
	}
	return &enrich.CallError{Provider: "gemini", Kind: enrich.ErrorKind(err), Err: err}
}
