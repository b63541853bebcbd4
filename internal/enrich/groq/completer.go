// Package groq talks to Groq's OpenAI-compatible chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Groq API base URL. Useful for proxies/testing.
	BaseURL string
}

type Completer struct {
	client openai.Client
	model  string
}

var _ enrich.Completer = (*Completer)(nil)

func New(cfg Config, hc *http.Client) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := upstream.ParseBaseURL(base, "groq")
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(u.String()),
		option.WithHeader("User-Agent", upstream.UserAgent),
		// One attempt per entity; failures surface as "Error" in the output.
		option.WithMaxRetries(0),
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return &Completer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Model returns the model identifier sent with every request.
func (c *Completer) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the first choice's content.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", classifyErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", &enrich.CallError{Provider: "groq", Kind: enrich.KindOther, Err: errors.New("response has no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &enrich.CallError{
			Provider:   "groq",
			Kind:       enrich.KindForStatus(apiErr.StatusCode),
			StatusCode: apiErr.StatusCode,
			Err:        fmt.Errorf("status %d: %s", apiErr.StatusCode, msg),
		}
	}
	return &enrich.CallError{Provider: "groq", Kind: enrich.ErrorKind(err), Err: err}
}
