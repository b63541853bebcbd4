package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/entity-search-enricher/internal/config"
	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/gemini"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/groq"
	"github.com/shpitdev/entity-search-enricher/internal/enrich/serpapi"
	"github.com/shpitdev/entity-search-enricher/internal/pipeline"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/sheets"
	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

// Services holds the upstream clients shared by the HTTP server and the batch driver.
type Services struct {
	Searcher  enrich.Searcher
	Completer enrich.Completer
	Sheets    *sheets.Client

	Provider string
	Model    string
	Options  pipeline.Options
	Log      zerolog.Logger
}

// Build constructs every client from cfg. Searcher and Completer are wrapped so each
// upstream call is logged and counted.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Per-item deadlines come from the request context; the client timeout is a backstop.
	hc, err := upstream.NewHTTPClient(cfg.RequestTimeout+5*time.Second, cfg.CABundle)
	if err != nil {
		return nil, err
	}

	searcher, err := serpapi.New(serpapi.Config{
		APIKey:     cfg.SerpAPIKey,
		BaseURL:    cfg.SerpAPIBaseURL,
		NumResults: cfg.SearchNumResults,
	}, hc)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(ctx, cfg, hc)
	if err != nil {
		return nil, err
	}

	sheetsClient, err := sheets.NewClient(cfg.SheetsBaseURL, hc)
	if err != nil {
		return nil, err
	}

	return &Services{
		Searcher:  NewTracedSearcher(searcher, "serpapi", log),
		Completer: NewTracedCompleter(completer, cfg.LLMProvider, log),
		Sheets:    sheetsClient,
		Provider:  cfg.LLMProvider,
		Model:     cfg.Model(),
		Options: pipeline.Options{
			RequestTimeout: cfg.RequestTimeout,
			RateLimitRPS:   cfg.RateLimitRPS,
		},
		Log: log,
	}, nil
}

func newCompleter(ctx context.Context, cfg config.Config, hc *http.Client) (enrich.Completer, error) {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		return groq.New(groq.Config{
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
			BaseURL: cfg.GroqBaseURL,
		}, hc)
	case config.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

// Extractor returns an extractor over the traced completer logging with log.
func (s *Services) Extractor(log zerolog.Logger) *enrich.Extractor {
	return enrich.NewExtractor(s.Completer, log)
}
