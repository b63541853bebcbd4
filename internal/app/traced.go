package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/metrics"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
)

type tracedSearcher struct {
	next     enrich.Searcher
	provider string
	log      zerolog.Logger
}

// NewTracedSearcher logs one request and one response line per search and records metrics.
func NewTracedSearcher(next enrich.Searcher, provider string, log zerolog.Logger) enrich.Searcher {
	return &tracedSearcher{next: next, provider: provider, log: log}
}

func (t *tracedSearcher) Search(ctx context.Context, query string) ([]enrich.SearchResult, error) {
	t.log.Debug().
		Str("provider", t.provider).
		Str("query", query).
		Str("deadline_in", deadlineIn(ctx)).
		Msg("search request")

	start := time.Now()
	out, err := t.next.Search(ctx, query)
	elapsed := time.Since(start)
	metrics.RecordUpstream(t.provider, enrich.ErrorKind(err), elapsed)

	if err != nil {
		t.log.Warn().
			Str("provider", t.provider).
			Str("query", query).
			Dur("duration", elapsed).
			Str("status", "error").
			Str("kind", enrich.ErrorKind(err)).
			Str("err", redact.Secrets(err.Error())).
			Msg("search response")
		return out, err
	}
	t.log.Debug().
		Str("provider", t.provider).
		Str("query", query).
		Dur("duration", elapsed).
		Str("status", "ok").
		Int("results", len(out)).
		Msg("search response")
	return out, nil
}

type tracedCompleter struct {
	next     enrich.Completer
	provider string
	log      zerolog.Logger
}

// NewTracedCompleter logs one request and one response line per completion and records metrics.
// Prompts are logged by length only.
func NewTracedCompleter(next enrich.Completer, provider string, log zerolog.Logger) enrich.Completer {
	return &tracedCompleter{next: next, provider: provider, log: log}
}

func (t *tracedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	t.log.Debug().
		Str("provider", t.provider).
		Int("prompt_bytes", len(prompt)).
		Str("deadline_in", deadlineIn(ctx)).
		Msg("completion request")

	start := time.Now()
	out, err := t.next.Complete(ctx, prompt)
	elapsed := time.Since(start)
	metrics.RecordUpstream(t.provider, enrich.ErrorKind(err), elapsed)

	if err != nil {
		t.log.Warn().
			Str("provider", t.provider).
			Dur("duration", elapsed).
			Str("status", "error").
			Str("kind", enrich.ErrorKind(err)).
			Str("err", redact.Secrets(err.Error())).
			Msg("completion response")
		return out, err
	}
	t.log.Debug().
		Str("provider", t.provider).
		Dur("duration", elapsed).
		Str("status", "ok").
		Int("reply_bytes", len(out)).
		Msg("completion response")
	return out, nil
}

func deadlineIn(ctx context.Context) string {
	if d, ok := ctx.Deadline(); ok {
		return time.Until(d).Round(time.Millisecond).String()
	}
	return "none"
}
