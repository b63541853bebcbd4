package enrich

import (
	"context"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/core"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/worker"
)

// NoResultsMessage marks a query whose search returned no hits.
const NoResultsMessage = "No results found."

// SearchStage turns a Searcher into a processor that never fails: errors and empty
// result lists become error markers on the outcome.
type SearchStage struct {
	Searcher Searcher
}

var _ core.Processor[string, SearchOutcome] = SearchStage{}

func (s SearchStage) Process(ctx context.Context, query string) (SearchOutcome, error) {
	results, err := s.Searcher.Search(ctx, query)
	if err != nil {
		return SearchOutcome{Err: redact.Secrets(err.Error())}, nil
	}
	if len(results) == 0 {
		return SearchOutcome{Err: NoResultsMessage}, nil
	}
	return SearchOutcome{Results: results}, nil
}

// SearchAll searches every query in order and returns one outcome per distinct query.
//
// The only error is the caller's context being done.
func SearchAll(ctx context.Context, s Searcher, queries []string, opts worker.Options) (map[string]SearchOutcome, error) {
	stage := SearchStage{Searcher: s}
	results, err := worker.ProcessAll(ctx, queries, stage.Process, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]SearchOutcome, len(results))
	for _, r := range results {
		out[r.Input] = r.Output
	}
	return out, nil
}
