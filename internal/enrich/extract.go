package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/core"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/worker"
)

const (
	// DefaultInstruction is the extraction instruction offered by the dashboard.
	DefaultInstruction = "From the search results, extract the email address for " + Placeholder +
		" and return only the email address in plain text."

	// ErrorText replaces the extracted text when the language model call fails.
	ErrorText = "Error"

	// UnknownEntity names bundles submitted without an entity.
	UnknownEntity = "Unknown Company"
)

// NoResultsText is the fixed answer for an entity without search evidence.
func NoResultsText(entity string) string {
	return fmt.Sprintf("There are no search results for %s. I cannot extract the required information.", entity)
}

// BuildPrompt renders the instruction for entity and appends the search results, one line each.
func BuildPrompt(instruction, entity string, results []SearchResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", r.Title, r.URL, r.Snippet))
	}
	return Render(instruction, entity) + "\n\nSearch results:\n" + strings.Join(lines, "\n")
}

// Extractor asks a language model to pull one fact per entity out of its search results.
type Extractor struct {
	completer Completer
	log       zerolog.Logger
}

func NewExtractor(c Completer, log zerolog.Logger) *Extractor {
	return &Extractor{completer: c, log: log}
}

// Extract never fails: missing evidence yields NoResultsText without calling the model,
// and a model failure is logged and yields ErrorText.
func (e *Extractor) Extract(ctx context.Context, b EntityBundle, instruction string) ExtractionRecord {
	entity := strings.TrimSpace(b.Entity)
	if entity == "" {
		entity = UnknownEntity
	}
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	if len(b.SearchResults) == 0 {
		return ExtractionRecord{Entity: entity, ExtractedText: NoResultsText(entity)}
	}

	start := time.Now()
	reply, err := e.completer.Complete(ctx, BuildPrompt(instruction, entity, b.SearchResults))
	if err != nil {
		e.log.Error().
			Str("entity", entity).
			Dur("duration", time.Since(start)).
			Str("err", redact.Secrets(err.Error())).
			Msg("extraction failed")
		return ExtractionRecord{Entity: entity, ExtractedText: ErrorText}
	}
	return ExtractionRecord{Entity: entity, ExtractedText: strings.TrimSpace(reply)}
}

// ExtractStage binds an Extractor to one instruction so it can run as a pipeline processor.
type ExtractStage struct {
	Extractor   *Extractor
	Instruction string
}

var _ core.Processor[EntityBundle, ExtractionRecord] = ExtractStage{}

func (s ExtractStage) Process(ctx context.Context, b EntityBundle) (ExtractionRecord, error) {
	return s.Extractor.Extract(ctx, b, s.Instruction), nil
}

// ExtractAll extracts every bundle in order. The only error is the caller's context being done.
func ExtractAll(ctx context.Context, e *Extractor, bundles []EntityBundle, instruction string, opts worker.Options) ([]ExtractionRecord, error) {
	stage := ExtractStage{Extractor: e, Instruction: instruction}
	results, err := worker.ProcessAll(ctx, bundles, stage.Process, opts)
	if err != nil {
		return nil, err
	}
	out := make([]ExtractionRecord, 0, len(results))
	for _, r := range results {
		out = append(out, r.Output)
	}
	return out, nil
}
