package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/worker"
)

// ErrStageOrder is returned when a stage runs before the stage it depends on.
var ErrStageOrder = errors.New("pipeline stage run out of order")

type Options struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
}

// Worker converts o to the batch runner's options.
func (o Options) Worker() worker.Options {
	return worker.Options{RequestTimeout: o.RequestTimeout, RateLimitRPS: o.RateLimitRPS}
}

// Session carries the state of one enrichment run from query generation to extraction.
//
// Each stage resets the output of every later stage, so re-running an earlier stage never
// leaves stale downstream data behind.
type Session struct {
	ID string

	Template    string
	Instruction string

	Queries       []enrich.Query
	SearchResults map[string]enrich.SearchOutcome
	Bundles       []enrich.EntityBundle
	Records       []enrich.ExtractionRecord

	opts Options
}

func NewSession(opts Options) *Session {
	return &Session{ID: uuid.NewString(), opts: opts}
}

// GenerateQueries renders one query per entity.
func (s *Session) GenerateQueries(entities []string, template string) []enrich.Query {
	if template == "" {
		template = enrich.DefaultQueryTemplate
	}
	s.Template = template
	s.Queries = enrich.GenerateQueries(entities, template)
	s.SearchResults, s.Bundles, s.Records = nil, nil, nil
	return s.Queries
}

// Search runs every generated query through searcher.
func (s *Session) Search(ctx context.Context, searcher enrich.Searcher) error {
	if s.Queries == nil {
		return ErrStageOrder
	}
	res, err := enrich.SearchAll(ctx, searcher, enrich.Texts(s.Queries), s.opts.Worker())
	if err != nil {
		return err
	}
	s.SearchResults = res
	s.Bundles, s.Records = nil, nil
	return nil
}

// Correlate groups search results into one bundle per generated query.
func (s *Session) Correlate() error {
	if s.SearchResults == nil {
		return ErrStageOrder
	}
	s.Bundles = enrich.CorrelateQueries(s.Queries, s.SearchResults)
	s.Records = nil
	return nil
}

// Extract asks the extractor for one record per bundle.
func (s *Session) Extract(ctx context.Context, ex *enrich.Extractor, instruction string) error {
	if s.Bundles == nil {
		return ErrStageOrder
	}
	if instruction == "" {
		instruction = enrich.DefaultInstruction
	}
	s.Instruction = instruction
	recs, err := enrich.ExtractAll(ctx, ex, s.Bundles, instruction, s.opts.Worker())
	if err != nil {
		return err
	}
	s.Records = recs
	return nil
}

// Stage names passed to a StageHook.
const (
	StageQueries   = "queries"
	StageSearch    = "search"
	StageCorrelate = "correlate"
	StageExtract   = "extract"
)

// StageHook is called by Run after each stage completes.
type StageHook func(stage string, elapsed time.Duration)

// Run executes every stage in order. hook may be nil.
func (s *Session) Run(ctx context.Context, entities []string, template, instruction string, searcher enrich.Searcher, ex *enrich.Extractor, hook StageHook) error {
	done := func(stage string, start time.Time) {
		if hook != nil {
			hook(stage, time.Since(start))
		}
	}

	start := time.Now()
	s.GenerateQueries(entities, template)
	done(StageQueries, start)

	start = time.Now()
	if err := s.Search(ctx, searcher); err != nil {
		return err
	}
	done(StageSearch, start)

	start = time.Now()
	if err := s.Correlate(); err != nil {
		return err
	}
	done(StageCorrelate, start)

	start = time.Now()
	if err := s.Extract(ctx, ex, instruction); err != nil {
		return err
	}
	done(StageExtract, start)
	return nil
}

// Rows returns the extraction output in row form.
func (s *Session) Rows() []Row {
	return RowsFromRecords(s.Records)
}
