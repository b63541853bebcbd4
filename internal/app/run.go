package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/logging"
	"github.com/shpitdev/entity-search-enricher/internal/metrics"
	"github.com/shpitdev/entity-search-enricher/internal/pipeline"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/core"
	localio "github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/local"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/schema"
)

// RunOptions describes one batch run. Exactly one of InputPath and SheetID is set.
type RunOptions struct {
	InputPath string
	SheetID   string
	Column    string

	Template    string
	Instruction string

	// OutputPath of "-" writes to Stdout.
	OutputPath string
	Format     schema.OutputFormat
	Stdout     io.Writer
}

func (o RunOptions) validate() error {
	hasFile := strings.TrimSpace(o.InputPath) != ""
	hasSheet := strings.TrimSpace(o.SheetID) != ""
	switch {
	case hasFile && hasSheet:
		return errors.New("set only one of --input and --sheet-id")
	case !hasFile && !hasSheet:
		return errors.New("one of --input or --sheet-id is required")
	case strings.TrimSpace(o.Column) == "":
		return errors.New("--column is required")
	case strings.TrimSpace(o.OutputPath) == "":
		return errors.New("--output is required")
	}
	return nil
}

// Summary counts extraction records by result.
type Summary struct {
	OK        int
	NoResults int
	Errors    int
}

// Summarize counts records and records them in metrics.
func Summarize(records []enrich.ExtractionRecord) Summary {
	var s Summary
	for _, r := range records {
		switch {
		case r.ExtractedText == enrich.ErrorText:
			s.Errors++
			metrics.RecordExtraction("error")
		case r.ExtractedText == enrich.NoResultsText(r.Entity):
			s.NoResults++
			metrics.RecordExtraction("no_results")
		default:
			s.OK++
			metrics.RecordExtraction("ok")
		}
	}
	return s
}

// Run reads one column of entities, runs every pipeline stage over it and writes the rows.
func Run(ctx context.Context, svc *Services, opts RunOptions) (*pipeline.Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	session := pipeline.NewSession(svc.Options)
	log := logging.WithRun(svc.Log, session.ID)
	runStart := time.Now()
	log.Info().
		Str("input", opts.InputPath).
		Str("sheet_id", opts.SheetID).
		Str("column", opts.Column).
		Str("output", opts.OutputPath).
		Str("format", string(opts.Format)).
		Str("provider", svc.Provider).
		Str("model", svc.Model).
		Dur("timeout", svc.Options.RequestTimeout).
		Float64("rate_limit_rps", svc.Options.RateLimitRPS).
		Msg("run start")

	readStart := time.Now()
	entities, err := entitySource(svc, opts).Load(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Int("entities", len(entities)).Dur("duration", time.Since(readStart)).Msg("loaded entities")

	onStage := func(stage string, elapsed time.Duration) {
		switch stage {
		case pipeline.StageSearch:
			failed := 0
			for _, o := range session.SearchResults {
				if o.Failed() {
					failed++
				}
			}
			log.Info().
				Int("queries", len(session.Queries)).
				Int("without_results", failed).
				Dur("duration", elapsed).
				Msg("search complete")
		case pipeline.StageExtract:
			sum := Summarize(session.Records)
			log.Info().
				Int("produced", len(session.Records)).
				Int("ok", sum.OK).
				Int("no_results", sum.NoResults).
				Int("error", sum.Errors).
				Dur("duration", elapsed).
				Msg("extraction complete")
		}
	}
	if err := session.Run(ctx, entities, opts.Template, opts.Instruction, svc.Searcher, svc.Extractor(log), onStage); err != nil {
		return nil, err
	}

	if err := rowSink(opts).Store(ctx, session.Rows()); err != nil {
		return nil, err
	}
	log.Info().Dur("total_duration", time.Since(runStart)).Msg("run complete")
	return session, nil
}

func entitySource(svc *Services, opts RunOptions) core.InputAdapter[string] {
	return core.LoadFunc[string](func(ctx context.Context) ([]string, error) {
		var (
			table *localio.Table
			err   error
		)
		if strings.TrimSpace(opts.SheetID) != "" {
			table, err = svc.Sheets.Fetch(ctx, opts.SheetID)
		} else {
			table, err = readTableFile(opts.InputPath)
		}
		if err != nil {
			return nil, err
		}
		return table.Column(opts.Column)
	})
}

func readTableFile(path string) (*localio.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	t, err := localio.ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

func rowSink(opts RunOptions) core.OutputAdapter[pipeline.Row] {
	return core.StoreFunc[pipeline.Row](func(_ context.Context, rows []pipeline.Row) error {
		if opts.OutputPath == "-" {
			w := opts.Stdout
			if w == nil {
				w = os.Stdout
			}
			return pipeline.Write(w, rows, opts.Format)
		}

		outF, err := os.Create(opts.OutputPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = outF.Close()
		}()

		if err := pipeline.Write(outF, rows, opts.Format); err != nil {
			return err
		}
		return outF.Close()
	})
}
