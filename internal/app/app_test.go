package app_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/entity-search-enricher/internal/app"
	"github.com/shpitdev/entity-search-enricher/internal/config"
	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/internal/mockupstream"
	"github.com/shpitdev/entity-search-enricher/internal/pipeline"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/schema"
)

func newServices(t *testing.T) (*app.Services, *mockupstream.Server, *bytes.Buffer) {
	t.Helper()
	f, err := mockupstream.LoadFixture("")
	require.NoError(t, err)
	mock := mockupstream.New(f)
	mock.RequireAPIKey("test-key")
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	cfg := config.Config{
		SerpAPIKey:       "test-key",
		SerpAPIBaseURL:   srv.URL,
		SearchNumResults: 5,
		LLMProvider:      config.ProviderGroq,
		GroqAPIKey:       "test-key",
		GroqModel:        "llama3-8b-8192",
		GroqBaseURL:      srv.URL + "/openai/v1",
		SheetsBaseURL:    srv.URL + "/spreadsheets/d",
		RequestTimeout:   5 * time.Second,
	}
	var logs bytes.Buffer
	svc, err := app.Build(context.Background(), cfg, zerolog.New(&logs).Level(zerolog.DebugLevel))
	require.NoError(t, err)
	return svc, mock, &logs
}

func TestRun_LocalCSV(t *testing.T) {
	svc, mock, logs := newServices(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "companies.csv")
	out := filepath.Join(dir, "extracted_data.csv")
	require.NoError(t, os.WriteFile(in, []byte("Company,city\nAcme,Springfield\nNobody,Nowhere\nInitech,Austin\n"), 0o600))

	session, err := app.Run(context.Background(), svc, app.RunOptions{
		InputPath:  in,
		Column:     "company",
		OutputPath: out,
		Format:     schema.OutputFormatCSV,
	})
	require.NoError(t, err)
	require.Len(t, session.Records, 3)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	rows, err := pipeline.ReadCSV(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Row{
		{Company: "Acme", ExtractedInfo: "hello@acme.test"},
		{Company: "Nobody", ExtractedInfo: enrich.NoResultsText("Nobody")},
		{Company: "Initech", ExtractedInfo: enrich.NoResultsText("Initech")},
	}, rows)

	assert.Equal(t, []string{
		"Get me the email address of Acme",
		"Get me the email address of Nobody",
		"Get me the email address of Initech",
	}, mock.CallsTo("/search.json"))
	// Only entities with search evidence reach the language model.
	assert.Len(t, mock.CallsTo("/openai/"), 1)

	assert.Contains(t, logs.String(), `"run":"`+session.ID+`"`)
	assert.Contains(t, logs.String(), "extraction complete")
	assert.NotContains(t, logs.String(), "test-key")
}

func TestRun_SheetToStdoutJSON(t *testing.T) {
	svc, _, _ := newServices(t)

	var stdout bytes.Buffer
	_, err := app.Run(context.Background(), svc, app.RunOptions{
		SheetID:     "demo",
		Column:      "company",
		Template:    "Get me the email address of {company}",
		Instruction: "From the search results, extract the email address for {company}.",
		OutputPath:  "-",
		Format:      schema.OutputFormatJSON,
		Stdout:      &stdout,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"company":"Acme","extracted_info":"hello@acme.test"},
		{"company":"Globex","extracted_info":"info@globex.test"},
		{"company":"Initech","extracted_info":"There are no search results for Initech. I cannot extract the required information."},
		{"company":"Umbrella","extracted_info":"There are no search results for Umbrella. I cannot extract the required information."}
	]`, stdout.String())
}

func TestRun_ValidatesOptions(t *testing.T) {
	svc, _, _ := newServices(t)
	tests := []struct {
		name string
		opts app.RunOptions
	}{
		{name: "no source", opts: app.RunOptions{Column: "c", OutputPath: "-"}},
		{name: "two sources", opts: app.RunOptions{InputPath: "a.csv", SheetID: "x", Column: "c", OutputPath: "-"}},
		{name: "no column", opts: app.RunOptions{InputPath: "a.csv", OutputPath: "-"}},
		{name: "no output", opts: app.RunOptions{InputPath: "a.csv", Column: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Run(context.Background(), svc, tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestRun_MissingColumn(t *testing.T) {
	svc, _, _ := newServices(t)
	in := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("name\nAcme\n"), 0o600))

	_, err := app.Run(context.Background(), svc, app.RunOptions{InputPath: in, Column: "company", OutputPath: "-", Stdout: &bytes.Buffer{}})
	assert.ErrorContains(t, err, `missing required column "company"`)
}

func TestBuild_RejectsInvalidConfig(t *testing.T) {
	_, err := app.Build(context.Background(), config.Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s := app.Summarize([]enrich.ExtractionRecord{
		{Entity: "A", ExtractedText: "a@a.com"},
		{Entity: "B", ExtractedText: enrich.ErrorText},
		{Entity: "C", ExtractedText: enrich.NoResultsText("C")},
	})
	assert.Equal(t, app.Summary{OK: 1, NoResults: 1, Errors: 1}, s)
}
