package consumer

import (
	"context"
	"strings"
	"testing"

	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/core"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/local"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/io/sheets"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/redact"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/schema"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/worker"
	"github.com/shpitdev/entity-search-enricher/pkg/upstream"
)

type upper struct{}

func (upper) Process(_ context.Context, in string) (string, error) {
	return strings.ToUpper(strings.TrimSpace(in)), nil
}

func TestPublicPackagesCompile(t *testing.T) {
	t.Parallel()

	_ = schema.OutputContract{Fields: schema.ExtractedFields}
	_ = upstream.HTTPError{}

	if _, err := sheets.NewClient(sheets.DefaultBaseURL, nil); err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	tbl, err := local.ReadTable(strings.NewReader("company\n acme \n"))
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	entities, err := tbl.Column("company")
	if err != nil {
		t.Fatalf("Column failed: %v", err)
	}

	var p core.Processor[string, string] = upper{}
	out, err := worker.ProcessAll(context.Background(), entities, p.Process, worker.Options{})
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(out) != 1 || out[0].Output != "ACME" {
		t.Fatalf("unexpected output: %#v", out)
	}

	if got := redact.Secrets("api_key=abc123"); strings.Contains(got, "abc123") {
		t.Fatalf("secret not redacted: %q", got)
	}
}
