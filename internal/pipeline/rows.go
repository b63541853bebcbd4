package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/entity-search-enricher/internal/enrich"
	"github.com/shpitdev/entity-search-enricher/pkg/pipeline/schema"
)

// Row is the stable output schema of extracted_data.csv.
type Row struct {
	Company       string `json:"company"`
	ExtractedInfo string `json:"extracted_info"`
}

// Header returns the stable CSV header for Row.
func Header() []string {
	out := make([]string, 0, len(schema.ExtractedFields))
	for _, f := range schema.ExtractedFields {
		out = append(out, f.Name)
	}
	return out
}

// RowsFromRecords converts extraction records to output rows, preserving order.
func RowsFromRecords(records []enrich.ExtractionRecord) []Row {
	out := make([]Row, 0, len(records))
	for _, r := range records {
		out = append(out, Row{Company: r.Entity, ExtractedInfo: r.ExtractedText})
	}
	return out
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Company, r.ExtractedInfo}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads rows previously written by WriteCSV. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	ci, ok1 := idx["company"]
	ei, ok2 := idx["extracted_info"]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("expected columns %v, got %v", Header(), header)
	}

	var out []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, Row{Company: cell(rec, ci), ExtractedInfo: cell(rec, ei)})
	}
	return out, nil
}

// WriteJSON writes rows as a single JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// Write dispatches on format.
func Write(w io.Writer, rows []Row, format schema.OutputFormat) error {
	switch format {
	case schema.OutputFormatJSON:
		return WriteJSON(w, rows)
	default:
		return WriteCSV(w, rows)
	}
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
