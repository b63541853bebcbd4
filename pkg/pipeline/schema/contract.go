package schema

import (
	"fmt"
	"strings"
)

// OutputFormat selects how extraction records are written.
type OutputFormat string

const (
	OutputFormatCSV  OutputFormat = "csv"
	OutputFormatJSON OutputFormat = "json"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// OutputContract is the logical schema of the extracted dataset.
type OutputContract struct {
	Format OutputFormat
	Fields []Field
}

// ExtractedFields is the column layout of extracted_data.csv.
var ExtractedFields = []Field{
	{Name: "company", Type: "string"},
	{Name: "extracted_info", Type: "string"},
}

func NormalizeFormat(raw string) OutputFormat {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "json", "jsonl":
		return OutputFormatJSON
	default:
		return OutputFormatCSV
	}
}

// FormatForPath infers the output format from a file extension when none was given.
func FormatForPath(explicit, path string) OutputFormat {
	if strings.TrimSpace(explicit) != "" {
		return NormalizeFormat(explicit)
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return OutputFormatJSON
	}
	return OutputFormatCSV
}

// Validate rejects unknown explicit format strings.
func Validate(raw string) error {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "", "csv", "json", "jsonl":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want csv or json)", raw)
	}
}
