package local

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// PreviewRows is the number of leading rows returned by Table.Preview by default.
const PreviewRows = 5

// ErrEmptyInput is returned when the CSV has no header row.
var ErrEmptyInput = errors.New("no columns to parse from file")

// Table is a parsed CSV: a header plus rows padded to the header width.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ReadTable parses CSV data with a header row.
//
// Rows shorter than the header are padded with empty values; extra trailing cells are dropped.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}

	t := &Table{Columns: cols}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		row := make([]string, len(cols))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadTableBytes is ReadTable over an in-memory CSV document.
func ReadTableBytes(b []byte) (*Table, error) {
	return ReadTable(bytes.NewReader(b))
}

// ColumnIndex returns the index of the named column. Exact matches win over
// case-insensitive ones.
func (t *Table) ColumnIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return -1, false
}

// Column returns every value of the named column in row order.
func (t *Table) Column(name string) ([]string, error) {
	idx, ok := t.ColumnIndex(name)
	if !ok {
		return nil, fmt.Errorf("missing required column %q", name)
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[idx])
	}
	return out, nil
}

// Preview returns the first n rows keyed by column and then by stringified row index,
// e.g. {"company": {"0": "Acme", "1": "Globex"}}.
func (t *Table) Preview(n int) map[string]map[string]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	out := make(map[string]map[string]string, len(t.Columns))
	for ci, col := range t.Columns {
		vals := make(map[string]string, n)
		for ri := 0; ri < n; ri++ {
			vals[strconv.Itoa(ri)] = t.Rows[ri][ci]
		}
		out[col] = vals
	}
	return out
}
