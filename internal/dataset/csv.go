// Package dataset reads delimited text tables.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Row represents a single CSV row with column name to value mapping.
type Row map[string]string

// Table is a parsed file: its header and data rows.
type Table struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Option configures LoadCSV.
type Option func(*csv.Reader)

// WithComma sets the field delimiter (default ',').
func WithComma(r rune) Option {
	return func(cr *csv.Reader) {
		cr.Comma = r
	}
}

// LoadCSV reads a delimited file. The first row is treated as headers.
func LoadCSV(path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	for _, o := range opts {
		o(reader)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv: %s is empty (no header row)", path)
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)

	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("csv: row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		row := make(Row, len(headers))
		for j, h := range headers {
			row[h] = record[j]
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// Column returns the values of one column in row order.
func (t *Table) Column(name string) ([]string, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("csv: missing column %q", name)
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out, nil
}
