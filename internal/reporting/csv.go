// Package reporting writes evaluation results as a delimited report, JUnit
// XML and a plain-language summary.
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// Delimiter separates report fields.
const Delimiter = ';'

// Report column names.
const (
	ColumnCode             = "code"
	ColumnDeterminateCount = "determinate_count"
	ColumnScore1           = "score1"
	ColumnScore2           = "score2"
	ColumnStatus           = "status"
)

// BaseHeader is the header of a report without detail columns.
var BaseHeader = []string{ColumnCode, ColumnDeterminateCount, ColumnScore1, ColumnScore2}

// TruthColumn and PredictedColumn name the detail value columns of n.
func TruthColumn(n models.Nutrient) string     { return n.String() + "_truth" }
func PredictedColumn(n models.Nutrient) string { return n.String() + "_predicted" }

// CSVWriter writes one row per product. The header is written before the
// first row, or on Flush when there are no rows.
type CSVWriter struct {
	w             *csv.Writer
	detail        bool
	headerWritten bool
}

// NewCSVWriter creates a writer. With detail, each row also carries the
// status and, per nutrient, the verdict and both compared values.
func NewCSVWriter(w io.Writer, detail bool) *CSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	return &CSVWriter{w: cw, detail: detail}
}

// Header returns the columns this writer emits.
func (c *CSVWriter) Header() []string {
	header := append([]string(nil), BaseHeader...)
	if !c.detail {
		return header
	}
	header = append(header, ColumnStatus)
	for _, n := range models.AllNutrients {
		header = append(header, n.String(), TruthColumn(n), PredictedColumn(n))
	}
	return header
}

// Write appends the row of one product.
func (c *CSVWriter) Write(o models.ProductOutcome) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	if err := c.w.Write(c.row(o)); err != nil {
		return fmt.Errorf("writing row for %s: %w", o.Code, err)
	}
	return nil
}

// WriteAll writes every product in order and flushes.
func (c *CSVWriter) WriteAll(products []models.ProductOutcome) error {
	for _, p := range products {
		if err := c.Write(p); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush writes buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) writeHeader() error {
	if c.headerWritten {
		return nil
	}
	c.headerWritten = true
	if err := c.w.Write(c.Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

func (c *CSVWriter) row(o models.ProductOutcome) []string {
	row := []string{o.Code, "", "", ""}
	if o.Status.Scored() {
		row[1] = strconv.Itoa(o.DeterminateCount)
		row[2] = formatScore(o.Score1)
		row[3] = formatScore(o.Score2)
	}
	if !c.detail {
		return row
	}

	row = append(row, string(o.Status))
	for _, n := range models.AllNutrients {
		verdict := ""
		if o.Status.Scored() {
			verdict = o.Verdicts[n].String()
		}
		row = append(row, verdict, formatValue(o.GroundTruth, n), formatValue(o.Prediction, n))
	}
	return row
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func formatValue(rec models.Record, n models.Nutrient) string {
	v, ok := rec.Value(n)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSVFile writes the report of outcome to path.
func WriteCSVFile(outcome *models.EvaluationOutcome, path string, detail bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	if err := NewCSVWriter(f, detail).WriteAll(outcome.Products); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
