package reporting

import (
	"fmt"
	"strconv"

	"github.com/openfoodfacts/nutrieval/internal/dataset"
	"github.com/openfoodfacts/nutrieval/internal/models"
)

// ReadCSVFile reads a report written by CSVWriter back into outcomes. Rows
// without scores become placeholders; their status is only known when the
// report has detail columns. Detail columns, when present, restore verdicts
// and compared values.
func ReadCSVFile(path string) ([]models.ProductOutcome, error) {
	table, err := dataset.LoadCSV(path, dataset.WithComma(Delimiter))
	if err != nil {
		return nil, err
	}
	for _, col := range BaseHeader {
		if !table.HasColumn(col) {
			return nil, fmt.Errorf("report %s: missing column %q", path, col)
		}
	}
	detail := table.HasColumn(ColumnStatus)

	outcomes := make([]models.ProductOutcome, 0, len(table.Rows))
	for i, row := range table.Rows {
		o, err := parseRow(row, detail)
		if err != nil {
			return nil, fmt.Errorf("report %s: row %d: %w", path, i+2, err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func parseRow(row dataset.Row, detail bool) (models.ProductOutcome, error) {
	o := models.ProductOutcome{Code: row[ColumnCode]}
	if detail {
		o.Status = models.Status(row[ColumnStatus])
	}

	if row[ColumnScore1] == "" {
		if o.Status == models.StatusScored {
			return o, fmt.Errorf("scored product %s has no score", o.Code)
		}
		return o, nil
	}

	o.Status = models.StatusScored
	var err error
	if o.DeterminateCount, err = strconv.Atoi(row[ColumnDeterminateCount]); err != nil {
		return o, fmt.Errorf("%s: %w", ColumnDeterminateCount, err)
	}
	if o.Score1, err = strconv.ParseFloat(row[ColumnScore1], 64); err != nil {
		return o, fmt.Errorf("%s: %w", ColumnScore1, err)
	}
	if o.Score2, err = strconv.ParseFloat(row[ColumnScore2], 64); err != nil {
		return o, fmt.Errorf("%s: %w", ColumnScore2, err)
	}
	if !detail {
		return o, nil
	}

	o.Verdicts = models.VerdictMap{}
	o.GroundTruth = models.Record{}
	o.Prediction = models.Record{}
	for _, n := range models.AllNutrients {
		v, err := models.ParseVerdict(row[n.String()])
		if err != nil {
			return o, fmt.Errorf("%s: %w", n, err)
		}
		o.Verdicts[n] = v
		if err := readValue(row, TruthColumn(n), n, o.GroundTruth); err != nil {
			return o, err
		}
		if err := readValue(row, PredictedColumn(n), n, o.Prediction); err != nil {
			return o, err
		}
	}
	return o, nil
}

func readValue(row dataset.Row, column string, n models.Nutrient, into models.Record) error {
	raw := row[column]
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", column, err)
	}
	into[n] = v
	return nil
}
