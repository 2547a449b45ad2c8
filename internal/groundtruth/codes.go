package groundtruth

import (
	"fmt"
	"strings"

	"github.com/openfoodfacts/nutrieval/internal/dataset"
)

// LoadCodes reads an explicit product list: a CSV file with a `code` column.
// Blank codes are dropped and repeated codes keep their first position.
func LoadCodes(path string) ([]string, error) {
	table, err := dataset.LoadCSV(path)
	if err != nil {
		return nil, err
	}
	column, err := table.Column("code")
	if err != nil {
		return nil, fmt.Errorf("product list %s: %w", path, err)
	}

	seen := make(map[string]bool, len(column))
	codes := make([]string, 0, len(column))
	for _, c := range column {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	return codes, nil
}
