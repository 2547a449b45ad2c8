// Package metrics aggregates verdicts and scores across products.
package metrics

import "github.com/openfoodfacts/nutrieval/internal/models"

// Breakdown counts the verdicts of every nutrient over the given maps, one
// entry per nutrient in models.AllNutrients order. A nutrient missing from a
// map counts as Indeterminate.
func Breakdown(verdicts []models.VerdictMap) []models.NutrientBreakdown {
	out := make([]models.NutrientBreakdown, 0, len(models.AllNutrients))
	for _, n := range models.AllNutrients {
		b := models.NutrientBreakdown{Nutrient: n}
		for _, m := range verdicts {
			switch m[n] {
			case models.Match:
				b.Match++
			case models.Mismatch:
				b.Mismatch++
			default:
				b.Indeterminate++
			}
		}
		determinate := b.Match + b.Mismatch
		b.Accuracy = ratio(b.Match, determinate)
		b.Coverage = ratio(determinate, len(verdicts))
		out = append(out, b)
	}
	return out
}

// OutcomeVerdicts collects the verdict maps of scored outcomes.
func OutcomeVerdicts(outcomes []models.ProductOutcome) []models.VerdictMap {
	var out []models.VerdictMap
	for _, o := range outcomes {
		if o.Status.Scored() && o.Verdicts != nil {
			out = append(out, o.Verdicts)
		}
	}
	return out
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
