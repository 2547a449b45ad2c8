package scoring

import (
	"math"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// DefaultTolerance is the half-width of the tolerance band, as a fraction of
// the ground-truth value.
const DefaultTolerance = 0.1

// Compare evaluates every nutrient of prediction against groundTruth.
//
// A nutrient matches when groundTruth*(1-tolerance) <= prediction <=
// groundTruth*(1+tolerance). Nutrients missing from either record are
// Indeterminate. The result always holds one verdict per entry of
// models.AllNutrients and neither input is modified.
func Compare(prediction, groundTruth models.Record, tolerance float64) models.VerdictMap {
	verdicts := make(models.VerdictMap, len(models.AllNutrients))
	for _, n := range models.AllNutrients {
		verdicts[n] = compareOne(prediction, groundTruth, n, tolerance)
	}
	return verdicts
}

func compareOne(prediction, groundTruth models.Record, n models.Nutrient, tolerance float64) models.Verdict {
	p, ok := prediction.Value(n)
	if !ok {
		return models.Indeterminate
	}
	g, ok := groundTruth.Value(n)
	if !ok {
		return models.Indeterminate
	}

	// Order the bounds so that p == g matches whatever the signs of g and
	// tolerance.
	a, b := g*(1-tolerance), g*(1+tolerance)
	lo, hi := math.Min(a, b), math.Max(a, b)
	if lo <= p && p <= hi {
		return models.Match
	}
	return models.Mismatch
}
