package metrics

import (
	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/openfoodfacts/nutrieval/internal/statistics"
)

// Digest aggregates product outcomes: counts per status, mean scores with
// bootstrap intervals over scored products, and the per-nutrient breakdown.
// Duration is left to the caller.
func Digest(products []models.ProductOutcome, opts ...statistics.Option) models.OutcomeDigest {
	digest := models.OutcomeDigest{TotalProducts: len(products)}

	var score1s, score2s []float64
	for _, p := range products {
		switch p.Status {
		case models.StatusScored:
			digest.Scored++
			score1s = append(score1s, p.Score1)
			score2s = append(score2s, p.Score2)
		case models.StatusNoPrediction:
			digest.NoPrediction++
		case models.StatusFetchFailed:
			digest.FetchFailed++
		case models.StatusInvalidGroundTruth:
			digest.InvalidGroundTruth++
		}
	}

	if len(score1s) > 0 {
		digest.MeanScore1 = statistics.Mean(score1s)
		digest.MeanScore2 = statistics.Mean(score2s)
		ci1 := statistics.MeanCI(score1s, statistics.DefaultConfidenceLevel, opts...)
		ci2 := statistics.MeanCI(score2s, statistics.DefaultConfidenceLevel, opts...)
		digest.Score1CI = &ci1
		digest.Score2CI = &ci2
	}
	// Reports read back without detail columns carry no verdicts.
	if verdicts := OutcomeVerdicts(products); len(verdicts) > 0 {
		digest.Nutrients = Breakdown(verdicts)
	}

	return digest
}
