package scoring

import (
	"errors"
	"math"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// ErrEmptyInput is returned when a scorer receives a verdict map without any
// key. Compare never produces one, so this always signals a caller bug.
var ErrEmptyInput = errors.New("scoring: empty verdict map")

// Score1 is the conjunctive "no known error" score: 0 if any nutrient is a
// Mismatch, 1 otherwise. Indeterminate nutrients do not count against it.
func Score1(verdicts models.VerdictMap) (float64, error) {
	if len(verdicts) == 0 {
		return 0, ErrEmptyInput
	}
	for _, v := range verdicts {
		if v == models.Mismatch {
			return 0, nil
		}
	}
	return 1, nil
}

// Score2 is the share of determinate nutrients that match, rounded to two
// decimals. It is 0 when no nutrient is determinate.
func Score2(verdicts models.VerdictMap) (float64, error) {
	if len(verdicts) == 0 {
		return 0, ErrEmptyInput
	}
	determinate := verdicts.DeterminateCount()
	if determinate == 0 {
		return 0, nil
	}
	return Round2(float64(verdicts.Count(models.Match)) / float64(determinate)), nil
}

// Round2 rounds x to two decimals, ties to even (0.125 -> 0.12).
func Round2(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}

// ProductScore bundles both scores of one product.
type ProductScore struct {
	DeterminateCount int
	Score1           float64
	Score2           float64
}

// Scorer reduces a verdict map to a ProductScore.
type Scorer interface {
	Score(models.VerdictMap) (ProductScore, error)
}

// VerdictScorer scores with Score1 and Score2.
type VerdictScorer struct{}

// Score implements Scorer with ScoreVerdicts.
func (VerdictScorer) Score(verdicts models.VerdictMap) (ProductScore, error) {
	return ScoreVerdicts(verdicts)
}

// ScoreVerdicts computes Score1, Score2 and the determinate count.
func ScoreVerdicts(verdicts models.VerdictMap) (ProductScore, error) {
	s1, err := Score1(verdicts)
	if err != nil {
		return ProductScore{}, err
	}
	s2, err := Score2(verdicts)
	if err != nil {
		return ProductScore{}, err
	}
	return ProductScore{
		DeterminateCount: verdicts.DeterminateCount(),
		Score1:           s1,
		Score2:           s2,
	}, nil
}
