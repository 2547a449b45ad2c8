package models

import (
	"time"

	"github.com/openfoodfacts/nutrieval/internal/statistics"
)

// Status describes how far a product got through the evaluation pipeline.
type Status string

const (
	StatusScored Status = "scored"
	// StatusNoPrediction is used when the prediction service had nothing to
	// predict from (no nutrition image, OCR download error).
	StatusNoPrediction Status = "no_prediction"
	// StatusFetchFailed is used when the single request to the prediction
	// service failed in transport.
	StatusFetchFailed Status = "fetch_failed"
	// StatusInvalidGroundTruth is used when the on-disk record is missing or
	// unparseable.
	StatusInvalidGroundTruth Status = "invalid_ground_truth"
)

// Scored reports whether the outcome carries meaningful scores.
func (s Status) Scored() bool {
	return s == StatusScored
}

// ProductOutcome is the result of evaluating one product.
type ProductOutcome struct {
	Code             string     `json:"code"`
	Status           Status     `json:"status"`
	Reason           string     `json:"reason,omitempty"`
	DeterminateCount int        `json:"determinate_count"`
	Score1           float64    `json:"score1"`
	Score2           float64    `json:"score2"`
	Verdicts         VerdictMap `json:"verdicts,omitempty"`
	Prediction       Record     `json:"prediction,omitempty"`
	GroundTruth      Record     `json:"ground_truth,omitempty"`
	DurationMs       int64      `json:"duration_ms"`
}

// NewPlaceholder returns the outcome of a product that could not be scored.
func NewPlaceholder(code string, status Status, reason string) ProductOutcome {
	return ProductOutcome{
		Code:   code,
		Status: status,
		Reason: reason,
	}
}

// EvaluationOutcome is the complete result of a batch run.
type EvaluationOutcome struct {
	RunID     string           `json:"run_id"`
	Timestamp time.Time        `json:"timestamp"`
	Setup     OutcomeSetup     `json:"config"`
	Digest    OutcomeDigest    `json:"summary"`
	Products  []ProductOutcome `json:"products"`
}

type OutcomeSetup struct {
	Tolerance float64 `json:"tolerance"`
	Workers   int     `json:"workers"`
}

type OutcomeDigest struct {
	TotalProducts      int     `json:"total_products"`
	Scored             int     `json:"scored"`
	NoPrediction       int     `json:"no_prediction"`
	FetchFailed        int     `json:"fetch_failed"`
	InvalidGroundTruth int     `json:"invalid_ground_truth"`
	MeanScore1         float64 `json:"mean_score1"`
	MeanScore2         float64 `json:"mean_score2"`
	DurationMs         int64   `json:"duration_ms"`

	Score1CI  *statistics.ConfidenceInterval `json:"score1_ci,omitempty"`
	Score2CI  *statistics.ConfidenceInterval `json:"score2_ci,omitempty"`
	Nutrients []NutrientBreakdown            `json:"nutrients,omitempty"`
}

// NutrientBreakdown aggregates the verdicts of one nutrient across products.
type NutrientBreakdown struct {
	Nutrient      Nutrient `json:"nutrient"`
	Match         int      `json:"match"`
	Mismatch      int      `json:"mismatch"`
	Indeterminate int      `json:"indeterminate"`
	// Accuracy is Match / (Match + Mismatch), 0 when nothing was determinate.
	Accuracy float64 `json:"accuracy"`
	// Coverage is the share of products with a determinate verdict.
	Coverage float64 `json:"coverage"`
}

// ScoredOutcomes returns the outcomes whose status is StatusScored.
func (o *EvaluationOutcome) ScoredOutcomes() []ProductOutcome {
	var out []ProductOutcome
	for _, p := range o.Products {
		if p.Status.Scored() {
			out = append(out, p)
		}
	}
	return out
}
