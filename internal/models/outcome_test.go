package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Scored(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusScored, true},
		{StatusNoPrediction, false},
		{StatusFetchFailed, false},
		{StatusInvalidGroundTruth, false},
		{Status(""), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Scored())
		})
	}
}

func TestNewPlaceholder(t *testing.T) {
	p := NewPlaceholder("3017620422003", StatusNoPrediction, "no nutrition image")

	assert.Equal(t, "3017620422003", p.Code)
	assert.Equal(t, StatusNoPrediction, p.Status)
	assert.Equal(t, "no nutrition image", p.Reason)
	assert.Zero(t, p.DeterminateCount)
	assert.Zero(t, p.Score1)
	assert.Zero(t, p.Score2)
	assert.Nil(t, p.Verdicts)
}

func TestEvaluationOutcome_ScoredOutcomes(t *testing.T) {
	outcome := &EvaluationOutcome{Products: []ProductOutcome{
		{Code: "1", Status: StatusScored, Score1: 1},
		NewPlaceholder("2", StatusFetchFailed, "timeout"),
		{Code: "3", Status: StatusScored, Score2: 0.5},
		NewPlaceholder("4", StatusInvalidGroundTruth, "bad json"),
	}}

	got := outcome.ScoredOutcomes()
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Code)
	assert.Equal(t, "3", got[1].Code)

	assert.Empty(t, (&EvaluationOutcome{}).ScoredOutcomes())
}

func TestProductOutcome_JSONFields(t *testing.T) {
	data, err := json.Marshal(NewPlaceholder("2", StatusNoPrediction, ""))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "no_prediction", fields["status"])
	assert.NotContains(t, fields, "reason")
	assert.NotContains(t, fields, "verdicts")
}
