package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllNutrients_FixedSet(t *testing.T) {
	require.Len(t, AllNutrients, 8)

	seen := map[Nutrient]bool{}
	for _, n := range AllNutrients {
		assert.False(t, seen[n], "duplicate nutrient %s", n)
		seen[n] = true
		assert.True(t, n.Valid())
	}
}

func TestParseNutrient(t *testing.T) {
	tests := []struct {
		input   string
		want    Nutrient
		wantErr bool
	}{
		{"energy", Energy, false},
		{"saturated_fat", SaturatedFat, false},
		{" Fiber ", Fiber, false},
		{"SALT", Salt, false},
		{"trans_fat", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNutrient(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
