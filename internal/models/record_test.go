package models

import (
	"math"
	"testing"
)

func TestRecordValue(t *testing.T) {
	r := Record{
		Energy:  100,
		Protein: math.NaN(),
		Fat:     math.Inf(1),
		Sugar:   0,
	}

	tests := []struct {
		name   string
		key    Nutrient
		want   float64
		wantOK bool
	}{
		{name: "present", key: Energy, want: 100, wantOK: true},
		{name: "zero is a value", key: Sugar, want: 0, wantOK: true},
		{name: "missing", key: Fiber, wantOK: false},
		{name: "NaN", key: Protein, wantOK: false},
		{name: "infinity", key: Fat, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Value(tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Value(%s) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRecordValue_NilRecord(t *testing.T) {
	var r Record
	if _, ok := r.Value(Energy); ok {
		t.Error("nil record should have no values")
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{Energy: 1}
	c := r.Clone()
	c[Energy] = 2
	if r[Energy] != 1 {
		t.Errorf("Clone shares storage with original")
	}
	if Record(nil).Clone() != nil {
		t.Errorf("Clone of nil should be nil")
	}
}
