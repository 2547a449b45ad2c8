package models

import "math"

// Record holds per-100g nutrient quantities for one product. A nutrient that
// is missing from the map has no value.
type Record map[Nutrient]float64

// Value returns the quantity recorded for n. Missing and non-finite values
// report ok=false.
func (r Record) Value(n Nutrient) (float64, bool) {
	v, ok := r[n]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Clone returns a copy of r that shares no storage with it.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
