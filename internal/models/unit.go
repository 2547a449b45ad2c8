package models

import "strings"

// KJPerKcal converts kilocalories into kilojoules.
const KJPerKcal = 4.184

// CanonicalUnit is the unit records are expressed in: kJ for energy, grams
// otherwise.
func (n Nutrient) CanonicalUnit() string {
	if n == Energy {
		return "kj"
	}
	return "g"
}

var unitFactors = map[string]float64{
	"kj":   1,
	"kcal": KJPerKcal,
	"g":    1,
	"mg":   1e-3,
	"µg":   1e-6,
	"mcg":  1e-6,
}

// ToCanonical converts v, expressed in unit, into the canonical unit of n.
// An empty unit is taken as canonical. Unknown units, or an energy unit on a
// mass nutrient (and the reverse), report ok=false.
func ToCanonical(n Nutrient, v float64, unit string) (float64, bool) {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" || unit == n.CanonicalUnit() {
		return v, true
	}
	factor, ok := unitFactors[unit]
	if !ok {
		return 0, false
	}
	isEnergyUnit := unit == "kj" || unit == "kcal"
	if isEnergyUnit != (n == Energy) {
		return 0, false
	}
	return v * factor, true
}
