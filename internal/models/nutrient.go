package models

import (
	"fmt"
	"strings"
)

// Nutrient identifies one of the nutrients compared per 100g of product.
type Nutrient string

const (
	Energy       Nutrient = "energy"
	Protein      Nutrient = "protein"
	Carbohydrate Nutrient = "carbohydrate"
	Sugar        Nutrient = "sugar"
	Salt         Nutrient = "salt"
	Fat          Nutrient = "fat"
	SaturatedFat Nutrient = "saturated_fat"
	Fiber        Nutrient = "fiber"
)

// AllNutrients is the closed set of nutrients every record and verdict map is
// keyed by. Its order is the column order of detailed reports.
var AllNutrients = [...]Nutrient{
	Energy,
	Protein,
	Carbohydrate,
	Sugar,
	Salt,
	Fat,
	SaturatedFat,
	Fiber,
}

func (n Nutrient) String() string {
	return string(n)
}

// Valid reports whether n belongs to AllNutrients.
func (n Nutrient) Valid() bool {
	for _, k := range AllNutrients {
		if k == n {
			return true
		}
	}
	return false
}

// ParseNutrient converts a nutrient name to a Nutrient.
func ParseNutrient(s string) (Nutrient, error) {
	n := Nutrient(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", fmt.Errorf("unknown nutrient %q", s)
	}
	return n, nil
}
