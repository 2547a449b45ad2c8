package groundtruth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// SaltPerSodium converts a sodium quantity into the equivalent salt quantity.
const SaltPerSodium = 2.5

// fieldSource names the product field holding a nutrient, with optional
// fallbacks converted by factor.
type fieldSource struct {
	field     string
	fallbacks []fallbackField
}

type fallbackField struct {
	field  string
	factor float64
}

var nutrientFields = map[models.Nutrient]fieldSource{
	models.Energy: {field: "energy_100g", fallbacks: []fallbackField{
		{field: "energy-kj_100g", factor: 1},
		{field: "energy-kcal_100g", factor: models.KJPerKcal},
	}},
	models.Protein:      {field: "proteins_100g"},
	models.Carbohydrate: {field: "carbohydrates_100g"},
	models.Sugar:        {field: "sugars_100g"},
	models.Salt: {field: "salt_100g", fallbacks: []fallbackField{
		{field: "sodium_100g", factor: SaltPerSodium},
	}},
	models.Fat:          {field: "fat_100g"},
	models.SaturatedFat: {field: "saturated-fat_100g"},
	models.Fiber:        {field: "fiber_100g"},
}

// FieldFor returns the primary product field of a nutrient.
func FieldFor(n models.Nutrient) string {
	return nutrientFields[n].field
}

// Parse decodes a `<code>.nutriments.json` document. Invalid JSON or a
// document that is not an object fails; a field that is present but not a
// usable number only leaves its nutrient out of the record.
func Parse(data []byte) (models.Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding nutriments: %w", err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("nutriments document is not an object")
	}

	rec := models.Record{}
	for _, n := range models.AllNutrients {
		if v, ok := lookup(doc, nutrientFields[n]); ok {
			rec[n] = v
		}
	}
	return rec, nil
}

func lookup(doc map[string]any, src fieldSource) (float64, bool) {
	if raw, present := doc[src.field]; present {
		if v, ok := models.ParseQuantity(raw); ok {
			return v, true
		}
	}
	for _, fb := range src.fallbacks {
		raw, present := doc[fb.field]
		if !present {
			continue
		}
		if v, ok := models.ParseQuantity(raw); ok {
			return v * fb.factor, true
		}
	}
	return 0, false
}
