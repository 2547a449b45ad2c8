package models

import (
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// ParseQuantity converts a decoded JSON value into a nutrient quantity.
// Numbers and numeric strings are accepted, including a comma decimal
// separator. Empty, negative, non-finite and non-numeric values report
// ok=false.
func ParseQuantity(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false
		}
	}

	var out float64
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncKind(normalizeDecimal),
		Result:           &out,
	})
	if err != nil {
		return 0, false
	}
	if err := dec.Decode(raw); err != nil {
		return 0, false
	}
	if math.IsNaN(out) || math.IsInf(out, 0) || out < 0 {
		return 0, false
	}
	return out, true
}

func normalizeDecimal(from reflect.Kind, _ reflect.Kind, data any) (any, error) {
	if from != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return s, nil
}
