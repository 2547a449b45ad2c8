package models

import "fmt"

// Verdict is the result of comparing one nutrient of a prediction against
// the ground truth.
type Verdict int

const (
	// Indeterminate means one side had no usable value.
	Indeterminate Verdict = iota
	// Match means the prediction fell inside the tolerance band.
	Match
	// Mismatch means the prediction fell outside the tolerance band.
	Mismatch
)

func (v Verdict) String() string {
	switch v {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "indeterminate"
	}
}

// Determinate reports whether both sides supplied a value.
func (v Verdict) Determinate() bool {
	return v == Match || v == Mismatch
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVerdict is the inverse of Verdict.String.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "match":
		return Match, nil
	case "mismatch":
		return Mismatch, nil
	case "indeterminate":
		return Indeterminate, nil
	default:
		return Indeterminate, fmt.Errorf("invalid verdict %q", s)
	}
}

// VerdictMap holds one verdict per nutrient.
type VerdictMap map[Nutrient]Verdict

// DeterminateCount returns the number of Match and Mismatch verdicts.
func (m VerdictMap) DeterminateCount() int {
	n := 0
	for _, v := range m {
		if v.Determinate() {
			n++
		}
	}
	return n
}

// Count returns how many entries equal want.
func (m VerdictMap) Count(want Verdict) int {
	n := 0
	for _, v := range m {
		if v == want {
			n++
		}
	}
	return n
}
