package orchestration

import (
	"fmt"
	"path/filepath"
)

// FilterCodes returns the codes matching at least one of the given glob
// patterns, in their original order. An empty patterns slice returns all
// codes unchanged.
func FilterCodes(codes []string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return codes, nil
	}

	var matched []string
	for _, code := range codes {
		ok, err := matchesAny(code, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, code)
		}
	}
	return matched, nil
}

// matchesAny reports whether code matches any pattern.
func matchesAny(code string, patterns []string) (bool, error) {
	for _, p := range patterns {
		ok, err := filepath.Match(p, code)
		if err != nil {
			return false, fmt.Errorf("invalid code filter pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
