// Package groundtruth loads user-submitted nutrient values from disk.
package groundtruth

import (
	"context"
	"os"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// Source loads the ground truth of a product.
type Source interface {
	Load(ctx context.Context, code string) (models.Record, error)
}

// Store serves ground-truth records from discovered files.
type Store struct {
	paths map[string]string
}

// NewStore indexes entries by product code.
func NewStore(entries []Entry) *Store {
	paths := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := paths[e.Code]; !ok {
			paths[e.Code] = e.Path
		}
	}
	return &Store{paths: paths}
}

// Has reports whether the store has a file for code.
func (s *Store) Has(code string) bool {
	_, ok := s.paths[code]
	return ok
}

// Load reads and parses the record of code. Every failure is a *ParseError.
func (s *Store) Load(ctx context.Context, code string) (models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := s.paths[code]
	if !ok {
		return nil, &ParseError{Code: code, Err: os.ErrNotExist}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Code: code, Path: path, Err: err}
	}

	rec, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Code: code, Path: path, Err: err}
	}
	return rec, nil
}
