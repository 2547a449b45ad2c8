// Package prediction retrieves nutrient predictions for products from
// Robotoff.
package prediction

//go:generate go tool mockgen -source=source.go -destination=mock_source.go -package=prediction

import (
	"context"

	"github.com/openfoodfacts/nutrieval/internal/models"
)

// Source fetches the predicted nutrients of a product. A *RetrievalError
// means the service had nothing to predict from; any other error is a
// transport failure.
type Source interface {
	Fetch(ctx context.Context, code string) (models.Record, error)
}
