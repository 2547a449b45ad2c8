package prediction

import (
	"context"
	"log/slog"
	"time"

	"github.com/openfoodfacts/nutrieval/internal/cache"
	"github.com/openfoodfacts/nutrieval/internal/models"
)

// CachedSource serves predictions from an on-disk cache and fills it from an
// inner Source. Failed fetches are never stored.
type CachedSource struct {
	inner     Source
	cache     *cache.Cache
	namespace string
}

// NewCachedSource wraps inner. namespace separates entries fetched from
// different services or settings.
func NewCachedSource(inner Source, c *cache.Cache, namespace string) *CachedSource {
	return &CachedSource{inner: inner, cache: c, namespace: namespace}
}

func (s *CachedSource) Fetch(ctx context.Context, code string) (models.Record, error) {
	key := cache.Key(s.namespace, code)
	if entry, ok := s.cache.Get(key); ok {
		slog.Debug("prediction cache hit", "code", code)
		return entry.Prediction.Clone(), nil
	}

	rec, err := s.inner.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}

	entry := &cache.Entry{Code: code, Prediction: rec.Clone(), FetchedAt: time.Now().UTC()}
	if err := s.cache.Put(key, entry); err != nil {
		slog.Warn("failed to cache prediction", "code", code, "error", err)
	}
	return rec, nil
}
