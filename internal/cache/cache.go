// Package cache provides a read-through cache in front of TheMealDB.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealbrowser/internal/meal"
	"mealbrowser/internal/metrics"
)

// ErrMiss is returned by a Backend when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Backend stores meal lists by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]meal.Meal, error)
	Set(ctx context.Context, key string, meals []meal.Meal, ttl time.Duration) error
}

// Fetcher decorates a meal.Fetcher with a cache. Backend failures are
// logged and the request falls through to the wrapped fetcher.
type Fetcher struct {
	next    meal.Fetcher
	backend Backend
	ttl     time.Duration
	logger  *zap.Logger
}

// NewFetcher creates a new caching Fetcher.
func NewFetcher(next meal.Fetcher, backend Backend, ttl time.Duration, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{next: next, backend: backend, ttl: ttl, logger: logger}
}

// FilterByArea implements meal.Fetcher.
func (f *Fetcher) FilterByArea(ctx context.Context, area meal.Area) ([]meal.Meal, error) {
	return f.fetch(ctx, "filter:"+strings.ToLower(area.String()), func() ([]meal.Meal, error) {
		return f.next.FilterByArea(ctx, area)
	})
}

// SearchByName implements meal.Fetcher.
func (f *Fetcher) SearchByName(ctx context.Context, query string) ([]meal.Meal, error) {
	return f.fetch(ctx, "search:"+strings.ToLower(strings.TrimSpace(query)), func() ([]meal.Meal, error) {
		return f.next.SearchByName(ctx, query)
	})
}

func (f *Fetcher) fetch(ctx context.Context, key string, load func() ([]meal.Meal, error)) ([]meal.Meal, error) {
	meals, err := f.backend.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheHit()
		return meals, nil
	case errors.Is(err, ErrMiss):
		metrics.CacheMiss()
	default:
		metrics.CacheError()
		f.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	meals, err = load()
	if err != nil {
		return nil, err
	}
	if err := f.backend.Set(ctx, key, meals, f.ttl); err != nil {
		f.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return meals, nil
}

func encodeKey(key string) string {
	return fmt.Sprintf("mealbrowser:meals:%s", key)
}
