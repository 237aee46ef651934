package cache

import (
	"context"
	"time"

	"grosirpos/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context, key string) (*domain.CatalogPage, bool, error)
	Set(ctx context.Context, key string, value *domain.CatalogPage, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) (*domain.CatalogPage, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ *domain.CatalogPage, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}
