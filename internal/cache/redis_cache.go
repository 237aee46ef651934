package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"grosirpos/internal/domain"
)

const catalogKeyPrefix = "catalog:"

type RedisCatalogCache struct {
	client *redis.Client
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string) (*domain.CatalogPage, bool, error) {
	val, err := c.client.Get(ctx, catalogKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var page domain.CatalogPage
	if err := json.Unmarshal([]byte(val), &page); err != nil {
		return nil, false, err
	}
	return &page, true, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, value *domain.CatalogPage, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKeyPrefix+key, payload, ttl).Err()
}

// Invalidate drops every cached catalog page. Called after any write that
// changes prices or stock, so terminals never page through stale rows for
// more than one fetch.
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, catalogKeyPrefix+"*", 100).Iterator()
	keys := make([]string, 0, 32)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
