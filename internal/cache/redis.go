// Package cache is a small Redis read-through cache for the flat
// listings the tree builder consumes. The navigation tree itself is
// never cached, it is rebuilt on every request, but the category and
// option listings behind it change rarely and are fetched on every tree
// build, so short-TTL caching keeps the hot path off Postgres.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"privacyreg/api/internal/store"
)

const (
	keyCategories     = "registry:cache:categories"
	keyPurposes       = "registry:cache:purposes"
	keyDataCategories = "registry:cache:datacategories"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// Categories returns the cached category listing, with ok=false on a
// miss or any redis error (the caller falls through to Postgres).
func (c *Cache) Categories(ctx context.Context) ([]store.Category, bool) {
	var items []store.Category
	return items, c.get(ctx, keyCategories, &items)
}

func (c *Cache) SetCategories(ctx context.Context, items []store.Category) {
	c.set(ctx, keyCategories, items)
}

func (c *Cache) Purposes(ctx context.Context) ([]store.Purpose, bool) {
	var items []store.Purpose
	return items, c.get(ctx, keyPurposes, &items)
}

func (c *Cache) SetPurposes(ctx context.Context, items []store.Purpose) {
	c.set(ctx, keyPurposes, items)
}

func (c *Cache) DataCategories(ctx context.Context) ([]store.DataCategory, bool) {
	var items []store.DataCategory
	return items, c.get(ctx, keyDataCategories, &items)
}

func (c *Cache) SetDataCategories(ctx context.Context, items []store.DataCategory) {
	c.set(ctx, keyDataCategories, items)
}

// InvalidateOptions drops the purpose and data-category entries after a
// registry edit so the selectors refresh immediately.
func (c *Cache) InvalidateOptions(ctx context.Context) {
	_ = c.client.Del(ctx, keyPurposes, keyDataCategories).Err()
}

func (c *Cache) get(ctx context.Context, key string, target any) bool {
	payload, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(payload), target) == nil
}

func (c *Cache) set(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
