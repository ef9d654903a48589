package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Listing keys embed a generation counter. Writers bump it, so a listing read
// from the database before a write can only land under a retired key.
const cacheKeyGeneration = "catalog:products:gen"

// Cache wraps Redis helpers for JSON payloads. A nil client disables it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Generation returns the current listing generation. A disabled cache reports 0.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, cacheKeyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// InvalidateListings retires every cached product listing by bumping the
// generation, then drops the previous generation's keys.
func (c *Cache) InvalidateListings(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	gen, err := c.client.Incr(ctx, cacheKeyGeneration).Result()
	if err != nil {
		return err
	}
	prev := gen - 1
	return c.client.Del(ctx,
		listingKey(prev, ""),
		listingKey(prev, LanguageEnglish),
		listingKey(prev, LanguageHebrew),
	).Err()
}

func listingKey(gen int64, language string) string {
	if language == "" {
		return fmt.Sprintf("catalog:products:g%d:all", gen)
	}
	return fmt.Sprintf("catalog:products:g%d:lang:%s", gen, language)
}
