// internal/adapters/redis_adapter/cache.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// CacheKeyPrefix defines prefixes for different cache types
type CacheKeyPrefix string

const (
	PrefixMedicine  CacheKeyPrefix = "med"
	PrefixSale      CacheKeyPrefix = "sale"
	PrefixDashboard CacheKeyPrefix = "dash"
	PrefixExport    CacheKeyPrefix = "export"
	PrefixImportJob CacheKeyPrefix = "job"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache is the Redis-backed implementation of ports.CacheRepository.
// Values are stored as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.CacheRepository = (*Cache)(nil)

// NewCache creates a cache with the given default TTL.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) ports.CacheRepository {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cache")),
	}
}

// Set stores a value under the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value under an explicit TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}

	c.logger.DebugContext(ctx, "cache set",
		slog.String("key", key),
		slog.Duration("ttl", ttl))
	return nil
}

// Get unmarshals the cached value for key into dest, or returns
// ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return fmt.Errorf("get %q: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %q: %w", key, err)
	}
	return nil
}

// Delete removes keys from cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete %d keys: %w", len(keys), err)
	}
	return nil
}

// DeletePattern removes every key matching pattern, scanning instead of
// KEYS so a big keyspace does not stall Redis.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %q: %w", pattern, err)
	}

	return c.Delete(ctx, keys...)
}

// Exists reports whether all of the given keys are present.
func (c *Cache) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := c.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return n == int64(len(keys)), nil
}

// GetOrSet retrieves from cache or fetches and stores on a miss
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{},
	fetch func() (interface{}, error), ttl time.Duration) error {

	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	if err := c.SetWithTTL(ctx, key, value, ttl); err != nil {
		// A cache write failure never fails the request
		c.logger.WarnContext(ctx, "failed to cache fetched value",
			slog.String("key", key),
			slog.Any("error", err))
	}

	// Round-trip through JSON so dest sees the same shape a later cache
	// hit would produce.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return json.Unmarshal(data, dest)
}

// Increment increments a counter
func (c *Cache) Increment(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %q: %w", key, err)
	}
	return val, nil
}

// SetNX sets a key only if it doesn't exist (useful for locks)
func (c *Cache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal %q: %w", key, err)
	}

	ok, err := c.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %q: %w", key, err)
	}
	return ok, nil
}

// TTL returns the time to live for a key
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %q: %w", key, err)
	}
	return ttl, nil
}

// Flush removes all keys from the current database
func (c *Cache) Flush(ctx context.Context) error {
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("flushdb: %w", err)
	}

	c.logger.WarnContext(ctx, "cache flushed")
	return nil
}

// Ping checks if Redis is accessible
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// BuildKey creates a cache key with prefix
func BuildKey(prefix CacheKeyPrefix, parts ...string) string {
	key := string(prefix)
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

func dropPrefixes(ctx context.Context, cache ports.CacheRepository, logger *slog.Logger, prefixes ...CacheKeyPrefix) {
	for _, prefix := range prefixes {
		pattern := string(prefix) + ":*"
		if err := cache.DeletePattern(ctx, pattern); err != nil {
			logger.WarnContext(ctx, "failed to invalidate cache pattern",
				slog.String("pattern", pattern),
				slog.Any("error", err))
		}
	}
}

// InvalidateMedicineCaches drops everything derived from the medicine
// catalog: listings, dashboard aggregates, and cached exports.
func InvalidateMedicineCaches(ctx context.Context, cache ports.CacheRepository, logger *slog.Logger) {
	dropPrefixes(ctx, cache, logger, PrefixMedicine, PrefixDashboard, PrefixExport)
}

// InvalidateSaleCaches drops ledger listings plus the aggregates a sale
// feeds, including medicine listings whose stock just changed.
func InvalidateSaleCaches(ctx context.Context, cache ports.CacheRepository, logger *slog.Logger) {
	dropPrefixes(ctx, cache, logger, PrefixSale, PrefixMedicine, PrefixDashboard, PrefixExport)
}
