package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/test/helpers"
)

func newTestCache(t *testing.T) (ports.CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return redis_a.NewCache(client, 5*time.Minute, helpers.TestLogger()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	type medicineSummary struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Stock int    `json:"stock"`
	}

	err := cache.Set(ctx, "med:1", medicineSummary{ID: 1, Name: "Paracetamol 500mg", Stock: 100})
	require.NoError(t, err)

	var got medicineSummary
	err = cache.Get(ctx, "med:1", &got)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Paracetamol 500mg", got.Name)
	assert.Equal(t, 100, got.Stock)
}

func TestCache_GetMiss(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	var result string
	err := cache.Get(ctx, "missing:key", &result)
	assert.Equal(t, redis_a.ErrCacheMiss, err)
}

func TestCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	err := cache.SetWithTTL(ctx, "ttl:test", "value", 100*time.Millisecond)
	require.NoError(t, err)

	var result string
	err = cache.Get(ctx, "ttl:test", &result)
	require.NoError(t, err)
	assert.Equal(t, "value", result)

	mr.FastForward(200 * time.Millisecond)

	err = cache.Get(ctx, "ttl:test", &result)
	assert.Equal(t, redis_a.ErrCacheMiss, err)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	keys := []string{"del:1", "del:2", "del:3"}
	for _, key := range keys {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.Delete(ctx, keys...))

	for _, key := range keys {
		var result string
		err := cache.Get(ctx, key, &result)
		assert.Equal(t, redis_a.ErrCacheMiss, err)
	}
}

func TestCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	keysToDelete := []string{"med:list:page1", "med:list:page2", "med:42"}
	keysToKeep := []string{"sale:list:page1", "job:abc"}

	for _, key := range append(keysToDelete, keysToKeep...) {
		require.NoError(t, cache.Set(ctx, key, "value"))
	}

	require.NoError(t, cache.DeletePattern(ctx, "med:*"))

	for _, key := range keysToDelete {
		var result string
		err := cache.Get(ctx, key, &result)
		assert.Equal(t, redis_a.ErrCacheMiss, err, "key should be invalidated: %s", key)
	}

	for _, key := range keysToKeep {
		var result string
		require.NoError(t, cache.Get(ctx, key, &result))
		assert.Equal(t, "value", result)
	}
}

func TestCache_GetOrSet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	fetchCount := 0
	fetchFunc := func() (interface{}, error) {
		fetchCount++
		return "fetched value", nil
	}

	var result1 string
	err := cache.GetOrSet(ctx, "getorset:test", &result1, fetchFunc, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched value", result1)
	assert.Equal(t, 1, fetchCount)

	var result2 string
	err = cache.GetOrSet(ctx, "getorset:test", &result2, fetchFunc, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "fetched value", result2)
	assert.Equal(t, 1, fetchCount)
}

func TestCache_SetNX(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	ok, err := cache.SetNX(ctx, "setnx:test", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, "setnx:test", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	var result string
	require.NoError(t, cache.Get(ctx, "setnx:test", &result))
	assert.Equal(t, "first", result)
}

func TestInvalidateSaleCaches(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	keys := map[string]string{
		"sale:list:page1": "sales list",
		"med:list:page1":  "medicine list",
		"dash:summary":    "dashboard data",
		"export:excel":    "export payload",
		"job:abc":         "should not be deleted",
	}

	for key, value := range keys {
		require.NoError(t, cache.Set(ctx, key, value))
	}

	redis_a.InvalidateSaleCaches(ctx, cache, helpers.TestLogger())

	for _, key := range []string{"sale:list:page1", "med:list:page1", "dash:summary", "export:excel"} {
		var result string
		err := cache.Get(ctx, key, &result)
		assert.Equal(t, redis_a.ErrCacheMiss, err, "key should be invalidated: %s", key)
	}

	var jobResult string
	require.NoError(t, cache.Get(ctx, "job:abc", &jobResult))
	assert.Equal(t, "should not be deleted", jobResult)
}

func TestCache_BuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{
			name:     "medicine_key",
			prefix:   redis_a.PrefixMedicine,
			parts:    []string{"123", "details"},
			expected: "med:123:details",
		},
		{
			name:     "dashboard_key",
			prefix:   redis_a.PrefixDashboard,
			parts:    []string{"summary", "2026"},
			expected: "dash:summary:2026",
		},
		{
			name:     "single_part",
			prefix:   redis_a.PrefixSale,
			parts:    []string{"list"},
			expected: "sale:list",
		},
		{
			name:     "no_parts",
			prefix:   redis_a.PrefixExport,
			parts:    []string{},
			expected: "export",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := redis_a.BuildKey(tt.prefix, tt.parts...)
			assert.Equal(t, tt.expected, result)
		})
	}
}
