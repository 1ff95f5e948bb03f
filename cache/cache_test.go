package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCache connects to the instance at REDIS_ADDR, e.g. "127.0.0.1:6379".
func testCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}
	c, err := New("", addr, os.Getenv("REDIS_PASSWORD"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	key := "cache_test_roundtrip"
	t.Cleanup(func() { c.Delete(ctx, key) })

	require.NoError(t, c.Set(ctx, key, payload{Name: "diamonds", Count: 86}, time.Minute))

	var got payload
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "diamonds", Count: 86}, got)
}

func TestCacheMiss(t *testing.T) {
	c := testCache(t)

	var got string
	ok, err := c.Get(context.Background(), "cache_test_missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheClearPattern(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cache_test_clear_a", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "cache_test_clear_b", "b", time.Minute))
	require.NoError(t, c.ClearPattern(ctx, "cache_test_clear_*"))

	var got string
	ok, err := c.Get(ctx, "cache_test_clear_a", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}
