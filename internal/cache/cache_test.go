package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"refurb-store-api/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires Redis on REDIS_ADDR (default localhost:6379), skipped otherwise
func setupRedisCache(t *testing.T) *RedisCache {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	c := NewRedisCache(client, "refurb-test:", time.Minute)
	t.Cleanup(func() {
		_ = c.DeletePattern(ctx, "*")
		client.Close()
	})
	return c
}

type payload struct {
	Label   string `json:"label"`
	Revenue int64  `json:"revenue"`
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()

	var got payload
	found, err := c.Get(ctx, "report:7d:2026-03-10:false", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "report:7d:2026-03-10:false", payload{Label: "today", Revenue: 2360}))

	found, err = c.Get(ctx, "report:7d:2026-03-10:false", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Label: "today", Revenue: 2360}, got)
}

func TestRedisCacheDeletePattern(t *testing.T) {
	c := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "report:7d:a", payload{}))
	require.NoError(t, c.Set(ctx, "report:6mo:b", payload{}))
	require.NoError(t, c.Set(ctx, "other:c", payload{}))

	require.NoError(t, c.DeletePattern(ctx, "report:*"))

	var p payload
	found, _ := c.Get(ctx, "report:7d:a", &p)
	assert.False(t, found)
	found, _ = c.Get(ctx, "report:6mo:b", &p)
	assert.False(t, found)
	found, _ = c.Get(ctx, "other:c", &p)
	assert.True(t, found)
}

func TestConnectDisabledReturnsNop(t *testing.T) {
	c, closeFn, err := Connect(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, c)
	assert.NoError(t, closeFn())

	found, err := c.Get(context.Background(), "k", &payload{})
	assert.NoError(t, err)
	assert.False(t, found)
}
