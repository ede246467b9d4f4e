package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 1, []byte(`{"title":"q"}`)))
	got, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"title":"q"}`, string(got))
	assert.True(t, mr.Exists("leaderboard:1"))

	require.NoError(t, c.Invalidate(ctx, 1))
	_, ok, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 2, []byte("x")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheFlushKeepsOtherKeys(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	for id := uint(1); id <= 5; id++ {
		require.NoError(t, c.Set(ctx, id, []byte("x")))
	}
	require.NoError(t, mr.Set("session:abc", "keep"))

	require.NoError(t, c.Flush(ctx))
	for id := uint(1); id <= 5; id++ {
		assert.False(t, mr.Exists(key(id)))
	}
	assert.True(t, mr.Exists("session:abc"))
}

func TestNop(t *testing.T) {
	var c LeaderboardCache = Nop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, 1, []byte("x")))
	_, ok, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
