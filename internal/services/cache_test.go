package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	t.Run("miss returns empty without error", func(t *testing.T) {
		v, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("expired entries read as misses", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ttl", "v", 10*time.Second))
		c.now = func() time.Time { return time.Now().Add(time.Minute) }
		v, err := c.Get(ctx, "ttl")
		require.NoError(t, err)
		assert.Empty(t, v)
		c.now = time.Now
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "gone", "v", time.Minute))
		require.NoError(t, c.Del(ctx, "gone"))
		v, err := c.Get(ctx, "gone")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), testLogger())
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("failed to close redis cache: %v", err)
		}
	}()
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.WaitForConnection(ctx), "a live server satisfies the startup wait immediately")

	t.Run("miss returns empty without error", func(t *testing.T) {
		v, err := c.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("set get del", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "analysis:abc", "cached", 5*time.Minute))
		v, err := c.Get(ctx, "analysis:abc")
		require.NoError(t, err)
		assert.Equal(t, "cached", v)

		require.NoError(t, c.Del(ctx, "analysis:abc"))
		v, err = c.Get(ctx, "analysis:abc")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ttl", "v", time.Minute))
		mr.FastForward(2 * time.Minute)
		v, err := c.Get(ctx, "ttl")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}
