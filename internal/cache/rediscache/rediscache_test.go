package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()

	_, ok, err := c.Get(ctx, "analytics:absent")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "analytics:abc", []byte(`{"totalScans":3}`), time.Minute))

	b, ok, err := c.Get(ctx, "analytics:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte(`{"totalScans":3}`), b)
}

func TestRedisCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))

	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "rl:scan:1.1.1.1", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "rl:scan:1.1.1.1", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "rl:scan:1.1.1.1", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	// другой источник — отдельное окно
	ok, _, _ = rl.Allow(ctx, "rl:scan:2.2.2.2", 2, time.Minute)
	require.True(t, ok)
}
