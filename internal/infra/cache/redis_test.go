package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "qotw:"), srv
}

func TestRedisOnceRunsOnlyOnce(t *testing.T) {
	c, srv := newTestRedis(t)
	ctx := context.Background()
	calls := 0
	fn := func() error { calls++; return nil }

	ran, err := c.Once(ctx, "accept:1", time.Hour, fn)
	require.NoError(t, err)
	require.True(t, ran)

	ran, err = c.Once(ctx, "accept:1", time.Hour, fn)
	require.NoError(t, err)
	require.False(t, ran)
	require.Equal(t, 1, calls)
	require.True(t, srv.Exists("qotw:accept:1"))
}

func TestRedisOnceReleasesKeyOnError(t *testing.T) {
	c, srv := newTestRedis(t)
	ctx := context.Background()

	ran, err := c.Once(ctx, "accept:2", time.Hour, func() error { return errors.New("rename failed") })
	require.Error(t, err)
	require.True(t, ran)
	require.False(t, srv.Exists("qotw:accept:2"))

	ran, err = c.Once(ctx, "accept:2", time.Hour, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ran)
}

func TestRedisOnceKeyExpires(t *testing.T) {
	c, srv := newTestRedis(t)
	ctx := context.Background()

	_, err := c.Once(ctx, "reminder:g1", time.Minute, func() error { return nil })
	require.NoError(t, err)
	srv.FastForward(2 * time.Minute)

	ran, err := c.Once(ctx, "reminder:g1", time.Minute, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ran)
}

func TestMemoryOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	ran, err := m.Once(ctx, "k", 0, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ran)
	ran, err = m.Once(ctx, "k", 0, func() error { return nil })
	require.NoError(t, err)
	require.False(t, ran)

	ran, err = m.Once(ctx, "fail", 0, func() error { return errors.New("boom") })
	require.Error(t, err)
	require.True(t, ran)
	ran, err = m.Once(ctx, "fail", 0, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ran)
}
