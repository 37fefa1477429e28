package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client), mr
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		backend, mr := newRedisBackend(t)

		require.NoError(t, backend.Put(ctx, "abc", []byte(`{"id":"abc"}`), time.Hour))

		value, err := backend.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"id":"abc"}`), value)

		assert.True(t, mr.Exists(RedisKeyPrefix+"abc"))
		assert.Equal(t, time.Hour, mr.TTL(RedisKeyPrefix+"abc"))
	})

	t.Run("Missing", func(t *testing.T) {
		backend, _ := newRedisBackend(t)

		_, err := backend.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		backend, mr := newRedisBackend(t)

		require.NoError(t, backend.Put(ctx, "abc", []byte("x"), time.Hour))
		mr.FastForward(time.Hour + time.Second)

		_, err := backend.Get(ctx, "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ServerDown", func(t *testing.T) {
		backend, mr := newRedisBackend(t)
		mr.Close()

		err := backend.Put(ctx, "abc", []byte("x"), time.Hour)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)

		_, err = backend.Get(ctx, "abc")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestFallbackStoreWithRedis(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	s := NewFallbackStore(zaptest.NewLogger(t), backend, NewMemoryBackend(), time.Hour)

	require.NoError(t, s.Put(ctx, "before", []byte("1")))
	mr.Close()

	require.NoError(t, s.Put(ctx, "during", []byte("2")))
	value, err := s.Get(ctx, "during")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
}
