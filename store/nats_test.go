package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e mockEntry) Value() []byte { return e.value }

// MockBucket implements KeyValueBucket for testing
type MockBucket struct {
	data map[string][]byte
	err  error
}

func (b *MockBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	if b.err != nil {
		return 0, b.err
	}
	b.data[key] = value
	return uint64(len(b.data)), nil
}

func (b *MockBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	if b.err != nil {
		return nil, b.err
	}
	value, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return mockEntry{value: value}, nil
}

func TestNATSBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		bucket := &MockBucket{data: map[string][]byte{}}
		backend := NewNATSBackend(bucket)

		require.NoError(t, backend.Put(ctx, "abc", []byte("x"), time.Hour))
		assert.Contains(t, bucket.data, "execution.abc")

		value, err := backend.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), value)
	})

	t.Run("Missing", func(t *testing.T) {
		backend := NewNATSBackend(&MockBucket{data: map[string][]byte{}})

		_, err := backend.Get(ctx, "abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unavailable", func(t *testing.T) {
		backend := NewNATSBackend(&MockBucket{err: errors.New("nats: timeout")})

		require.Error(t, backend.Put(ctx, "abc", []byte("x"), time.Hour))
		_, err := backend.Get(ctx, "abc")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("CloseWithoutConnection", func(t *testing.T) {
		backend := NewNATSBackend(&MockBucket{})
		assert.NoError(t, backend.Close())
	})
}
