package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		m := NewMemoryBackend()
		require.NoError(t, m.Put(ctx, "id", []byte("record"), time.Hour))

		value, err := m.Get(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, []byte("record"), value)
	})

	t.Run("Missing", func(t *testing.T) {
		m := NewMemoryBackend()
		_, err := m.Get(ctx, "id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ExpiredLooksMissing", func(t *testing.T) {
		m := NewMemoryBackend()
		require.NoError(t, m.Put(ctx, "id", []byte("record"), 20*time.Millisecond))

		require.Eventually(t, func() bool {
			_, err := m.Get(ctx, "id")
			return err == ErrNotFound
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("ReadsDoNotExtendTTL", func(t *testing.T) {
		m := NewMemoryBackend()
		require.NoError(t, m.Put(ctx, "id", []byte("record"), 100*time.Millisecond))

		deadline := time.Now().Add(400 * time.Millisecond)
		expired := false
		for time.Now().Before(deadline) {
			if _, err := m.Get(ctx, "id"); err == ErrNotFound {
				expired = true
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		assert.True(t, expired)
	})

	t.Run("StoresCopy", func(t *testing.T) {
		m := NewMemoryBackend()
		value := []byte("record")
		require.NoError(t, m.Put(ctx, "id", value, time.Hour))
		value[0] = 'X'

		stored, err := m.Get(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, []byte("record"), stored)
	})

	t.Run("StartStop", func(t *testing.T) {
		m := NewMemoryBackend()
		m.Stop()
		m.Start()
		m.Start()
		require.NoError(t, m.Put(ctx, "id", []byte("record"), 10*time.Millisecond))
		require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
		m.Stop()
	})
}
