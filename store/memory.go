package store

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryBackend keeps records in process memory. Contents are lost on restart.
type MemoryBackend struct {
	cache *ttlcache.Cache[string, []byte]

	mu      sync.Mutex
	running bool
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		cache: ttlcache.New[string, []byte](
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

// Start runs the expired-entry janitor until Stop is called
func (m *MemoryBackend) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	go m.cache.Start()
}

// Stop halts the janitor. It is a no-op when the janitor is not running.
func (m *MemoryBackend) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	m.cache.Stop()
}

// Put implements Backend
func (m *MemoryBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, ttl)
	return nil
}

// Get implements Backend
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	item := m.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, ErrNotFound
	}
	return item.Value(), nil
}

// Delete removes key if present
func (m *MemoryBackend) Delete(key string) {
	m.cache.Delete(key)
}

// Len reports the number of live entries
func (m *MemoryBackend) Len() int {
	return m.cache.Len()
}
