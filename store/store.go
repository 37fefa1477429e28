// Package store provides the ephemeral execution record store.
//
// Records are opaque byte snapshots keyed by execution id with a TTL. A
// networked primary backend (Redis or NATS JetStream KV) is backed by a
// process-local memory backend that absorbs every primary failure.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned for keys that were never stored or have expired.
var ErrNotFound = errors.New("record not found")

// Backend is a TTL key/value store for serialized records
type Backend interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// FallbackStore tries the primary backend on every call and degrades to
// memory on any primary error. Primary errors are logged, never returned.
type FallbackStore struct {
	logger  *zap.Logger
	primary Backend
	memory  *MemoryBackend
	ttl     time.Duration
	closers []io.Closer
}

// NewFallbackStore creates a store over primary, which may be nil.
func NewFallbackStore(logger *zap.Logger, primary Backend, memory *MemoryBackend, ttl time.Duration) *FallbackStore {
	return &FallbackStore{
		logger:  logger,
		primary: primary,
		memory:  memory,
		ttl:     ttl,
	}
}

// TTL returns the lifetime applied to every record
func (s *FallbackStore) TTL() time.Duration {
	return s.ttl
}

// Put stores value under key for the configured TTL
func (s *FallbackStore) Put(ctx context.Context, key string, value []byte) error {
	if s.primary != nil {
		err := s.primary.Put(ctx, key, value, s.ttl)
		if err == nil {
			// an older outage copy would shadow this write
			s.memory.Delete(key)
			return nil
		}
		s.logger.Warn("primary store unavailable, writing to memory", zap.String("key", key), zap.Error(err))
	}
	return s.memory.Put(ctx, key, value, s.ttl)
}

// Get returns the value stored under key or ErrNotFound. Memory only
// holds writes the primary rejected, so a memory hit is newer than
// whatever the primary has and is served first.
func (s *FallbackStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.memory.Get(ctx, key)
	if err == nil || s.primary == nil {
		return value, err
	}

	value, err = s.primary.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("primary store unavailable", zap.String("key", key), zap.Error(err))
		return nil, ErrNotFound
	}
	return value, err
}

// Close stops the memory janitor and releases primary connections
func (s *FallbackStore) Close() error {
	s.memory.Stop()

	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
