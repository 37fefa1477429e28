package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/config"
)

// NewFromConfig builds the store selected by store.backend. An unreachable
// primary never fails startup: Redis degrades per call, and a NATS bucket
// that cannot be opened leaves the store memory-only.
func NewFromConfig(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*FallbackStore, error) {
	log := logger.Named("store")
	memory := NewMemoryBackend()
	memory.Start()

	s := NewFallbackStore(log, nil, memory, cfg.Store.TTL)

	switch cfg.Store.Backend {
	case config.StoreMemory:
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable at startup, records fall back to memory until it is",
				zap.String("addr", cfg.Store.Redis.Addr), zap.Error(err))
		}
		backend := NewRedisBackend(client)
		s.primary = backend
		s.closers = append(s.closers, backend)
	case config.StoreNATS:
		backend, err := DialNATS(ctx, cfg.Store.NATS.URL, cfg.Store.NATS.Bucket, cfg.Store.TTL)
		if err != nil {
			log.Error("nats key-value store unavailable, using memory only",
				zap.String("url", cfg.Store.NATS.URL), zap.Error(err))
			break
		}
		s.primary = backend
		s.closers = append(s.closers, backend)
	default:
		memory.Stop()
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}

	log.Info("execution store ready",
		zap.String("backend", cfg.Store.Backend),
		zap.Bool("primary", s.primary != nil),
		zap.Duration("ttl", cfg.Store.TTL))

	return s, nil
}
