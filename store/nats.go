package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// natsKeyPrefix keeps record keys distinguishable inside a shared bucket
const natsKeyPrefix = "execution."

// KeyValueBucket is the part of jetstream.KeyValue the backend uses
type KeyValueBucket interface {
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
}

// NATSBackend stores records in a JetStream key-value bucket. The bucket's
// max age is the record TTL, so the per-call ttl argument is not used.
type NATSBackend struct {
	bucket KeyValueBucket
	conn   *nats.Conn
}

// NewNATSBackend wraps an existing bucket
func NewNATSBackend(bucket KeyValueBucket) *NATSBackend {
	return &NATSBackend{bucket: bucket}
}

// DialNATS connects to url and opens (or creates) bucket with ttl as max age.
func DialNATS(ctx context.Context, url, bucket string, ttl time.Duration) (*NATSBackend, error) {
	nc, err := nats.Connect(url,
		nats.Name("execbox"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open JetStream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "execbox execution records",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
	}

	return &NATSBackend{bucket: kv, conn: nc}, nil
}

// Put implements Backend
func (n *NATSBackend) Put(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := n.bucket.Put(ctx, natsKeyPrefix+key, value); err != nil {
		return fmt.Errorf("nats put %s: %w", key, err)
	}
	return nil
}

// Get implements Backend
func (n *NATSBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := n.bucket.Get(ctx, natsKeyPrefix+key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nats get %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Close drains the connection when the backend owns one
func (n *NATSBackend) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
