package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/isdmx/execbox/store"
)

// ErrNotFound is returned for unknown or expired execution ids.
var ErrNotFound = errors.New("execution not found")

// RecordStore is the byte-level store records are persisted in
type RecordStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Repository persists records as JSON snapshots
type Repository struct {
	store RecordStore
}

// NewRepository creates a repository over s
func NewRepository(s RecordStore) *Repository {
	return &Repository{store: s}
}

// Save writes the full snapshot of rec, replacing any previous one
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode execution %s: %w", rec.ID, err)
	}
	if err := r.store.Put(ctx, rec.ID, data); err != nil {
		return fmt.Errorf("failed to store execution %s: %w", rec.ID, err)
	}
	return nil
}

// Find loads the latest snapshot for id
func (r *Repository) Find(ctx context.Context, id string) (*Record, error) {
	data, err := r.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode execution %s: %w", id, err)
	}
	return &rec, nil
}
