package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("kv: key not found")

// Store is the origin-scoped durable key-value storage shared by every
// storefront session. Values are full snapshots, never deltas; Put returns
// the key's new revision so callers can track write ordering.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) (int64, error)
	Delete(ctx context.Context, key string) error
}
