package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("not found")

// ObjectStore holds whole objects under hierarchical "/"-separated keys.
// Log shards are stored here.
type ObjectStore interface {
	// Get returns the full object content, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the object at key with content.
	Put(ctx context.Context, key string, content []byte) error

	// List returns every key starting with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// KeyValueStore holds small values under flat keys.
// The latest-location tiers are stored here.
type KeyValueStore interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value at key.
	Set(ctx context.Context, key string, value []byte) error
}

// HealthChecker is implemented by backends that can report connectivity.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
