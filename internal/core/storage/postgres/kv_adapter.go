package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aevon-lab/waypoint/internal/core/storage"
)

// KVAdapter implements storage.KeyValueStore on the kv_entries table.
// It shares the connection pool of Adapter rather than opening a second one.
type KVAdapter struct {
	db *sql.DB
}

func NewKVAdapter(db *sql.DB) *KVAdapter {
	return &KVAdapter{db: db}
}

func (a *KVAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := a.db.QueryRowContext(ctx, queryGetEntry, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %q: %w", key, err)
	}
	return value, nil
}

func (a *KVAdapter) Set(ctx context.Context, key string, value []byte) error {
	if _, err := a.db.ExecContext(ctx, queryPutEntry, key, value); err != nil {
		return fmt.Errorf("failed to set entry %q: %w", key, err)
	}
	return nil
}

func (a *KVAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}
