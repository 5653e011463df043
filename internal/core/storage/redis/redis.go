package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aevon-lab/waypoint/internal/core/storage"
	"github.com/redis/go-redis/v9"
)

// KVStore implements storage.KeyValueStore on Redis string keys.
// Values never expire; the latest-location tiers are overwritten in place.
type KVStore struct {
	rdb *redis.Client
}

func NewKVStore(rdb *redis.Client) *KVStore { return &KVStore{rdb: rdb} }

// Connect builds a client from connection settings and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*KVStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &KVStore{rdb: rdb}, nil
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return b, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *KVStore) Close() error {
	return s.rdb.Close()
}
