// Package recordlog is the append-only location log.
//
// Every device gets one text shard per UTC month under
// rec/{user}/{device}/{YYYY-MM}.rec. Each line is
//
//	<ISO-8601 UTC timestamp with milliseconds> * <event JSON>
//
// Appends read the whole shard, add one line and write it back. There is no
// locking: two appends racing on the same shard can lose one of the lines.
package recordlog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aevon-lab/waypoint/internal/core/partition"
	"github.com/aevon-lab/waypoint/internal/core/storage"
)

// ErrNotFound is returned by Read when the shard does not exist.
var ErrNotFound = errors.New("log shard not found")

// Store appends to and reads from log shards kept in an object store.
type Store struct {
	objects storage.ObjectStore
}

func NewStore(objects storage.ObjectStore) *Store {
	if objects == nil {
		panic("recordlog: object store must not be nil")
	}
	return &Store{objects: objects}
}

// Append adds one record to the end of the shard named by key, creating the
// shard if it does not exist yet.
func (s *Store) Append(ctx context.Context, key partition.Key, rec Record) error {
	line, err := FormatRecord(rec)
	if err != nil {
		return err
	}

	objectKey := key.ObjectKey()
	current, err := s.objects.Get(ctx, objectKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read shard %s: %w", objectKey, err)
	}

	next := make([]byte, 0, len(current)+len(line))
	next = append(next, current...)
	next = append(next, line...)

	if err := s.objects.Put(ctx, objectKey, next); err != nil {
		return fmt.Errorf("write shard %s: %w", objectKey, err)
	}
	return nil
}

// Read returns the full content of one shard.
func (s *Store) Read(ctx context.Context, key partition.Key) ([]byte, error) {
	content, err := s.objects.Get(ctx, key.ObjectKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read shard %s: %w", key.ObjectKey(), err)
	}
	return content, nil
}

// List returns every object key under prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.objects.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

// ListUsers returns the distinct users that have at least one shard.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	return s.distinctSegments(ctx, partition.Root, 1)
}

// ListDevices returns the distinct devices of a user.
func (s *Store) ListDevices(ctx context.Context, user string) ([]string, error) {
	return s.distinctSegments(ctx, partition.UserPrefix(user), 2)
}

// ListPartitions returns the shard file names ("2023-11.rec") of a device.
func (s *Store) ListPartitions(ctx context.Context, user, device string) ([]string, error) {
	keys, err := s.List(ctx, partition.DevicePrefix(user, device))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		shard, err := partition.Parse(key)
		if err != nil || shard.User != user || shard.Device != device {
			continue
		}
		names = append(names, shard.FileName())
	}
	return dedupSorted(names), nil
}

func (s *Store) distinctSegments(ctx context.Context, prefix string, n int) ([]string, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	segments := make([]string, 0, len(keys))
	for _, key := range keys {
		if seg := partition.Segment(key, n); seg != "" {
			segments = append(segments, seg)
		}
	}
	return dedupSorted(segments), nil
}

func dedupSorted(values []string) []string {
	sort.Strings(values)
	out := values[:0]
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
