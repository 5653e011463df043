// Package latest maintains the latest known location of every device at
// three granularities: per device, per user and global.
//
// Each tier is a JSON array stored under one key. Updates are plain
// read-filter-write cycles with no locking, so two events for different
// devices of one user that race can drop one of them from the user tier
// until that device reports again.
//
// Keys are plain colon-joined names. A user literally named "all" shares
// last:all with the global tier, and names containing ':' can collide
// across tiers.
package latest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/waypoint/internal/core/storage"
)

// ErrNotFound is returned by Fetch when a tier was never written.
var ErrNotFound = errors.New("no location data found")

type Cache struct {
	kv storage.KeyValueStore
}

func NewCache(kv storage.KeyValueStore) *Cache {
	if kv == nil {
		panic("latest: key-value store must not be nil")
	}
	return &Cache{kv: kv}
}

// Record stores event as the newest location of (user, device) in the
// device, user and global tiers, in that order. It stops at the first
// storage error; tiers already written stay written.
func (c *Cache) Record(ctx context.Context, user, device string, event json.RawMessage) error {
	if err := c.write(ctx, DeviceKey(user, device), []json.RawMessage{event}); err != nil {
		return err
	}

	userKey := UserKey(user)
	entries, err := c.read(ctx, userKey)
	if err != nil {
		return err
	}
	if err := c.write(ctx, userKey, append(EvictDevice(entries, device), event)); err != nil {
		return err
	}

	globalKey := GlobalKey()
	entries, err = c.read(ctx, globalKey)
	if err != nil {
		return err
	}
	if err := c.write(ctx, globalKey, append(EvictUserDevice(entries, user, device), event)); err != nil {
		return err
	}

	slog.Debug("Updated latest locations", "user", user, "device", device)
	return nil
}

// Fetch returns the entries of one tier.
func (c *Cache) Fetch(ctx context.Context, key Key) ([]json.RawMessage, error) {
	raw, err := c.kv.Get(ctx, key.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return decodeTier(key, raw)
}

// read treats a missing tier as empty.
func (c *Cache) read(ctx context.Context, key Key) ([]json.RawMessage, error) {
	entries, err := c.Fetch(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return entries, err
}

func (c *Cache) write(ctx context.Context, key Key, entries []json.RawMessage) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key.String(), raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func decodeTier(key Key, raw []byte) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%s does not hold a JSON array: %w", key, err)
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return entries, nil
}
