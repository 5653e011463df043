package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aevon-lab/waypoint/internal/core/storage"
)

// Store is an in-memory ObjectStore and KeyValueStore.
// Useful for testing and development.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	// Return a copy to prevent external modification
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(ctx context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), content...)
	return nil
}

// Set is Put under the KeyValueStore name.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.Put(ctx, key, value)
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len is the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

var (
	_ storage.ObjectStore   = (*Store)(nil)
	_ storage.KeyValueStore = (*Store)(nil)
)
