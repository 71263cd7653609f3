// Package store persists small string preferences, such as the last searched location.
package store

import (
	"context"
	"sync"
)

// LocationKey is the slot holding the last successfully resolved location text.
const LocationKey = "location"

// Store is a string key-value store. Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore keeps values in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value for key and whether it was set.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

type scoped struct {
	base  Store
	scope string
}

// Scoped namespaces every key of base under scope, so many browser sessions can
// share one backend.
func Scoped(base Store, scope string) Store {
	return &scoped{base: base, scope: scope}
}

func (s *scoped) key(k string) string {
	return s.scope + ":" + k
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.base.Get(ctx, s.key(key))
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.base.Set(ctx, s.key(key), value)
}
