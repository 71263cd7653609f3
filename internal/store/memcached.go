package store

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/classy-weather/internal/cache"
)

const keyPrefix = "prefs:"

// MemcachedStore keeps values in memcached without expiration. Values survive
// process restarts but not memcached eviction.
type MemcachedStore struct {
	client *memcache.Client
}

// NewMemcachedStore connects to a comma-separated address list.
func NewMemcachedStore(addrs string, timeout time.Duration) *MemcachedStore {
	return &MemcachedStore{client: cache.NewMemcacheClient(addrs, timeout, 0)}
}

// Get returns the value for key. A cache miss reports ok=false, not an error.
func (s *MemcachedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if ctx.Err() != nil {
		return "", false, ctx.Err()
	}
	item, err := s.client.Get(keyPrefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(item.Value), true, nil
}

// Set stores value under key without expiration.
func (s *MemcachedStore) Set(ctx context.Context, key, value string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return s.client.Set(&memcache.Item{Key: keyPrefix + key, Value: []byte(value)})
}

// Ping checks if memcached is reachable.
func (s *MemcachedStore) Ping() error {
	return s.client.Ping()
}

// Close closes the memcached client connections.
func (s *MemcachedStore) Close() error {
	return s.client.Close()
}
