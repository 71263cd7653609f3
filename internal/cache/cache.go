package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/classy-weather/internal/models"
)

// Cache stores forecasts keyed by place and unit.
// Get returns cached data if present and not expired, Set stores data with TTL.
type Cache interface {
	Get(ctx context.Context, key string) (models.Forecast, bool, error)
	Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error
}

// sweepInterval is the minimum time between full scans for expired entries.
const sweepInterval = time.Minute

// InMemoryCache implements Cache using a map with TTL-based expiration.
// Expired entries are removed on access and by a periodic sweep during Set.
// Safe for concurrent use.
type InMemoryCache struct {
	mu        sync.Mutex
	data      map[string]cacheEntry
	now       func() time.Time
	lastSweep time.Time
}

type cacheEntry struct {
	value     models.Forecast
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get returns (data, true, nil) on hit and (zero, false, nil) on miss or expiry.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.Forecast{}, false, nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Forecast{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores a forecast for ttl. The days slice is copied so callers may not mutate
// a cached entry.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	value.Days = append([]models.Day(nil), value.Days...)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= sweepInterval {
		c.sweep(now)
	}
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweep drops every expired entry. Caller holds c.mu.
func (c *InMemoryCache) sweep(now time.Time) {
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.lastSweep = now
}

// Len returns the number of entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
