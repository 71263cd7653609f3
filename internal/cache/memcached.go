package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/classy-weather/internal/models"
)

const keyPrefix = "forecast:"

// MemcachedCache implements Cache using memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// configure the client; both use package defaults if zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	return &MemcachedCache{client: NewMemcacheClient(addrs, timeout, maxIdleConns)}, nil
}

// NewMemcacheClient builds a gomemcache client from a comma-separated address list.
// Shared with the location store so both backends parse addresses the same way.
func NewMemcacheClient(addrs string, timeout time.Duration, maxIdleConns int) *memcache.Client {
	servers := ParseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return client
}

// ParseAddrs splits a comma-separated address list, dropping blanks.
func ParseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// memcached keys must be at most 250 bytes with no spaces or control characters.
func (c *MemcachedCache) key(k string) string {
	return keyPrefix + strings.ReplaceAll(k, " ", "_")
}

// Get implements Cache.Get. Returns false, nil on cache miss; false, err on error.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Forecast, bool, error) {
	if ctx.Err() != nil {
		return models.Forecast{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Forecast{}, false, nil
		}
		return models.Forecast{}, false, err
	}
	var data models.Forecast
	if err := json.Unmarshal(item.Value, &data); err != nil {
		return models.Forecast{}, false, err
	}
	return data, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Forecast, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: ExpirationSeconds(ttl),
	})
}

// ExpirationSeconds converts ttl to a memcached relative expiration, falling back
// to one hour when ttl is out of the relative range.
func ExpirationSeconds(ttl time.Duration) int32 {
	const maxRelativeExp = 30 * 24 * 60 * 60 // 30 days
	expSec := int64(ttl / time.Second)
	if expSec <= 0 || expSec > maxRelativeExp {
		return 3600
	}
	return int32(expSec)
}

// Ping checks if memcached is reachable. Used for health checks.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes the memcached client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
