package ces

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrCacheMiss    = errors.New("key not found")
	ErrCacheExpired = errors.New("entry expired")
)

// CacheEntry is a cached response body.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is stale at now. A zero ExpiresAt never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache stores GET response bodies keyed by request URL.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheOptions are applied to any cache backend.
type CacheOptions struct {
	// TTL is how long a response stays fresh.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{TTL: constants.DefaultCacheTTL}
}

// CacheKey builds the cache key of a request.
func CacheKey(method, url string) string {
	return method + " " + url
}

// MemoryCache is a bounded in-process LRU cache.
type MemoryCache struct {
	entries *lru.Cache[string, *CacheEntry]
}

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	// lru.New only fails for non-positive sizes.
	entries, _ := lru.New[string, *CacheEntry](maxSize)

	return &MemoryCache{entries: entries}
}

// Get returns a fresh entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if entry.Expired(time.Now()) {
		c.entries.Remove(key)

		return nil, fmt.Errorf("%w: %s", ErrCacheExpired, key)
	}

	return entry, nil
}

// Set stores an entry, evicting the least recently used one when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.entries.Add(key, entry)

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.entries.Purge()

	return nil
}

// Has reports whether a fresh entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, fresh or not.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}
