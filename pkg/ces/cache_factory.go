package ces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeRedis represents a Redis cache.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
	ErrRedisConfigRequired  = errors.New("redis configuration required for Redis cache")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrCacheDisabled        = errors.New("cache disabled")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=memory nats redis none"`

	// Memory cache configuration
	Memory *MemoryCacheConfig `mapstructure:"memory" yaml:"memory"`

	// NATS KV cache configuration
	NATS *NATSKVConfig `mapstructure:"nats" yaml:"nats"`

	// Redis cache configuration
	Redis *RedisCacheConfig `mapstructure:"redis" yaml:"redis"`

	// Near puts a memory tier in front of a shared NATS or Redis backend.
	Near *MemoryCacheConfig `mapstructure:"near" yaml:"near,omitempty"`

	// Shared supplies a ready shared backend instead of Type. The caller
	// keeps ownership and closes it.
	Shared Cache `mapstructure:"-" yaml:"-"`

	// Common options applied to any backend. If nil, DefaultCacheOptions() is used.
	Options *CacheOptions `mapstructure:"options" yaml:"options"`
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int `mapstructure:"max_size" yaml:"max_size"`
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
		Options: DefaultCacheOptions(),
	}
}

// EntryTTL returns the configured entry lifetime.
func (c *CacheConfig) EntryTTL() time.Duration {
	if c == nil || c.Options == nil || c.Options.TTL <= 0 {
		return DefaultCacheOptions().TTL
	}

	return c.Options.TTL
}

// NewCacheFromConfig creates a cache backend from configuration. A Near
// section wraps a shared backend in a TieredCache.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	if config.Shared != nil {
		if config.Near == nil {
			return config.Shared, nil
		}

		tiered := NewTieredCache(NewMemoryCache(config.Near.MaxSize), config.Shared)
		tiered.ownsFar = false

		return tiered, nil
	}

	switch config.Type {
	case CacheTypeMemory, "":
		return NewMemoryCacheFromConfig(config.Memory)
	case CacheTypeNone:
		return NewNoOpCache(), nil
	}

	shared, err := newSharedCache(config)
	if err != nil {
		return nil, err
	}

	if config.Near == nil {
		return shared, nil
	}

	return NewTieredCache(NewMemoryCache(config.Near.MaxSize), shared), nil
}

// newSharedCache builds the out-of-process backend named by Type.
func newSharedCache(config *CacheConfig) (Cache, error) {
	switch config.Type {
	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		return NewRedisCache(config.Redis)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) (Cache, error) {
	if config == nil {
		config = &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		}
	}

	cache := NewMemoryCache(config.MaxSize)

	return cache, nil
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// TieredCache fronts a shared backend with a process-local memory tier.
// Reads prefer the near tier and copy shared hits into it. Writes go to the
// shared backend first so other processes see them.
type TieredCache struct {
	near    *MemoryCache
	shared  Cache
	ownsFar bool
}

// NewTieredCache combines near and shared. Close closes shared.
func NewTieredCache(near *MemoryCache, shared Cache) *TieredCache {
	return &TieredCache{near: near, shared: shared, ownsFar: true}
}

// Get returns the near entry, or the shared one after copying it forward.
func (c *TieredCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := c.near.Get(ctx, key)
	if err == nil {
		return entry, nil
	}

	entry, err = c.shared.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = c.near.Set(ctx, key, entry)

	return entry, nil
}

// Set writes the shared tier, then the near tier.
func (c *TieredCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	err := c.shared.Set(ctx, key, entry)
	if err != nil {
		return fmt.Errorf("writing shared cache: %w", err)
	}

	return c.near.Set(ctx, key, entry)
}

// Delete removes key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.near.Delete(ctx, key), c.shared.Delete(ctx, key))
}

// Clear empties both tiers.
func (c *TieredCache) Clear(ctx context.Context) error {
	return errors.Join(c.near.Clear(ctx), c.shared.Clear(ctx))
}

// Has reports whether either tier holds key.
func (c *TieredCache) Has(ctx context.Context, key string) bool {
	return c.near.Has(ctx, key) || c.shared.Has(ctx, key)
}

// Close releases the shared backend when the tiered cache created it.
func (c *TieredCache) Close() error {
	if !c.ownsFar {
		return nil
	}

	return CloseCache(c.shared)
}

// CloseCache closes backends holding connections. Others are left alone.
func CloseCache(cache Cache) error {
	switch closer := cache.(type) {
	case io.Closer:
		return closer.Close()
	case interface{ Close() }:
		closer.Close()
	}

	return nil
}
