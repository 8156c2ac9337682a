package ces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrRedisAddrRequired = errors.New("redis address or client required")
)

const redisScanCount = 100

// RedisCacheConfig configures a Redis cache.
type RedisCacheConfig struct {
	Addr      string `mapstructure:"addr"       yaml:"addr"`
	Password  string `mapstructure:"password"   yaml:"password"`
	DB        int    `mapstructure:"db"         yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	// Client reuses an existing client.
	Client *redis.Client `mapstructure:"-" yaml:"-"`
}

// RedisCache stores entries in Redis with native expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates the client and checks connectivity.
func NewRedisCache(config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil || (config.Client == nil && config.Addr == "") {
		return nil, ErrRedisAddrRequired
	}

	client := config.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:        config.Addr,
			Password:    config.Password,
			DB:          config.DB,
			DialTimeout: constants.ShortHTTPTimeout,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = constants.DefaultRedisKeyPrefix
	}

	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get returns a fresh entry.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}

		return nil, fmt.Errorf("reading cache key: %w", err)
	}

	entry := &CacheEntry{}

	err = json.Unmarshal(data, entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrCacheExpired, key)
	}

	return entry, nil
}

// Set stores an entry with the remaining lifetime as Redis expiry.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var ttl time.Duration

	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	err = c.client.Set(ctx, c.prefix+key, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("writing cache key: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	if err != nil {
		return fmt.Errorf("deleting cache key: %w", err)
	}

	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", redisScanCount).Iterator()

	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			return fmt.Errorf("deleting cache key: %w", err)
		}
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}

	return nil
}

// Has reports whether the key exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()

	return err == nil && n > 0
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
