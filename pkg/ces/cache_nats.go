package ces

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNATSURLRequired = errors.New("NATS URL or connection required")
)

// NATSKVConfig configures a JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server; ignored when Conn is set.
	URL string `mapstructure:"url" yaml:"url"`
	// Bucket name, defaults to "ces_cache".
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	// TTL applied by the bucket to every key.
	TTL time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Conn reuses an existing connection.
	Conn *nats.Conn `mapstructure:"-" yaml:"-"`
}

// NATSKVCache stores entries in a JetStream key-value bucket so several
// processes can share cached responses.
type NATSKVCache struct {
	conn     *nats.Conn
	kv       jetstream.KeyValue
	ownsConn bool
}

// NewNATSKVCache connects and creates or updates the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || (config.Conn == nil && config.URL == "") {
		return nil, ErrNATSURLRequired
	}

	conn := config.Conn
	ownsConn := false

	if conn == nil {
		var err error

		conn, err = nats.Connect(config.URL, nats.Timeout(constants.ShortHTTPTimeout))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownsConn = true
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    config.TTL,
	})
	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("creating key-value bucket %q: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, kv: kv, ownsConn: ownsConn}, nil
}

func closeIfOwned(conn *nats.Conn, owned bool) {
	if owned {
		conn.Close()
	}
}

// natsKey maps an arbitrary cache key to a valid KV key.
func natsKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// Get returns a fresh entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}

		return nil, fmt.Errorf("reading cache key: %w", err)
	}

	entry := &CacheEntry{}

	err = json.Unmarshal(kvEntry.Value(), entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired(time.Now()) {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrCacheExpired, key)
	}

	return entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(ctx, natsKey(key), data)
	if err != nil {
		return fmt.Errorf("writing cache key: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting cache key: %w", err)
	}

	return nil
}

// Clear removes every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing cache keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		err = c.kv.Delete(ctx, key)
		if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("deleting cache key: %w", err)
		}
	}

	return nil
}

// Has reports whether a fresh entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close releases the connection if the cache opened it.
func (c *NATSKVCache) Close() {
	closeIfOwned(c.conn, c.ownsConn)
}
