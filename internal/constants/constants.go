package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as cache backend dials.
	ShortHTTPTimeout = 5 * time.Second
)

// Retry and rate limiting.
const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultRetryBackoff is the exponential base applied to the rate limit delay.
	DefaultRetryBackoff = 2.0

	// DefaultRateLimitDelay is the delay before the first retry.
	DefaultRateLimitDelay = 1 * time.Second
)

// Concurrency and batching limits.
const (
	// DefaultMaxConcurrentRequests bounds in-flight HTTP requests per client.
	DefaultMaxConcurrentRequests = 200

	// FirstPage is the page number requested when a listing starts.
	FirstPage = 1
)

// HTTP status codes commonly used.
const (
	// HTTPStatusBadRequest is the lowest status treated as an error.
	HTTPStatusBadRequest = 400
)

// API layout.
const (
	// APIPathPrefix is appended to the configured base URL.
	APIPathPrefix = "/api/"

	// DefaultRootKey is the envelope key holding the items of a page.
	DefaultRootKey = "resultList"

	// RateLimitExceededMarker identifies a 403 that is really a rate limit.
	RateLimitExceededMarker = "Rate Limit Exceeded"

	// RequestIDHeader carries the per-request correlation ID.
	RequestIDHeader = "X-Request-ID"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "ces-client-go/1.0"
)

// Cache settings.
const (
	// DefaultCacheSize is the default number of entries held by the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is how long a cached GET response stays fresh.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the JetStream key-value bucket used for caching.
	DefaultNATSBucket = "ces_cache"

	// DefaultRedisKeyPrefix namespaces cache keys in Redis.
	DefaultRedisKeyPrefix = "ces:cache:"
)
