package ces

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrAPIPathInURL    = errors.New("base URL should not include the api/ path")
	ErrMissingURLParts = errors.New("base URL needs a scheme such as https://")
)

// CleanBaseURL trims surrounding whitespace and trailing slashes.
func CleanBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// ValidateBaseURL rejects blank URLs, URLs without a scheme and URLs that
// already point into the api/ path.
func ValidateBaseURL(raw string) error {
	switch {
	case strings.TrimSpace(raw) == "":
		return ErrBaseURLRequired
	case !strings.Contains(raw, "://"):
		return fmt.Errorf("%w: %w: %q", ErrInvalidBaseURL, ErrMissingURLParts, raw)
	case strings.Contains(raw, "api/"):
		return fmt.Errorf("%w: %w: %q", ErrInvalidBaseURL, ErrAPIPathInURL, raw)
	}

	return nil
}

// Validate checks the base URL rules and the struct tags. Plain HTTP is
// accepted with a warning.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	err := ValidateBaseURL(c.BaseURL)
	if err != nil {
		return err
	}

	err = validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if strings.HasPrefix(c.BaseURL, "http://") {
		LoggerOrNop(c.Logger).Warn("CES may respond unexpectedly to plain HTTP requests, use HTTPS if possible", map[string]interface{}{
			"base_url": c.BaseURL,
		})
	}

	return nil
}

// WithDefaults returns a copy with every unset tunable filled in.
func (c Config) WithDefaults() Config {
	if c.AuthScheme == "" {
		c.AuthScheme = AuthSchemeBearer
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = constants.DefaultMaxRetries
	}

	if c.RetryBackoff == 0 {
		c.RetryBackoff = constants.DefaultRetryBackoff
	}

	if c.RateLimitDelay == 0 {
		c.RateLimitDelay = constants.DefaultRateLimitDelay
	}

	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = constants.DefaultMaxConcurrentRequests
	}

	if c.RootKey == "" {
		c.RootKey = constants.DefaultRootKey
	}

	if c.UserAgent == "" {
		c.UserAgent = constants.DefaultUserAgent
	}

	return c
}

// LoadConfig reads configuration from path, or from $HOME/.ces/config.yml
// when path is empty, with CES_* environment variables taking precedence.
// A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("CES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setConfigDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".ces"))
		}

		v.SetConfigType("yml")
		v.SetConfigName("config")
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}

	err = v.Unmarshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.BaseURL = CleanBaseURL(cfg.BaseURL)
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)

	if cfg.Cache != nil && cfg.Cache.Type == "" {
		cfg.Cache = nil
	}

	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "")
	v.SetDefault("access_token", "")
	v.SetDefault("auth_scheme", string(AuthSchemeBearer))
	v.SetDefault("max_retries", constants.DefaultMaxRetries)
	v.SetDefault("retry_backoff", constants.DefaultRetryBackoff)
	v.SetDefault("rate_limit_delay", constants.DefaultRateLimitDelay)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("max_concurrent_requests", constants.DefaultMaxConcurrentRequests)
	v.SetDefault("bulk_fetch_size", 0)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("root_key", constants.DefaultRootKey)
	v.SetDefault("user_agent", constants.DefaultUserAgent)
	v.SetDefault("debug", false)
	v.SetDefault("cache.type", "")
	v.SetDefault("cache.memory.max_size", constants.DefaultCacheSize)
	v.SetDefault("cache.nats.url", "")
	v.SetDefault("cache.nats.bucket", constants.DefaultNATSBucket)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.key_prefix", constants.DefaultRedisKeyPrefix)
	v.SetDefault("cache.options.ttl", constants.DefaultCacheTTL)
}

// SaveConfig writes cfg as YAML, creating the parent directory.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return ErrConfigRequired
	}

	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
