package ces_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr []error
	}{
		{"valid", "https://school.evaluationkit.com", nil},
		{"blank", "   ", []error{ces.ErrBaseURLRequired}},
		{"missing scheme", "school.evaluationkit.com", []error{ces.ErrInvalidBaseURL, ces.ErrMissingURLParts}},
		{"api path", "https://school.evaluationkit.com/api/", []error{ces.ErrInvalidBaseURL, ces.ErrAPIPathInURL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ces.ValidateBaseURL(tt.url)
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			for _, want := range tt.wantErr {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestCleanBaseURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://school.evaluationkit.com", ces.CleanBaseURL("  https://school.evaluationkit.com//  "))
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := ces.Config{BaseURL: "https://school.evaluationkit.com", AccessToken: "token"}

	tests := []struct {
		name    string
		mutate  func(*ces.Config)
		wantErr error
	}{
		{"valid", func(*ces.Config) {}, nil},
		{"token scheme", func(c *ces.Config) { c.AuthScheme = ces.AuthSchemeToken }, nil},
		{"retries disabled", func(c *ces.Config) { c.MaxRetries = -1 }, nil},
		{"unknown scheme", func(c *ces.Config) { c.AuthScheme = "basic" }, ces.ErrInvalidConfig},
		{"negative retries", func(c *ces.Config) { c.MaxRetries = -2 }, ces.ErrInvalidConfig},
		{"shrinking backoff", func(c *ces.Config) { c.RetryBackoff = 0.5 }, ces.ErrInvalidConfig},
		{"negative concurrency", func(c *ces.Config) { c.MaxConcurrentRequests = -1 }, ces.ErrInvalidConfig},
		{"unknown cache", func(c *ces.Config) { c.Cache = &ces.CacheConfig{Type: "disk"} }, ces.ErrInvalidConfig},
		{"missing url", func(c *ces.Config) { c.BaseURL = "" }, ces.ErrBaseURLRequired},
		{"api url", func(c *ces.Config) { c.BaseURL = "https://x.example.edu/api/v1" }, ces.ErrAPIPathInURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilConfig *ces.Config
	require.ErrorIs(t, nilConfig.Validate(), ces.ErrConfigRequired)
}

func TestConfig_ValidateWarnsOnPlainHTTP(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	cfg := &ces.Config{BaseURL: "http://school.evaluationkit.com", Logger: logger}

	require.NoError(t, cfg.Validate())

	warnings := logger.at("warn")
	require.Len(t, warnings, 1)
	assert.Equal(t, "http://school.evaluationkit.com", warnings[0].fields["base_url"])
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	cfg := ces.Config{BaseURL: "https://school.evaluationkit.com"}.WithDefaults()

	assert.Equal(t, ces.AuthSchemeBearer, cfg.AuthScheme)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.InDelta(t, 2.0, cfg.RetryBackoff, 0.0001)
	assert.Equal(t, time.Second, cfg.RateLimitDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 200, cfg.MaxConcurrentRequests)
	assert.Equal(t, "resultList", cfg.RootKey)
	assert.NotEmpty(t, cfg.UserAgent)

	// Explicit values survive.
	custom := ces.Config{MaxRetries: -1, RetryBackoff: 3, RootKey: "items"}.WithDefaults()
	assert.Equal(t, -1, custom.MaxRetries)
	assert.InDelta(t, 3.0, custom.RetryBackoff, 0.0001)
	assert.Equal(t, "items", custom.RootKey)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
base_url: " https://school.evaluationkit.com/ "
access_token: " secret "
auth_scheme: token
max_retries: 5
rate_limit_delay: 250ms
bulk_fetch_size: 4
cache:
  type: memory
  memory:
    max_size: 50
  options:
    ttl: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := ces.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://school.evaluationkit.com", cfg.BaseURL)
	assert.Equal(t, "secret", cfg.AccessToken)
	assert.Equal(t, ces.AuthSchemeToken, cfg.AuthScheme)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimitDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 4, cfg.BulkFetchSize)
	assert.Equal(t, "resultList", cfg.RootKey)

	require.NotNil(t, cfg.Cache)
	assert.Equal(t, ces.CacheTypeMemory, cfg.Cache.Type)
	assert.Equal(t, 50, cfg.Cache.Memory.MaxSize)
	assert.Equal(t, 2*time.Minute, cfg.Cache.EntryTTL())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := ces.LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CES_BASE_URL", "https://env.evaluationkit.com")
	t.Setenv("CES_ACCESS_TOKEN", "from-env")
	t.Setenv("CES_MAX_RETRIES", "7")
	t.Setenv("CES_CACHE_TYPE", "none")

	cfg, err := ces.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.evaluationkit.com", cfg.BaseURL)
	assert.Equal(t, "from-env", cfg.AccessToken)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, ces.AuthSchemeBearer, cfg.AuthScheme)
	require.NotNil(t, cfg.Cache)
	assert.Equal(t, ces.CacheTypeNone, cfg.Cache.Type)
}

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := ces.LoadConfig("")
	require.NoError(t, err)

	assert.Empty(t, cfg.BaseURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Nil(t, cfg.Cache)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	original := &ces.Config{
		BaseURL:        "https://school.evaluationkit.com",
		AccessToken:    "secret",
		AuthScheme:     ces.AuthSchemeToken,
		MaxRetries:     2,
		RetryBackoff:   1.5,
		RateLimitDelay: 500 * time.Millisecond,
		HTTPTimeout:    10 * time.Second,
		Logger:         &recordingLogger{},
	}

	require.NoError(t, ces.SaveConfig(path, original))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := ces.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, original.BaseURL, loaded.BaseURL)
	assert.Equal(t, original.AuthScheme, loaded.AuthScheme)
	assert.Equal(t, original.MaxRetries, loaded.MaxRetries)
	assert.InDelta(t, original.RetryBackoff, loaded.RetryBackoff, 0.0001)
	assert.Equal(t, original.RateLimitDelay, loaded.RateLimitDelay)
	assert.Equal(t, original.HTTPTimeout, loaded.HTTPTimeout)
	assert.Nil(t, loaded.Cache)

	require.ErrorIs(t, ces.SaveConfig(path, nil), ces.ErrConfigRequired)
}
