package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/ces-client/internal/auth"
	"github.com/fivetwenty-io/ces-client/internal/constants"
	"github.com/fivetwenty-io/ces-client/internal/http"
	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Client implements the ces.Client interface.
type Client struct {
	*AccountClient
	*UsersClient
	*SurveysClient
	*ProjectsClient
	*CoursesClient
	*NodesClient

	httpClient   *http.Client
	tokenManager auth.TokenManager
	session      *ces.Session
	baseURL      string
	logger       ces.Logger
	cache        ces.Cache
	cacheConfig  *ces.CacheConfig
	metrics      *ces.PrometheusMetrics
}

var _ ces.Client = (*Client)(nil)

// New creates a new CES API client.
func New(ctx context.Context, config *ces.Config) (*Client, error) {
	if config == nil {
		return nil, ces.ErrConfigRequired
	}

	var tokenManager auth.TokenManager
	if strings.TrimSpace(config.AccessToken) != "" {
		tokenManager = auth.NewStaticTokenManager(config.AccessToken)
	}

	return NewWithTokenManager(config, tokenManager)
}

// NewWithTokenManager creates a new CES API client with a custom token
// manager. A nil token manager sends unauthenticated requests.
func NewWithTokenManager(config *ces.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil {
		return nil, ces.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	cfg := config.WithDefaults()

	cache, err := createCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	chain, metrics, err := createInterceptors(&cfg)
	if err != nil {
		_ = closeCache(cfg.Cache, cache)

		return nil, err
	}

	httpOpts := createHTTPClientOptions(&cfg, chain)
	if cache != nil {
		httpOpts = append(httpOpts, http.WithCache(cache, cfg.Cache.EntryTTL()))
	}

	httpClient := http.NewClient(cfg.BaseURL, tokenManager, httpOpts...)

	sessionOpts := []ces.SessionOption{
		ces.WithSessionLogger(cfg.Logger),
		ces.WithSessionRootKey(cfg.RootKey),
	}
	if cfg.BulkFetchSize > 1 {
		sessionOpts = append(sessionOpts, ces.WithSessionBulkFetch(cfg.BulkFetchSize))
	}

	session := ces.NewSession(httpClient, sessionOpts...)

	client := &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		session:      session,
		baseURL:      cfg.BaseURL,
		logger:       cfg.Logger,
		cache:        cache,
		cacheConfig:  cfg.Cache,
		metrics:      metrics,
	}

	client.initializeResourceClients()

	if client.logger != nil {
		client.logger.Info("CES client initialized", map[string]interface{}{
			"base_url": cfg.BaseURL,
			"cache":    cache != nil,
		})
	}

	return client, nil
}

func (c *Client) initializeResourceClients() {
	c.AccountClient = NewAccountClient(c.session)
	c.UsersClient = NewUsersClient(c.session)
	c.SurveysClient = NewSurveysClient(c.session)
	c.ProjectsClient = NewProjectsClient(c.session)
	c.CoursesClient = NewCoursesClient(c.session)
	c.NodesClient = NewNodesClient(c.session)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *ces.Config, chain *ces.InterceptorChain) []http.Option {
	httpOpts := []http.Option{
		http.WithRetryConfig(config.MaxRetries, config.RateLimitDelay, config.RetryBackoff),
		http.WithTimeout(config.HTTPTimeout),
		http.WithAuthScheme(config.AuthScheme),
		http.WithMaxConcurrency(config.MaxConcurrentRequests),
		http.WithUserAgent(config.UserAgent),
		http.WithInterceptors(chain),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	return httpOpts
}

// createInterceptors assembles the request ID, rate limit and metrics
// interceptors ahead of any user supplied ones.
func createInterceptors(config *ces.Config) (*ces.InterceptorChain, *ces.PrometheusMetrics, error) {
	chain := ces.NewInterceptorChain()
	chain.AddRequestInterceptor(ces.RequestIDInterceptor())

	if config.RequestsPerSecond > 0 {
		burst := max(int(config.RequestsPerSecond), 1)
		chain.AddRequestInterceptor(ces.RateLimitInterceptor(config.RequestsPerSecond, burst))
	}

	var metrics *ces.PrometheusMetrics

	if config.MetricsRegisterer != nil {
		var err error

		metrics, err = ces.NewPrometheusMetrics(config.MetricsRegisterer)
		if err != nil {
			return nil, nil, fmt.Errorf("registering metrics: %w", err)
		}

		metrics.Install(chain)
	}

	if config.Interceptors != nil {
		chain.Merge(config.Interceptors)
	}

	return chain, metrics, nil
}

func createCache(config *ces.CacheConfig) (ces.Cache, error) {
	if config == nil || (config.Type == ces.CacheTypeNone && config.Shared == nil) {
		return nil, nil //nolint:nilnil // caching is optional
	}

	cache, err := ces.NewCacheFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return cache, nil
}

// closeCache leaves a caller-supplied shared backend open.
func closeCache(config *ces.CacheConfig, cache ces.Cache) error {
	if config != nil && config.Shared != nil && config.Near == nil {
		return nil
	}

	return ces.CloseCache(cache)
}

// Session returns the endpoint executor shared by all resource clients.
func (c *Client) Session() *ces.Session {
	return c.session
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// Metrics returns the Prometheus collectors, or nil when metrics are off.
func (c *Client) Metrics() *ces.PrometheusMetrics {
	return c.metrics
}

// SetRetryOptions implements ces.RetryTuner. Zero values select the defaults.
func (c *Client) SetRetryOptions(maxRetries int, backoff float64) {
	if maxRetries == 0 {
		maxRetries = constants.DefaultMaxRetries
	}

	if backoff == 0 {
		backoff = constants.DefaultRetryBackoff
	}

	c.httpClient.SetRetryOptions(maxRetries, backoff)
}

// SetRateLimitDelay implements ces.RetryTuner.
func (c *Client) SetRateLimitDelay(delay time.Duration) {
	if delay <= 0 {
		delay = constants.DefaultRateLimitDelay
	}

	c.httpClient.SetRateLimitDelay(delay)
}

// Close releases the cache backend connection, if any.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}

	err := closeCache(c.cacheConfig, c.cache)
	if err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}

	return nil
}
