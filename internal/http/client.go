package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"

	"github.com/fivetwenty-io/ces-client/internal/auth"
	"github.com/fivetwenty-io/ces-client/internal/constants"
	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// Response is the raw HTTP response returned by the client.
type Response = ces.Response

// Request is a low-level HTTP request relative to the base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Form    url.Values
	Headers map[string]string
	NoAuth  bool
}

// Client sends requests to the CES API with authentication, retries on
// rate limiting, and status classification.
type Client struct {
	baseURL      string
	apiPrefix    string
	httpClient   *http.Client
	retry        atomic.Pointer[retryablehttp.Client]
	tokenManager auth.TokenManager
	authScheme   ces.AuthScheme
	logger       ces.Logger
	debug        bool
	userAgent    string
	interceptors *ces.InterceptorChain
	cache        ces.Cache
	cacheTTL     time.Duration
	sem          *semaphore.Weighted

	policyMu sync.Mutex
	policy   retryPolicy
}

type retryPolicy struct {
	maxRetries int
	delay      time.Duration
	backoff    float64
}

// wait returns the delay before retry attempt (0 based).
func (p retryPolicy) wait(attempt int) time.Duration {
	return time.Duration(float64(p.delay) * math.Pow(p.backoff, float64(attempt)))
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger ces.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response body logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig sets the retry policy. The wait before retry n is
// delay * backoff^n. A negative maxRetries disables retries.
func WithRetryConfig(maxRetries int, delay time.Duration, backoff float64) Option {
	return func(c *Client) {
		c.policy = retryPolicy{maxRetries: maxRetries, delay: delay, backoff: backoff}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the pooled *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAuthScheme selects the authentication header.
func WithAuthScheme(scheme ces.AuthScheme) Option {
	return func(c *Client) {
		c.authScheme = scheme
	}
}

// WithMaxConcurrency bounds the number of in-flight requests.
func WithMaxConcurrency(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.sem = semaphore.NewWeighted(int64(limit))
		}
	}
}

// WithCache caches successful GET responses for ttl.
func WithCache(cache ces.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithInterceptors installs an interceptor chain.
func WithInterceptors(chain *ces.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithAPIPrefix overrides the "/api/" path Send prepends to descriptor paths.
func WithAPIPrefix(prefix string) Option {
	return func(c *Client) {
		c.apiPrefix = prefix
	}
}

// NewClient creates a new HTTP client. tokenManager may be nil for
// unauthenticated use.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	client := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiPrefix:    constants.APIPathPrefix,
		httpClient:   &http.Client{Timeout: constants.DefaultHTTPTimeout},
		tokenManager: tokenManager,
		authScheme:   ces.AuthSchemeBearer,
		userAgent:    constants.DefaultUserAgent,
		sem:          semaphore.NewWeighted(constants.DefaultMaxConcurrentRequests),
		policy: retryPolicy{
			maxRetries: constants.DefaultMaxRetries,
			delay:      constants.DefaultRateLimitDelay,
			backoff:    constants.DefaultRetryBackoff,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	client.logger = ces.LoggerOrNop(client.logger)

	if client.interceptors == nil {
		client.interceptors = ces.NewInterceptorChain()
	}

	client.retry.Store(client.newRetryClient(client.policy))

	return client
}

// SetRetryOptions replaces the retry count and backoff base. Requests
// already in flight keep the previous policy.
func (c *Client) SetRetryOptions(maxRetries int, backoff float64) {
	c.policyMu.Lock()
	defer c.policyMu.Unlock()

	c.policy.maxRetries = maxRetries
	c.policy.backoff = backoff
	c.retry.Store(c.newRetryClient(c.policy))
}

// SetRateLimitDelay replaces the delay before the first retry.
func (c *Client) SetRateLimitDelay(delay time.Duration) {
	c.policyMu.Lock()
	defer c.policyMu.Unlock()

	c.policy.delay = delay
	c.retry.Store(c.newRetryClient(c.policy))
}

func (c *Client) newRetryClient(policy retryPolicy) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = c.httpClient
	client.Logger = nil
	client.RetryMax = max(policy.maxRetries, 0)
	client.RetryWaitMin = policy.delay
	client.RetryWaitMax = policy.wait(max(policy.maxRetries, 0))
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Backoff = func(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
		wait := policy.wait(attemptNum)

		fields := map[string]interface{}{
			"attempt": attemptNum + 1,
			"delay":   wait.String(),
		}

		if resp == nil {
			c.logger.Warn("Connection failed, retrying", fields)

			return wait
		}

		fields["status"] = resp.StatusCode
		fields["url"] = resp.Request.URL.String()

		c.logger.Warn("Rate limited, retrying", fields)

		return wait
	}

	return client
}

// checkRetry retries rate limiting and connection failures only.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return resp.StatusCode == http.StatusTooManyRequests, nil
}

// Send executes a request descriptor against the API root.
func (c *Client) Send(ctx context.Context, desc ces.RequestDescriptor) (*Response, error) {
	err := desc.Validate()
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method: desc.Method,
		Path:   c.apiPrefix + strings.TrimPrefix(desc.Path, "/"),
		NoAuth: desc.NoAuth,
	}

	body, contentType, err := encodeDescriptorBody(desc)
	if err != nil {
		return nil, err
	}

	return c.do(ctx, req, desc.Query.Encode(), body, contentType)
}

func encodeDescriptorBody(desc ces.RequestDescriptor) ([]byte, string, error) {
	switch {
	case desc.JSONBody != nil:
		body, err := json.Marshal(desc.JSONBody)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}

		return body, "application/json", nil
	case len(desc.Body) > 0:
		return []byte(desc.Body.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

// Do performs an HTTP request. The response is returned alongside any
// status error so callers can inspect the body.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var (
		body        []byte
		contentType string
		err         error
	)

	switch {
	case req.Body != nil:
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		contentType = "application/json"
	case len(req.Form) > 0:
		body = []byte(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	return c.do(ctx, req, req.Query.Encode(), body, contentType)
}

func (c *Client) do(ctx context.Context, req *Request, rawQuery string, body []byte, contentType string) (*Response, error) {
	fullURL := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	method := strings.ToUpper(req.Method)
	cacheKey := ces.CacheKey(method, fullURL)

	if cached := c.cached(ctx, method, cacheKey); cached != nil {
		return cached, nil
	}

	err := c.sem.Acquire(ctx, 1)
	if err != nil {
		return nil, &ces.TransportError{Method: method, URL: fullURL, Err: err}
	}
	defer c.sem.Release(1)

	intercepted := &ces.Request{
		Method:   method,
		Path:     req.Path,
		URL:      fullURL,
		Headers:  make(http.Header),
		Body:     body,
		Metadata: make(map[string]interface{}),
	}

	err = c.prepareHeaders(ctx, req, intercepted, contentType)
	if err != nil {
		return nil, err
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if len(intercepted.Body) > 0 {
		rawBody = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, intercepted.URL, rawBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	c.logRequest(intercepted)

	start := time.Now()

	httpResp, err := c.retry.Load().Do(httpReq)
	if err != nil {
		if httpResp != nil {
			_ = httpResp.Body.Close()
		}

		c.logger.Error("HTTP request failed", map[string]interface{}{
			"method": method,
			"url":    intercepted.URL,
			"error":  err.Error(),
		})

		return nil, &ces.TransportError{Method: method, URL: intercepted.URL, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ces.TransportError{Method: method, URL: intercepted.URL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	c.logResponse(intercepted, resp, time.Since(start))

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, resp)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode >= constants.HTTPStatusBadRequest {
		httpErr := ces.NewHTTPError(method, intercepted.URL, resp.StatusCode, respBody)
		resp.Error = httpErr

		return resp, httpErr
	}

	c.store(ctx, method, cacheKey, resp)

	return resp, nil
}

func (c *Client) prepareHeaders(ctx context.Context, req *Request, intercepted *ces.Request, contentType string) error {
	intercepted.Headers.Set("Accept", "application/json")
	intercepted.Headers.Set("User-Agent", c.userAgent)

	if contentType != "" {
		intercepted.Headers.Set("Content-Type", contentType)
	}

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	if req.NoAuth || c.tokenManager == nil {
		return nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	if c.authScheme == ces.AuthSchemeToken {
		intercepted.Headers.Set("AuthToken", token)
	} else {
		intercepted.Headers.Set("Authorization", "Bearer "+token)
	}

	return nil
}

func (c *Client) cached(ctx context.Context, method, key string) *Response {
	if c.cache == nil || method != http.MethodGet {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ces.ErrCacheMiss) && !errors.Is(err, ces.ErrCacheExpired) {
			c.logger.Warn("Cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}

		return nil
	}

	c.logger.Debug("Cache hit", map[string]interface{}{"key": key})

	return &Response{
		StatusCode: http.StatusOK,
		Headers:    http.Header{"X-Cache": []string{"HIT"}},
		Body:       entry.Data,
	}
}

func (c *Client) store(ctx context.Context, method, key string, resp *Response) {
	if c.cache == nil {
		return
	}

	var err error

	if method == http.MethodGet {
		err = c.cache.Set(ctx, key, &ces.CacheEntry{
			Data:      resp.Body,
			ExpiresAt: time.Now().Add(c.cacheTTL),
			ETag:      resp.Headers.Get("ETag"),
		})
	} else {
		err = c.cache.Clear(ctx)
	}

	if err != nil {
		c.logger.Warn("Cache update failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

func (c *Client) logRequest(req *ces.Request) {
	fields := map[string]interface{}{
		"method": req.Method,
		"url":    req.URL,
	}

	if id, ok := req.Metadata["request_id"]; ok {
		fields["request_id"] = id
	}

	if c.debug && len(req.Body) > 0 {
		fields["body"] = string(req.Body)
	}

	c.logger.Debug("HTTP Request", fields)
}

func (c *Client) logResponse(req *ces.Request, resp *Response, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      req.Method,
		"url":         req.URL,
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}

	if id, ok := req.Metadata["request_id"]; ok {
		fields["request_id"] = id
	}

	if c.debug {
		fields["body"] = string(resp.Body)
	}

	c.logger.Debug("HTTP Response", fields)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}
