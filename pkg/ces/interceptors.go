package ces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// Request represents an outgoing HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	URL      string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// Merge appends the interceptors of other after those already in the chain.
func (c *InterceptorChain) Merge(other *InterceptorChain) {
	if other == nil {
		return
	}

	c.requestInterceptors = append(c.requestInterceptors, other.requestInterceptors...)
	c.responseInterceptors = append(c.responseInterceptors, other.responseInterceptors...)
}

// Len returns the number of registered interceptors.
func (c *InterceptorChain) Len() int {
	return len(c.requestInterceptors) + len(c.responseInterceptors)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method":     req.Method,
			"path":       req.Path,
			"request_id": req.Metadata["request_id"],
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("API Response Error", fields)
		} else {
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// RateLimitInterceptor implements client-side rate limiting with a token bucket.
func RateLimitInterceptor(requestsPerSecond float64, burst int) RequestInterceptor {
	if burst < 1 {
		burst = 1
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(ctx context.Context, req *Request) error {
		err := limiter.Wait(ctx)
		if err != nil {
			return fmt.Errorf("waiting for rate limiter: %w", err)
		}

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// RequestIDInterceptor tags each request with a fresh X-Request-ID unless
// one is already set.
func RequestIDInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		id := req.Headers.Get(constants.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			req.Headers.Set(constants.RequestIDHeader, id)
		}

		req.Metadata["request_id"] = id

		return nil
	}
}

// PrometheusMetrics records request counts and latencies.
type PrometheusMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// A nil reg uses the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metrics := &PrometheusMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ces",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "API requests by method and response status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ces",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "API request latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	err := reg.Register(metrics.requests)
	if err != nil {
		already := prometheus.AlreadyRegisteredError{}
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("registering request counter: %w", err)
		}

		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("registering request counter: %w", err)
		}

		metrics.requests = existing
	}

	err = reg.Register(metrics.duration)
	if err != nil {
		already := prometheus.AlreadyRegisteredError{}
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("registering duration histogram: %w", err)
		}

		existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("registering duration histogram: %w", err)
		}

		metrics.duration = existing
	}

	return metrics, nil
}

// RequestInterceptor records the request start time.
func (m *PrometheusMetrics) RequestInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata["start_time"] = time.Now()

		return nil
	}
}

// ResponseInterceptor observes the outcome and latency.
func (m *PrometheusMetrics) ResponseInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		status := "error"
		if resp.StatusCode > 0 {
			status = strconv.Itoa(resp.StatusCode)
		}

		m.requests.WithLabelValues(req.Method, status).Inc()

		if startTime, ok := req.Metadata["start_time"].(time.Time); ok {
			m.duration.WithLabelValues(req.Method).Observe(time.Since(startTime).Seconds())
		}

		return nil
	}
}

// Install adds both interceptors to chain.
func (m *PrometheusMetrics) Install(chain *InterceptorChain) {
	chain.AddRequestInterceptor(m.RequestInterceptor())
	chain.AddResponseInterceptor(m.ResponseInterceptor())
}
