package ces_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := ces.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	req := &ces.Request{
		Method: http.MethodGet,
		Path:   "/api/projects",
	}

	err := chain.ExecuteRequestInterceptors(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
	assert.Equal(t, 2, chain.Len())
}

func TestInterceptorChain_ResponseInterceptors(t *testing.T) {
	t.Parallel()

	chain := ces.NewInterceptorChain()
	ctx := context.Background()

	var executionOrder []string

	chain.AddResponseInterceptor(func(ctx context.Context, req *ces.Request, resp *ces.Response) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})

	chain.AddResponseInterceptor(func(ctx context.Context, req *ces.Request, resp *ces.Response) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteResponseInterceptors(ctx, &ces.Request{}, &ces.Response{StatusCode: http.StatusOK})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := ces.NewInterceptorChain()
	boom := errors.New("boom")
	called := false

	chain.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		return boom
	})

	chain.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		called = true

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &ces.Request{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, called)
}

func TestInterceptorChain_Merge(t *testing.T) {
	t.Parallel()

	var order []string

	base := ces.NewInterceptorChain()
	base.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		order = append(order, "base")

		return nil
	})

	user := ces.NewInterceptorChain()
	user.AddRequestInterceptor(func(ctx context.Context, req *ces.Request) error {
		order = append(order, "user")

		return nil
	})
	user.AddResponseInterceptor(func(ctx context.Context, req *ces.Request, resp *ces.Response) error {
		return nil
	})

	base.Merge(user)
	base.Merge(nil)

	assert.Equal(t, 3, base.Len())

	require.NoError(t, base.ExecuteRequestInterceptors(context.Background(), &ces.Request{}))
	assert.Equal(t, []string{"base", "user"}, order)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := ces.HeaderInterceptor(map[string]string{
		"X-Custom-Header": "custom-value",
		"X-Request-ID":    "123456",
	})

	req := &ces.Request{Method: http.MethodGet, Path: "/api/terms"}

	err := interceptor(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "custom-value", req.Headers.Get("X-Custom-Header"))
	assert.Equal(t, "123456", req.Headers.Get("X-Request-ID"))
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := ces.RequestIDInterceptor()

	req := &ces.Request{Method: http.MethodGet}
	require.NoError(t, interceptor(context.Background(), req))

	id := req.Headers.Get("X-Request-ID")
	assert.Len(t, id, 36)
	assert.Equal(t, id, req.Metadata["request_id"])

	// An existing ID is kept.
	preset := &ces.Request{Headers: http.Header{"X-Request-Id": []string{"abc"}}}
	require.NoError(t, interceptor(context.Background(), preset))
	assert.Equal(t, "abc", preset.Headers.Get("X-Request-ID"))
	assert.Equal(t, "abc", preset.Metadata["request_id"])
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := ces.RateLimitInterceptor(20, 1)
	ctx := context.Background()

	start := time.Now()

	for range 3 {
		require.NoError(t, interceptor(ctx, &ces.Request{}))
	}

	// One token up front, then 50ms per request.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRateLimitInterceptor_Cancelled(t *testing.T) {
	t.Parallel()

	interceptor := ces.RateLimitInterceptor(0.001, 1)
	ctx := context.Background()

	// The first request takes the only token.
	require.NoError(t, interceptor(ctx, &ces.Request{}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	err := interceptor(cancelled, &ces.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for rate limiter")
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	ctx := context.Background()
	req := &ces.Request{Method: http.MethodGet, Path: "/api/projects", Metadata: map[string]interface{}{"request_id": "r1"}}

	require.NoError(t, ces.LoggingInterceptor(logger)(ctx, req))
	require.NoError(t, ces.LoggingResponseInterceptor(logger)(ctx, req, &ces.Response{StatusCode: http.StatusOK}))
	require.NoError(t, ces.LoggingResponseInterceptor(logger)(ctx, req, &ces.Response{
		StatusCode: http.StatusNotFound,
		Error:      ces.ErrNotFound,
	}))

	debug := logger.at("debug")
	require.Len(t, debug, 2)
	assert.Equal(t, "r1", debug[0].fields["request_id"])
	assert.Equal(t, http.StatusOK, debug[1].fields["status_code"])

	errorsLogged := logger.at("error")
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "not found", errorsLogged[0].fields["error"])
}

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	metrics, err := ces.NewPrometheusMetrics(registry)
	require.NoError(t, err)

	chain := ces.NewInterceptorChain()
	metrics.Install(chain)

	ctx := context.Background()

	for _, status := range []int{http.StatusOK, http.StatusOK, http.StatusNotFound, 0} {
		req := &ces.Request{Method: http.MethodGet}

		require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
		require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &ces.Response{StatusCode: status}))
	}

	expected := `
# HELP ces_client_requests_total API requests by method and response status.
# TYPE ces_client_requests_total counter
ces_client_requests_total{method="GET",status="200"} 2
ces_client_requests_total{method="GET",status="404"} 1
ces_client_requests_total{method="GET",status="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "ces_client_requests_total"))

	count, err := testutil.GatherAndCount(registry, "ces_client_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Registering twice reuses the existing collectors.
	again, err := ces.NewPrometheusMetrics(registry)
	require.NoError(t, err)
	require.NotNil(t, again)
}
