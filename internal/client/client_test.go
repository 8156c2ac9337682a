package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/ces-client/internal/client"
	"github.com/fivetwenty-io/ces-client/pkg/ces"
)

// pagedHandler serves total records in pages of pageSize under resultList.
func pagedHandler(t *testing.T, total, pageSize int, record func(i int) map[string]interface{}) http.HandlerFunc {
	t.Helper()

	return func(writer http.ResponseWriter, request *http.Request) {
		page, err := strconv.Atoi(request.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}

		items := []map[string]interface{}{}

		for i := (page - 1) * pageSize; i < min(page*pageSize, total); i++ {
			items = append(items, record(i))
		}

		writeJSON(writer, map[string]interface{}{
			"resultList": items,
			"page":       page,
			"pageSize":   pageSize,
			"totalCount": total,
		})
	}
}

func writeJSON(writer http.ResponseWriter, body interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(body)
}

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*ces.Config)) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := &ces.Config{
		BaseURL:        server.URL,
		AccessToken:    "test-token",
		RateLimitDelay: time.Millisecond,
	}

	for _, fn := range mutate {
		fn(config)
	}

	client, err := New(context.Background(), config)
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires config", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), nil)
		require.ErrorIs(t, err, ces.ErrConfigRequired)
	})

	t.Run("requires base URL", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &ces.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base URL is required")
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &ces.Config{
			BaseURL:     "https://ces.example.com",
			AccessToken: "test-token",
		})
		require.NoError(t, err)
		assert.NotNil(t, client.Session())
		assert.NotNil(t, client.GetTokenManager())
		assert.Nil(t, client.Metrics())
	})

	t.Run("creates client without authentication", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &ces.Config{BaseURL: "https://ces.example.com"})
		require.NoError(t, err)
		assert.Nil(t, client.GetTokenManager())
	})

	t.Run("rejects unknown cache type", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &ces.Config{
			BaseURL: "https://ces.example.com",
			Cache:   &ces.CacheConfig{Type: "bogus"},
		})
		require.ErrorIs(t, err, ces.ErrUnsupportedCacheType)
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Account(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/account", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
		writeJSON(writer, map[string]interface{}{"id": 3, "name": "State University", "created": "2023-08-01T12:00:00"})
	})
	mux.HandleFunc("GET /api/terms", pagedHandler(t, 3, 50, func(i int) map[string]interface{} {
		return map[string]interface{}{"id": i + 1, "name": fmt.Sprintf("Term %d", i+1)}
	}))

	client := newTestClient(t, mux)

	account, err := client.GetAccount(context.Background())
	require.NoError(t, err)

	name, err := account.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "State University", name)

	created, err := account.GetTime("created")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC), created)

	terms, err := client.ListTerms(nil)
	require.NoError(t, err)

	count, err := terms.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, terms.PagesFetched())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_ListProjects(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects", func(writer http.ResponseWriter, request *http.Request) {
		requests.Add(1)

		query := request.URL.Query()
		assert.Equal(t, "2", query.Get("projectStatus"))
		assert.Equal(t, "true", query.Get("includeSubaccounts"))
		assert.Empty(t, query.Get("projectType"))

		pagedHandler(t, 237, 100, func(i int) map[string]interface{} {
			status := "Active"
			if i%2 == 1 {
				status = "Closed"
			}

			return map[string]interface{}{"id": i + 1, "title": fmt.Sprintf("Project %d", i+1), "status": status}
		})(writer, request)
	})

	client := newTestClient(t, mux)

	status := 2
	include := true

	projects, err := client.ListProjects(&ces.ProjectListOptions{
		ListOptions: ces.ListOptions{
			Filters: ces.FilterExpression{"status": {"Active"}},
		},
		ProjectStatus:      &status,
		IncludeSubaccounts: &include,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), requests.Load(), "listing is lazy")

	items, err := projects.Items(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 119)
	assert.Equal(t, int32(3), requests.Load())
	assert.True(t, projects.IsComplete())

	title, err := items[0].Title()
	require.NoError(t, err)
	assert.Equal(t, "Project 1", title)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_ProjectChildren(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/42", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]interface{}{"id": 42, "title": "Fall", "startDate": "2024-09-01T00:00:00Z", "endDate": "2024-12-20"})
	})
	mux.HandleFunc("GET /api/projects/42/surveys", pagedHandler(t, 2, 50, func(i int) map[string]interface{} {
		return map[string]interface{}{"id": 100 + i, "surveyId": 7}
	}))
	mux.HandleFunc("GET /api/projects/42/courses/5", pagedHandler(t, 1, 50, func(int) map[string]interface{} {
		return map[string]interface{}{"id": 5, "courseUniqueId": "MATH-101"}
	}))

	client := newTestClient(t, mux)

	project, err := client.GetProject(context.Background(), 42)
	require.NoError(t, err)

	end, err := project.EndDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), end)

	surveys, err := project.Surveys(nil)
	require.NoError(t, err)

	first, err := surveys.Get(context.Background(), 0)
	require.NoError(t, err)

	projectID, err := first.GetInt("projectId")
	require.NoError(t, err)
	assert.Equal(t, int64(42), projectID)

	parent, err := first.ParentProject()
	require.NoError(t, err)
	assert.Same(t, project.Object, parent.Object)

	course, err := project.Course(context.Background(), 5)
	require.NoError(t, err)

	uniqueID, err := course.GetString("courseUniqueId")
	require.NoError(t, err)
	assert.Equal(t, "MATH-101", uniqueID)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Mutations(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/projects", func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		assert.Equal(t, "Spring", request.PostForm.Get("title"))
		assert.Equal(t, "1", request.PostForm.Get("projectType"))
		assert.Equal(t, "2025-01-10T00:00:00Z", request.PostForm.Get("startDate"))
		assert.NotContains(t, request.PostForm, "termId")

		writeJSON(writer, map[string]interface{}{"resultList": []interface{}{map[string]interface{}{"id": 9, "title": "Spring"}}})
	})
	mux.HandleFunc("POST /api/users/metadata-batch", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "alice", request.URL.Query().Get("username"))
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

		var body struct {
			Metadata []ces.MetadataItem `json:"metadata"`
		}

		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		assert.Equal(t, []ces.MetadataItem{{Name: "dept", Value: "math"}}, body.Metadata)

		writeJSON(writer, map[string]interface{}{"username": "alice"})
	})
	mux.HandleFunc("DELETE /api/users/metadata", func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, url.Values{"username": {"alice"}, "name": {"dept"}}, request.URL.Query())
		writer.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/users/administrator", func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		assert.Equal(t, []string{"1", "4"}, request.PostForm["userTypes[]"])
		assert.Equal(t, []string{"root", "science"}, request.PostForm["nodePath[]"])
		assert.NotContains(t, request.PostForm, "password")

		writeJSON(writer, map[string]interface{}{"id": 77, "username": request.PostForm.Get("username")})
	})
	mux.HandleFunc("PUT /api/node/12", func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		assert.Equal(t, "12", request.PostForm.Get("id"))
		assert.Equal(t, "Science", request.PostForm.Get("name"))

		writeJSON(writer, map[string]interface{}{"id": 12, "name": "Science"})
	})
	mux.HandleFunc("POST /api/nodemapper", func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		assert.JSONEq(t, `{"nodeMapper":{"field":"dept"}}`, string(body))

		writeJSON(writer, map[string]interface{}{"id": 3})
	})

	client := newTestClient(t, mux)
	ctx := context.Background()

	project, err := client.CreateProject(ctx, &ces.ProjectCreateRequest{
		Title:       "Spring",
		ProjectType: 1,
		StartDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	id, err := project.ID()
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	_, err = client.SaveUserMetadataBatch(ctx, "alice", []ces.MetadataItem{{Name: "dept", Value: "math"}})
	require.NoError(t, err)

	require.NoError(t, client.RemoveUserMetadata(ctx, "alice", "dept"))

	user, err := client.CreateAdminUser(ctx, &ces.AdminUserRequest{
		Username:  "bob",
		UserTypes: []int{1, 4},
		NodePath:  []string{"root", "science"},
	})
	require.NoError(t, err)

	username, err := user.GetString("username")
	require.NoError(t, err)
	assert.Equal(t, "bob", username)

	_, err = client.UpdateNode(ctx, 12, &ces.NodeRequest{ParentID: 1, AccountID: 3, Name: "Science"})
	require.NoError(t, err)

	_, err = client.CreateNodeMapper(ctx, map[string]interface{}{"field": "dept"})
	require.NoError(t, err)
}

func TestClient_Validation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.NotFoundHandler())
	ctx := context.Background()

	_, err := client.CreateProject(ctx, &ces.ProjectCreateRequest{
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ces.ErrInvalidRequest)

	_, err = client.CreateAdminUser(ctx, &ces.AdminUserRequest{Email: "not-an-email"})
	require.ErrorIs(t, err, ces.ErrInvalidRequest)

	_, err = client.CreateNode(ctx, &ces.NodeRequest{})
	require.ErrorIs(t, err, ces.ErrInvalidRequest)
}

func TestClient_Checks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/hasInProgressSurvey", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]interface{}{"result": request.URL.Query().Get("username") == "alice"})
	})
	mux.HandleFunc("GET /api/users/hasGradeBlock", func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]interface{}{"unexpected": true})
	})

	client := newTestClient(t, mux)

	busy, err := client.UserHasInProgressSurvey(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, busy)

	busy, err = client.UserHasInProgressSurvey(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, busy)

	_, err = client.UserHasGradeBlock(context.Background(), "alice")
	require.ErrorIs(t, err, ces.ErrUnexpectedResponse)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/surveys/404", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/nodes/1", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(writer, "Rate Limit Exceeded")
	})

	client := newTestClient(t, mux)

	_, err := client.GetSurvey(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, ces.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, ces.StatusCode(err))

	_, err = client.GetNode(context.Background(), 1)
	require.ErrorIs(t, err, ces.ErrRateLimitExceeded)
}

func TestClient_CacheAndMetrics(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses/8", func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
		assert.NotEmpty(t, request.Header.Get("X-Request-ID"))
		writeJSON(writer, map[string]interface{}{"id": 8})
	})

	registry := prometheus.NewRegistry()

	client := newTestClient(t, mux, func(config *ces.Config) {
		config.Cache = ces.DefaultCacheConfig()
		config.MetricsRegisterer = registry
	})

	for range 3 {
		_, err := client.GetCourse(context.Background(), 8)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), hits.Load())
	require.NotNil(t, client.Metrics())

	count, err := testutil.GatherAndCount(registry, "ces_client_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// trackedCache is a shared backend that records whether it was closed.
type trackedCache struct {
	*ces.MemoryCache

	closed atomic.Bool
}

func (c *trackedCache) Close() error {
	c.closed.Store(true)

	return nil
}

func TestClient_TieredCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/courses/8", func(writer http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(writer, map[string]interface{}{"id": 8})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	shared := &trackedCache{MemoryCache: ces.NewMemoryCache(10)}

	newClient := func() *Client {
		client, err := New(context.Background(), &ces.Config{
			BaseURL:     server.URL,
			AccessToken: "test-token",
			Cache: &ces.CacheConfig{
				Shared: shared,
				Near:   &ces.MemoryCacheConfig{MaxSize: 10},
			},
		})
		require.NoError(t, err)

		return client
	}

	first := newClient()

	_, err := first.GetCourse(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, 1, shared.Len())

	// A second client reads the shared tier instead of the API.
	second := newClient()

	course, err := second.GetCourse(context.Background(), 8)
	require.NoError(t, err)

	id, err := course.ID()
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.Equal(t, int32(1), hits.Load())

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
	assert.False(t, shared.closed.Load())
}

func TestClient_RetryTuning(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/account", func(writer http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		writer.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, mux)
	client.SetRetryOptions(1, 1)
	client.SetRateLimitDelay(time.Millisecond)

	_, err := client.GetAccount(context.Background())
	require.ErrorIs(t, err, ces.ErrTooManyRequests)
	assert.Equal(t, int32(2), attempts.Load())
}
