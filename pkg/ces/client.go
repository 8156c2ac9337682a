package ces

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthScheme selects how the access token is sent.
type AuthScheme string

const (
	// AuthSchemeBearer sends "Authorization: Bearer <token>".
	AuthSchemeBearer AuthScheme = "bearer"
	// AuthSchemeToken sends "AuthToken: <token>".
	AuthSchemeToken AuthScheme = "token"
)

// AccountClient covers the account level endpoints.
type AccountClient interface {
	GetAccount(ctx context.Context) (*Account, error)
	ListSubaccounts(opts *ListOptions) (*Collection[*Account], error)
	ListTerms(opts *ListOptions) (*Collection[*Term], error)
}

// UsersClient covers users, administrators and user metadata.
type UsersClient interface {
	UserHasInProgressSurvey(ctx context.Context, username string) (bool, error)
	UserHasGradeBlock(ctx context.Context, username string) (bool, error)
	ListUsers(opts *UserListOptions) (*Collection[*User], error)
	ListUserMetadata(username string, opts *ListOptions) (*Collection[*Metadata], error)
	SaveUserMetadata(ctx context.Context, username, name, value string) (*Metadata, error)
	SaveUserMetadataBatch(ctx context.Context, username string, items []MetadataItem) (*Metadata, error)
	RemoveUserMetadata(ctx context.Context, username, name string) error
	CreateAdminUser(ctx context.Context, req *AdminUserRequest) (*User, error)
	UpdateAdminUser(ctx context.Context, req *AdminUserRequest) (*User, error)
}

// SurveysClient covers survey definitions.
type SurveysClient interface {
	ListSurveys(opts *ListOptions) (*Collection[*Survey], error)
	GetSurvey(ctx context.Context, surveyID int64) (*Survey, error)
}

// ProjectsClient covers evaluation projects.
type ProjectsClient interface {
	ListProjects(opts *ProjectListOptions) (*Collection[*Project], error)
	GetProject(ctx context.Context, projectID int64) (*Project, error)
	CreateProject(ctx context.Context, req *ProjectCreateRequest) (*Project, error)
}

// CoursesClient covers course sections.
type CoursesClient interface {
	ListCourses(opts *ListOptions) (*Collection[*Course], error)
	GetCourse(ctx context.Context, courseID int64) (*Course, error)
	GetCourseByUniqueID(ctx context.Context, uniqueID string) (*Course, error)
}

// NodesClient covers the account hierarchy and node mappers.
type NodesClient interface {
	ListNodes(opts *ListOptions) (*Collection[*Node], error)
	GetNode(ctx context.Context, nodeID int64) (*Node, error)
	CreateNode(ctx context.Context, req *NodeRequest) (*Node, error)
	UpdateNode(ctx context.Context, nodeID int64, req *NodeRequest) (*Node, error)
	DeleteNode(ctx context.Context, nodeID int64) error
	GetNodeMapper(ctx context.Context, nodeMapperID int64) (*NodeMapper, error)
	CreateNodeMapper(ctx context.Context, mapper map[string]interface{}) (*NodeMapper, error)
	UpdateNodeMapper(ctx context.Context, nodeMapperID int64, mapper map[string]interface{}) (*NodeMapper, error)
	DeleteNodeMapper(ctx context.Context, nodeMapperID int64) error
}

// RetryTuner adjusts the retry policy of a live client.
type RetryTuner interface {
	SetRetryOptions(maxRetries int, backoff float64)
	SetRateLimitDelay(delay time.Duration)
}

// Client is the CES API client.
type Client interface {
	AccountClient
	UsersClient
	SurveysClient
	ProjectsClient
	CoursesClient
	NodesClient
	RetryTuner

	// Session exposes the endpoint table executor for calls not covered above.
	Session() *Session

	// Close releases cache backend connections.
	Close() error
}

// Config represents client configuration for building a ces.Client.
//
// # Authentication
//
// AccessToken is sent on every request. AuthScheme chooses the header:
// "bearer" (the default) sends Authorization: Bearer, "token" sends the
// AuthToken header some CES deployments expect.
//
// # Retries
//
// Only HTTP 429 and connection failures are retried. The wait before retry n
// (starting at 0) is RateLimitDelay * RetryBackoff^n. MaxRetries of 0 selects
// the default of 3; a negative value disables retries.
type Config struct {
	// BaseURL: site root, e.g. "https://school.evaluationkit.com". cesclient.New
	// trims spaces and a trailing slash. It must not include the "api/" path.
	BaseURL string `mapstructure:"base_url" validate:"required,url" yaml:"base_url"`

	AccessToken string     `mapstructure:"access_token" yaml:"access_token"`
	AuthScheme  AuthScheme `mapstructure:"auth_scheme"  validate:"omitempty,oneof=bearer token" yaml:"auth_scheme"`

	MaxRetries     int           `mapstructure:"max_retries"      validate:"gte=-1"                yaml:"max_retries"`
	RetryBackoff   float64       `mapstructure:"retry_backoff"    validate:"omitempty,gte=1"       yaml:"retry_backoff"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay" validate:"gte=0"                 yaml:"rate_limit_delay"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"     validate:"gte=0"                 yaml:"http_timeout"`

	// MaxConcurrentRequests caps in-flight requests across the client.
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests" validate:"gte=0" yaml:"max_concurrent_requests"`
	// BulkFetchSize > 1 makes collections fetch pages in concurrent batches.
	BulkFetchSize int `mapstructure:"bulk_fetch_size" validate:"gte=0" yaml:"bulk_fetch_size"`
	// RequestsPerSecond > 0 installs a client side rate limiter.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0" yaml:"requests_per_second"`

	RootKey   string `mapstructure:"root_key"   yaml:"root_key"`
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
	Debug     bool   `mapstructure:"debug"      yaml:"debug"`

	// Cache enables response caching of GET requests. Nil disables it.
	Cache *CacheConfig `mapstructure:"cache" yaml:"cache,omitempty"`

	Logger            Logger                `mapstructure:"-" yaml:"-"`
	MetricsRegisterer prometheus.Registerer `mapstructure:"-" yaml:"-"`
	Interceptors      *InterceptorChain     `mapstructure:"-" yaml:"-"`
}
