package ces

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// RequestDescriptor describes one API call. It is a value: modifiers return
// copies, so a descriptor handed to a Transport is never mutated afterwards.
type RequestDescriptor struct {
	// Method is the HTTP verb.
	Method string
	// Path is relative to the API root, e.g. "projects/12/surveys".
	Path string
	// Query holds the query string parameters.
	Query Params
	// Body is sent form-encoded when JSONBody is nil.
	Body Params
	// JSONBody, when set, is sent as application/json.
	JSONBody interface{}
	// NoAuth suppresses the authentication header.
	NoAuth bool
}

// NewRequest creates a descriptor for method and path.
func NewRequest(method, path string) RequestDescriptor {
	return RequestDescriptor{Method: strings.ToUpper(method), Path: strings.TrimPrefix(path, "/")}
}

// Validate checks the method is supported.
func (d RequestDescriptor) Validate() error {
	switch d.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, d.Method)
	}
}

// WithParam returns a copy with a query parameter set.
func (d RequestDescriptor) WithParam(key string, value interface{}) RequestDescriptor {
	d.Query = d.Query.With(key, value)

	return d
}

// WithQuery returns a copy with params merged into the query.
func (d RequestDescriptor) WithQuery(params Params) RequestDescriptor {
	d.Query = d.Query.Merge(params)

	return d
}

// WithBody returns a copy with a form body.
func (d RequestDescriptor) WithBody(params Params) RequestDescriptor {
	d.Body = params.Clone()

	return d
}

// WithJSON returns a copy with a JSON body.
func (d RequestDescriptor) WithJSON(body interface{}) RequestDescriptor {
	d.JSONBody = body

	return d
}

// WithPage returns a copy requesting the given page.
func (d RequestDescriptor) WithPage(page int) RequestDescriptor {
	return d.WithParam("page", page)
}

// Page returns the requested page number, if any.
func (d RequestDescriptor) Page() (int, bool) {
	value, ok := d.Query.Get("page")
	if !ok {
		return 0, false
	}

	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case string:
		page, err := strconv.Atoi(typed)

		return page, err == nil
	default:
		return 0, false
	}
}

// String renders the descriptor for logs.
func (d RequestDescriptor) String() string {
	if len(d.Query) == 0 {
		return d.Method + " " + d.Path
	}

	return d.Method + " " + d.Path + "?" + d.Query.Encode()
}

// Response is a raw HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// Transport executes request descriptors. Implementations handle
// authentication, retries and status classification.
type Transport interface {
	Send(ctx context.Context, req RequestDescriptor) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req RequestDescriptor) (*Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req RequestDescriptor) (*Response, error) {
	return f(ctx, req)
}
