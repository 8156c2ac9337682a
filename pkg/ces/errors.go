package ces

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// HTTP error kinds. Every *HTTPError unwraps to exactly one of these.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrTooManyRequests     = errors.New("too many requests after all retries")
	ErrHTTPStatus          = errors.New("unexpected HTTP status")
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired     = errors.New("config is required")
	ErrBaseURLRequired    = errors.New("base URL is required")
	ErrInvalidBaseURL     = errors.New("invalid base URL")
	ErrUnsupportedMethod  = errors.New("unsupported HTTP method")
	ErrMissingRootKey     = errors.New("root key missing from response")
	ErrNoSuchField        = errors.New("no such field")
	ErrFieldType          = errors.New("field has unexpected type")
	ErrDateParse          = errors.New("unparseable date")
	ErrNoAncestor         = errors.New("no ancestor of requested kind")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrNotSingleRecord    = errors.New("field access requires exactly one record")
	ErrUnknownEndpoint    = errors.New("unknown endpoint")
	ErrPathArgs           = errors.New("wrong number of path arguments")
	ErrNotPaginated       = errors.New("endpoint is not paginated")
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// HTTPError is returned for any response with status >= 400.
type HTTPError struct {
	StatusCode int
	Method     string
	URL        string
	Body       []byte
	kind       error
}

// NewHTTPError classifies a failed response.
func NewHTTPError(method, url string, statusCode int, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Method:     method,
		URL:        url,
		Body:       body,
		kind:       classifyStatus(statusCode, body),
	}
}

func classifyStatus(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		if strings.Contains(string(body), constants.RateLimitExceededMarker) {
			return ErrRateLimitExceeded
		}

		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	default:
		return ErrHTTPStatus
	}
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.kind)

	body := strings.TrimSpace(string(e.Body))
	if body != "" {
		msg += ": " + body
	}

	return msg
}

// Unwrap returns the error kind so errors.Is works against the sentinels.
func (e *HTTPError) Unwrap() error {
	return e.kind
}

// TransportError is returned when no HTTP response was obtained.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// MissingRootKeyError reports a page body without the configured root key.
type MissingRootKeyError struct {
	RootKey string
}

// Error implements the error interface.
func (e *MissingRootKeyError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingRootKey, e.RootKey)
}

// Unwrap returns ErrMissingRootKey.
func (e *MissingRootKeyError) Unwrap() error {
	return ErrMissingRootKey
}

// DateParseError reports a date field whose value could not be parsed.
type DateParseError struct {
	Field string
	Value interface{}
	Err   error
}

// Error implements the error interface.
func (e *DateParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: field %q value %v: %v", ErrDateParse, e.Field, e.Value, e.Err)
	}

	return fmt.Sprintf("%s: field %q value %v", ErrDateParse, e.Field, e.Value)
}

// Unwrap allows matching against ErrDateParse.
func (e *DateParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDateParse}
	}

	return []error{ErrDateParse, e.Err}
}

// FieldError reports access to an absent or mistyped field.
type FieldError struct {
	Kind  Kind
	Field string
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("%s: %q", e.Err, e.Field)
	}

	return fmt.Sprintf("%s %s: %q", e.Kind, e.Err, e.Field)
}

// Unwrap returns the underlying sentinel.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsRateLimited reports whether the server refused the request for rate limiting,
// either with a 403 marker or a 429 that outlived every retry.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrTooManyRequests)
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	httpErr := &HTTPError{}
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}

	return 0
}
