package ces

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// ErrDetached is returned when a chained call is made on an object that was
// built without a session.
var ErrDetached = errors.New("object is not attached to a session")

// Wrapper turns a generic Object into a typed resource.
type Wrapper[T any] func(*Object) T

// ListOptions tunes a list call.
type ListOptions struct {
	// Filters are applied client side to every page.
	Filters FilterExpression
	// Params are sent as query parameters.
	Params Params
	// Extra fields are stamped onto every record.
	Extra Params
}

func (o *ListOptions) withExtra(extra Params) *ListOptions {
	out := &ListOptions{}
	if o != nil {
		*out = *o
	}

	out.Extra = out.Extra.Merge(extra)

	return out
}

// Call carries the parameters of a non-list call.
type Call struct {
	Query Params
	Body  Params
	JSON  interface{}
}

// Session executes endpoint table entries over a Transport.
type Session struct {
	transport Transport
	logger    Logger
	rootKey   string
	bulk      int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger handed to collections.
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithSessionRootKey overrides the envelope root key.
func WithSessionRootKey(rootKey string) SessionOption {
	return func(s *Session) {
		s.rootKey = rootKey
	}
}

// WithSessionBulkFetch enables concurrent page batches for every list.
func WithSessionBulkFetch(batchSize int) SessionOption {
	return func(s *Session) {
		s.bulk = batchSize
	}
}

// NewSession creates a session over transport.
func NewSession(transport Transport, opts ...SessionOption) *Session {
	session := &Session{
		transport: transport,
		rootKey:   constants.DefaultRootKey,
	}

	for _, opt := range opts {
		opt(session)
	}

	session.logger = LoggerOrNop(session.logger)

	return session
}

// Transport returns the underlying transport.
func (s *Session) Transport() Transport {
	return s.transport
}

// PageFetcher returns a fetcher sharing the session's transport and root key.
func (s *Session) PageFetcher() *PageFetcher {
	return NewPageFetcher(s.transport, WithRootKey(s.rootKey))
}

// Descriptor resolves an endpoint and builds its request.
func (s *Session) Descriptor(name EndpointName, pathArgs ...interface{}) (Endpoint, RequestDescriptor, error) {
	endpoint, err := LookupEndpoint(name)
	if err != nil {
		return Endpoint{}, RequestDescriptor{}, err
	}

	req, err := endpoint.Descriptor(pathArgs...)
	if err != nil {
		return Endpoint{}, RequestDescriptor{}, err
	}

	return endpoint, req, nil
}

// Exec sends a call and returns the raw response.
func (s *Session) Exec(ctx context.Context, name EndpointName, call *Call, pathArgs ...interface{}) (*Response, error) {
	_, req, err := s.Descriptor(name, pathArgs...)
	if err != nil {
		return nil, err
	}

	if call != nil {
		req = req.WithQuery(call.Query)
		if len(call.Body) > 0 {
			req = req.WithBody(call.Body)
		}

		if call.JSON != nil {
			req = req.WithJSON(call.JSON)
		}
	}

	resp, err := s.transport.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return resp, nil
}

// Check sends a call whose response is {"result": bool}.
func (s *Session) Check(ctx context.Context, name EndpointName, call *Call, pathArgs ...interface{}) (bool, error) {
	resp, err := s.Exec(ctx, name, call, pathArgs...)
	if err != nil {
		return false, err
	}

	record, err := DecodeRecord(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}

	result, err := NewObject(KindRecord, record, nil, s).GetBool("result")
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", name, ErrUnexpectedResponse, err)
	}

	return result, nil
}

// List builds a lazy collection over a paginated endpoint. Nothing is
// fetched until the collection is read.
func List[T any](s *Session, name EndpointName, wrap Wrapper[T], parent *Object, opts *ListOptions, pathArgs ...interface{}) (*Collection[T], error) {
	endpoint, req, err := s.Descriptor(name, pathArgs...)
	if err != nil {
		return nil, err
	}

	if !endpoint.Paginated || endpoint.Method != http.MethodGet {
		return nil, fmt.Errorf("%w: %s", ErrNotPaginated, name)
	}

	collectionOpts := []CollectionOption{
		WithCollectionLogger(s.logger),
		WithBulkFetch(s.bulk),
	}

	if opts != nil {
		req = req.WithQuery(opts.Params)

		if len(opts.Filters) > 0 {
			collectionOpts = append(collectionOpts, WithFilters(opts.Filters))
		}

		if len(opts.Extra) > 0 {
			collectionOpts = append(collectionOpts, WithExtraAttribs(opts.Extra))
		}
	}

	mapper := func(record *Record) T {
		return wrap(NewObject(endpoint.Kind, record, parent, s))
	}

	return NewCollection(mapper, s.PageFetcher(), req, collectionOpts...), nil
}

// Fetch performs a non-list call and wraps the returned object. Bodies that
// arrive inside a one-element envelope are unwrapped.
func Fetch[T any](ctx context.Context, s *Session, name EndpointName, wrap Wrapper[T], parent *Object, call *Call, pathArgs ...interface{}) (T, error) {
	var zero T

	endpoint, err := LookupEndpoint(name)
	if err != nil {
		return zero, err
	}

	resp, err := s.Exec(ctx, name, call, pathArgs...)
	if err != nil {
		return zero, err
	}

	record := &Record{}

	if !isJSONNull(resp.Body) {
		record, err = s.decodeObject(resp.Body)
		if err != nil {
			return zero, fmt.Errorf("%s: %w", name, err)
		}
	}

	return wrap(NewObject(endpoint.Kind, record, parent, s)), nil
}

func (s *Session) decodeObject(body []byte) (*Record, error) {
	record, err := DecodeRecord(body)
	if err != nil {
		return nil, err
	}

	if _, enveloped := record.Get(s.rootKey); !enveloped || s.rootKey == "" {
		err = record.CoerceDates()
		if err != nil {
			return nil, err
		}

		return record, nil
	}

	envelope, err := DecodePage(body, s.rootKey)
	if err != nil {
		return nil, err
	}

	if len(envelope.Items) != 1 {
		return nil, fmt.Errorf("%w: envelope holds %d records", ErrNotSingleRecord, len(envelope.Items))
	}

	record = envelope.Items[0]

	err = record.CoerceDates()
	if err != nil {
		return nil, err
	}

	return record, nil
}

// listChildren lists a sub-resource of parent, passing the parent id as the
// first path argument and stamping it onto every record as idField.
func listChildren[T any](parent *Object, name EndpointName, wrap Wrapper[T], idField string, opts *ListOptions, extraArgs ...interface{}) (*Collection[T], error) {
	if parent.session == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrDetached)
	}

	id, err := parent.ID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return List(parent.session, name, wrap, parent, opts.withExtra(P(idField, id)), append([]interface{}{id}, extraArgs...)...)
}
