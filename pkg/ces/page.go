package ces

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// PageEnvelope is one decoded page of a list response.
type PageEnvelope struct {
	Items    []*Record
	Page     *int
	PageSize *int
	Total    *int
	// Next is the descriptor of the following page, nil once exhausted.
	Next *RequestDescriptor
}

// HasMore reports whether another page should be requested.
func (e *PageEnvelope) HasMore() bool {
	return e.Next != nil
}

// PageFetcher requests single pages and decodes their envelopes.
type PageFetcher struct {
	transport Transport
	rootKey   string
}

// PageFetcherOption configures a PageFetcher.
type PageFetcherOption func(*PageFetcher)

// WithRootKey sets the envelope key holding the items. An empty key means the
// body is a bare JSON array.
func WithRootKey(key string) PageFetcherOption {
	return func(f *PageFetcher) {
		f.rootKey = key
	}
}

// NewPageFetcher creates a fetcher using the "resultList" root key by default.
func NewPageFetcher(transport Transport, opts ...PageFetcherOption) *PageFetcher {
	fetcher := &PageFetcher{
		transport: transport,
		rootKey:   constants.DefaultRootKey,
	}

	for _, opt := range opts {
		opt(fetcher)
	}

	return fetcher
}

// RootKey returns the configured root key.
func (f *PageFetcher) RootKey() string {
	return f.rootKey
}

// FetchPage sends req and decodes the page. Items are returned as received;
// date coercion and filtering belong to the collection.
func (f *PageFetcher) FetchPage(ctx context.Context, req RequestDescriptor) (*PageEnvelope, error) {
	resp, err := f.transport.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", req, err)
	}

	envelope, err := DecodePage(resp.Body, f.rootKey)
	if err != nil {
		return nil, fmt.Errorf("decoding page %s: %w", req, err)
	}

	if hasMore(envelope) {
		next := nextPage(req, *envelope.Page)
		envelope.Next = &next
	}

	return envelope, nil
}

// hasMore treats a full page as a sign that more data follows. A last page
// that is exactly full costs one extra request which comes back short.
func hasMore(envelope *PageEnvelope) bool {
	return envelope.PageSize != nil &&
		envelope.Page != nil &&
		len(envelope.Items) > 0 &&
		*envelope.PageSize == len(envelope.Items)
}

func nextPage(req RequestDescriptor, servedPage int) RequestDescriptor {
	next := servedPage + 1

	if requested, ok := req.Page(); ok && next <= requested {
		next = requested + 1
	}

	return req.WithPage(next)
}

// DecodePage decodes a page body.
func DecodePage(body []byte, rootKey string) (*PageEnvelope, error) {
	if rootKey == "" {
		items, err := decodeItems(body)
		if err != nil {
			return nil, err
		}

		return &PageEnvelope{Items: items}, nil
	}

	var fields map[string]json.RawMessage

	err := json.Unmarshal(body, &fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	rawItems, ok := fields[rootKey]
	if !ok {
		return nil, &MissingRootKeyError{RootKey: rootKey}
	}

	items, err := decodeItems(rawItems)
	if err != nil {
		return nil, err
	}

	envelope := &PageEnvelope{
		Items:    items,
		Page:     intField(fields, "page"),
		PageSize: intField(fields, "pageSize"),
		Total:    intField(fields, "totalCount"),
	}

	if envelope.Total == nil {
		envelope.Total = intField(fields, "total")
	}

	return envelope, nil
}

func decodeItems(raw []byte) ([]*Record, error) {
	if isJSONNull(raw) {
		return nil, nil
	}

	var rawItems []json.RawMessage

	err := json.Unmarshal(raw, &rawItems)
	if err != nil {
		return nil, fmt.Errorf("%w: items: %w", ErrUnexpectedResponse, err)
	}

	items := make([]*Record, 0, len(rawItems))

	for i, rawItem := range rawItems {
		if isJSONNull(rawItem) {
			continue
		}

		record := &Record{}

		err = record.UnmarshalJSON(rawItem)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		items = append(items, record)
	}

	return items, nil
}

// DecodeRecord decodes a single-object response body.
func DecodeRecord(body []byte) (*Record, error) {
	record := &Record{}

	err := record.UnmarshalJSON(body)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func intField(fields map[string]json.RawMessage, key string) *int {
	raw, ok := fields[key]
	if !ok || isJSONNull(raw) {
		return nil
	}

	var number json.Number

	err := json.Unmarshal(raw, &number)
	if err != nil {
		var text string
		if json.Unmarshal(raw, &text) != nil {
			return nil
		}

		number = json.Number(text)
	}

	value, err := strconv.Atoi(number.String())
	if err != nil {
		return nil
	}

	return &value
}

func isJSONNull(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
