package ces

import (
	"context"
	"fmt"
	"io"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/ces-client/internal/constants"
)

// ContentMapper turns an ingested record into the collection's element type.
type ContentMapper[T any] func(record *Record) T

// CollectionOption configures a Collection.
type CollectionOption func(*collectionSettings)

type collectionSettings struct {
	filters FilterExpression
	extra   Params
	logger  Logger
	bulk    int
}

// WithFilters applies a filter expression to every ingested page.
func WithFilters(filters FilterExpression) CollectionOption {
	return func(s *collectionSettings) {
		s.filters = filters
	}
}

// WithExtraAttribs stamps fields onto every record before filtering. Values
// override fields of the same name in the payload.
func WithExtraAttribs(extra Params) CollectionOption {
	return func(s *collectionSettings) {
		s.extra = s.extra.Merge(extra)
	}
}

// WithCollectionLogger sets the logger used for filter warnings.
func WithCollectionLogger(logger Logger) CollectionOption {
	return func(s *collectionSettings) {
		s.logger = logger
	}
}

// WithBulkFetch makes MaterializeAll request pages concurrently, batchSize
// pages at a time, after the first page has been read on its own.
// A batchSize below 2 keeps sequential fetching.
func WithBulkFetch(batchSize int) CollectionOption {
	return func(s *collectionSettings) {
		s.bulk = batchSize
	}
}

// Collection is a lazily fetched, memoized list of API results. Nothing is
// requested until the collection is first read; pages are then fetched in
// order and never fetched twice. A Collection is not safe for concurrent use.
type Collection[T any] struct {
	mapper   ContentMapper[T]
	fetcher  *PageFetcher
	next     *RequestDescriptor
	settings collectionSettings
	records  []*Record
	items    []T
	pages    int
	warned   map[string]bool
}

// NewCollection creates a collection starting at first. The first request
// asks for page 1 unless first already names a page.
func NewCollection[T any](mapper ContentMapper[T], fetcher *PageFetcher, first RequestDescriptor, opts ...CollectionOption) *Collection[T] {
	settings := collectionSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	settings.logger = LoggerOrNop(settings.logger)

	if _, ok := first.Page(); !ok {
		first = first.WithPage(constants.FirstPage)
	}

	return &Collection[T]{
		mapper:   mapper,
		fetcher:  fetcher,
		next:     &first,
		settings: settings,
		warned:   make(map[string]bool),
	}
}

// IsComplete reports whether every page has been fetched.
func (c *Collection[T]) IsComplete() bool {
	return c.next == nil
}

// PagesFetched returns the number of page requests issued so far.
func (c *Collection[T]) PagesFetched() int {
	return c.pages
}

// Loaded returns the number of elements held so far without fetching.
func (c *Collection[T]) Loaded() int {
	return len(c.items)
}

// grow fetches and ingests the next page.
func (c *Collection[T]) grow(ctx context.Context) error {
	if c.next == nil {
		return nil
	}

	envelope, err := c.fetcher.FetchPage(ctx, *c.next)
	if err != nil {
		return err
	}

	c.pages++

	err = c.ingest(envelope.Items)
	if err != nil {
		return err
	}

	c.next = envelope.Next

	return nil
}

func (c *Collection[T]) ingest(items []*Record) error {
	for _, record := range items {
		for _, param := range c.settings.extra {
			record.Set(param.Key, param.Value)
		}

		err := record.CoerceDates()
		if err != nil {
			return err
		}
	}

	kept, unknown := ApplyFilters(items, c.settings.filters)

	for _, field := range unknown {
		if c.warned[field] {
			continue
		}

		c.warned[field] = true
		c.settings.logger.Warn("Filter field not present in records", map[string]interface{}{
			"field": field,
		})
	}

	for _, record := range kept {
		c.records = append(c.records, record)
		c.items = append(c.items, c.mapper(record))
	}

	return nil
}

// MaterializeAll fetches every remaining page. Calling it again after it
// succeeded does nothing.
func (c *Collection[T]) MaterializeAll(ctx context.Context) error {
	if c.settings.bulk > 1 {
		return c.materializeBulk(ctx)
	}

	for c.next != nil {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("materializing collection: %w", err)
		}

		err = c.grow(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

// materializeBulk reads the first page alone, then requests batches of
// pages concurrently and appends them in page order up to the first page
// that reports no more data.
func (c *Collection[T]) materializeBulk(ctx context.Context) error {
	if c.pages == 0 && c.next != nil {
		err := c.grow(ctx)
		if err != nil {
			return err
		}
	}

	for c.next != nil {
		start, _ := c.next.Page()
		batch := c.settings.bulk
		envelopes := make([]*PageEnvelope, batch)

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(batch)

		for i := range batch {
			req := c.next.WithPage(start + i)

			group.Go(func() error {
				envelope, err := c.fetcher.FetchPage(groupCtx, req)
				if err != nil {
					return err
				}

				envelopes[i] = envelope

				return nil
			})
		}

		err := group.Wait()
		if err != nil {
			return fmt.Errorf("fetching pages %d-%d: %w", start, start+batch-1, err)
		}

		c.pages += batch

		for _, envelope := range envelopes {
			err = c.ingest(envelope.Items)
			if err != nil {
				return err
			}

			c.next = envelope.Next
			if c.next == nil {
				break
			}
		}
	}

	return nil
}

// Len materializes the collection and returns its size.
func (c *Collection[T]) Len(ctx context.Context) (int, error) {
	err := c.MaterializeAll(ctx)
	if err != nil {
		return 0, err
	}

	return len(c.items), nil
}

// Get materializes the collection and returns element i.
func (c *Collection[T]) Get(ctx context.Context, i int) (T, error) {
	var zero T

	err := c.MaterializeAll(ctx)
	if err != nil {
		return zero, err
	}

	if i < 0 || i >= len(c.items) {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(c.items))
	}

	return c.items[i], nil
}

// Slice materializes the collection and returns elements [lo, hi).
func (c *Collection[T]) Slice(ctx context.Context, lo, hi int) ([]T, error) {
	err := c.MaterializeAll(ctx)
	if err != nil {
		return nil, err
	}

	if lo < 0 || hi > len(c.items) || lo > hi {
		return nil, fmt.Errorf("%w: [%d:%d] of %d", ErrIndexOutOfRange, lo, hi, len(c.items))
	}

	out := make([]T, hi-lo)
	copy(out, c.items[lo:hi])

	return out, nil
}

// Items materializes the collection and returns every element.
func (c *Collection[T]) Items(ctx context.Context) ([]T, error) {
	err := c.MaterializeAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(c.items))
	copy(out, c.items)

	return out, nil
}

// Records materializes the collection and returns the underlying records.
func (c *Collection[T]) Records(ctx context.Context) ([]*Record, error) {
	err := c.MaterializeAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Record, len(c.records))
	copy(out, c.records)

	return out, nil
}

// All iterates lazily, fetching pages only as the loop reaches them. Once
// the collection is complete the iteration replays the memoized elements.
// A fetch error is yielded once and ends the iteration.
func (c *Collection[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for i := 0; ; i++ {
			for i >= len(c.items) && c.next != nil {
				err := c.grow(ctx)
				if err != nil {
					var zero T

					yield(zero, err)

					return
				}
			}

			if i >= len(c.items) {
				return
			}

			if !yield(c.items[i], nil) {
				return
			}
		}
	}
}

// ForEach calls fn for every element, stopping at the first error.
func (c *Collection[T]) ForEach(ctx context.Context, fn func(T) error) error {
	for item, err := range c.All(ctx) {
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// One returns the only element, failing unless exactly one exists.
func (c *Collection[T]) One(ctx context.Context) (T, error) {
	var zero T

	err := c.MaterializeAll(ctx)
	if err != nil {
		return zero, err
	}

	if len(c.items) != 1 {
		return zero, fmt.Errorf("%w: have %d", ErrNotSingleRecord, len(c.items))
	}

	return c.items[0], nil
}

// Field returns a field of the only record in the collection.
func (c *Collection[T]) Field(ctx context.Context, name string) (interface{}, error) {
	err := c.MaterializeAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(c.records) != 1 {
		return nil, fmt.Errorf("%w: have %d", ErrNotSingleRecord, len(c.records))
	}

	value, ok := c.records[0].Get(name)
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrNoSuchField}
	}

	return value, nil
}

// WriteTable materializes the collection and renders it as a table.
func (c *Collection[T]) WriteTable(ctx context.Context, w io.Writer) error {
	records, err := c.Records(ctx)
	if err != nil {
		return err
	}

	return RenderTable(w, records)
}
