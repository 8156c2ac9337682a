package ces_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/ces-client/pkg/ces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePage(t *testing.T) {
	t.Parallel()

	body := `{"resultList":[{"id":1},null,{"id":2}],"page":"3","pageSize":2,"total":40}`

	envelope, err := ces.DecodePage([]byte(body), "resultList")
	require.NoError(t, err)

	require.Len(t, envelope.Items, 2)
	assert.Equal(t, int64(2), recordID(envelope.Items[1]))
	require.NotNil(t, envelope.Page)
	assert.Equal(t, 3, *envelope.Page)
	assert.Equal(t, 2, *envelope.PageSize)
	assert.Equal(t, 40, *envelope.Total)
	assert.False(t, envelope.HasMore())
}

func TestDecodePage_BareArray(t *testing.T) {
	t.Parallel()

	envelope, err := ces.DecodePage([]byte(`[{"id":1},{"id":2}]`), "")
	require.NoError(t, err)

	assert.Len(t, envelope.Items, 2)
	assert.Nil(t, envelope.Page)
}

func TestDecodePage_Errors(t *testing.T) {
	t.Parallel()

	_, err := ces.DecodePage([]byte(`{"items":[]}`), "resultList")
	require.ErrorIs(t, err, ces.ErrMissingRootKey)

	var missing *ces.MissingRootKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "resultList", missing.RootKey)

	_, err = ces.DecodePage([]byte(`not json`), "resultList")
	require.ErrorIs(t, err, ces.ErrUnexpectedResponse)

	_, err = ces.DecodePage([]byte(`{"resultList":{"id":1}}`), "resultList")
	require.ErrorIs(t, err, ces.ErrUnexpectedResponse)
}

func TestDecodePage_NullItems(t *testing.T) {
	t.Parallel()

	envelope, err := ces.DecodePage([]byte(`{"resultList":null,"page":1,"pageSize":100}`), "resultList")
	require.NoError(t, err)

	assert.Empty(t, envelope.Items)
}

func TestPageFetcher_FetchPage(t *testing.T) {
	t.Parallel()

	transport := newPagedTransport(150, 100)
	fetcher := ces.NewPageFetcher(transport)

	assert.Equal(t, "resultList", fetcher.RootKey())

	req := ces.NewRequest(http.MethodGet, "projects").WithPage(1)

	first, err := fetcher.FetchPage(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Items, 100)
	require.True(t, first.HasMore())

	page, ok := first.Next.Page()
	require.True(t, ok)
	assert.Equal(t, 2, page)

	// The descriptor handed in is not modified.
	page, _ = req.Page()
	assert.Equal(t, 1, page)

	second, err := fetcher.FetchPage(context.Background(), *first.Next)
	require.NoError(t, err)
	assert.Len(t, second.Items, 50)
	assert.False(t, second.HasMore())
}

func TestPageFetcher_NextPageNeverGoesBack(t *testing.T) {
	t.Parallel()

	// A server that reports page 0 for every request.
	body := `{"resultList":[{"id":1},{"id":2}],"page":0,"pageSize":2}`
	fetcher := ces.NewPageFetcher(staticTransport(body, nil))

	envelope, err := fetcher.FetchPage(context.Background(), ces.NewRequest(http.MethodGet, "terms").WithPage(4))
	require.NoError(t, err)
	require.NotNil(t, envelope.Next)

	page, _ := envelope.Next.Page()
	assert.Equal(t, 5, page)
}

func TestPageFetcher_NoPageInfoMeansDone(t *testing.T) {
	t.Parallel()

	body := `{"resultList":[{"id":1}]}`
	fetcher := ces.NewPageFetcher(staticTransport(body, nil))

	envelope, err := fetcher.FetchPage(context.Background(), ces.NewRequest(http.MethodGet, "terms"))
	require.NoError(t, err)
	assert.False(t, envelope.HasMore())
}

func TestPageFetcher_RootKeyOverride(t *testing.T) {
	t.Parallel()

	fetcher := ces.NewPageFetcher(staticTransport(`{"data":[{"id":9}]}`, nil), ces.WithRootKey("data"))

	envelope, err := fetcher.FetchPage(context.Background(), ces.NewRequest(http.MethodGet, "terms"))
	require.NoError(t, err)
	require.Len(t, envelope.Items, 1)
	assert.Equal(t, int64(9), recordID(envelope.Items[0]))
}

func TestPageFetcher_TransportError(t *testing.T) {
	t.Parallel()

	transport := newPagedTransport(10, 5)
	transport.failPage = 1

	_, err := ces.NewPageFetcher(transport).FetchPage(context.Background(), ces.NewRequest(http.MethodGet, "projects").WithPage(1))
	require.Error(t, err)

	var transportErr *ces.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDecodeRecord(t *testing.T) {
	t.Parallel()

	record, err := ces.DecodeRecord([]byte(`{"id":12,"name":"Engineering"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, record.Keys())
}
