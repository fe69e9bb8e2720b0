package batches

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loupesearch/loupe-go/client"
)

func newTestClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: baseURL})
	require.NoError(t, err)
	return c
}

// TestNewQuery_Defaults tests that a default builder serializes to no filter
// parameters but still sends reverse
func TestNewQuery_Defaults(t *testing.T) {
	values := NewQuery(nil).Values()

	assert.Len(t, values, 1)
	assert.Equal(t, "false", values.Get("reverse"))
}

// TestQuery_LimitAndFrom tests pagination parameter serialization
func TestQuery_LimitAndFrom(t *testing.T) {
	values := NewQuery(nil).WithLimit(2).WithFrom(40).Values()

	assert.Equal(t, "2", values.Get("limit"))
	assert.Equal(t, "40", values.Get("from"))
	assert.Equal(t, "false", values.Get("reverse"))
	assert.Len(t, values, 3)
}

// TestQuery_Collections tests comma-joined collection serialization
func TestQuery_Collections(t *testing.T) {
	values := NewQuery(nil).
		WithUids(10, 11).
		WithBatchUids(7).
		WithIndexUids("movies", "books").
		WithStatuses(StatusSucceeded, StatusFailed).
		WithTypes(TypeDocumentAdditionOrUpdate).
		Values()

	assert.Equal(t, "10,11", values.Get("uids"))
	assert.Equal(t, "7", values.Get("batchUids"))
	assert.Equal(t, "movies,books", values.Get("indexUids"))
	assert.Equal(t, "succeeded,failed", values.Get("statuses"))
	assert.Equal(t, "documentAdditionOrUpdate", values.Get("types"))
}

// TestQuery_EmptyCollectionsOmitted tests that empty collections are not
// transmitted
func TestQuery_EmptyCollectionsOmitted(t *testing.T) {
	values := NewQuery(nil).WithUids().WithIndexUids().Values()

	_, hasUids := values["uids"]
	_, hasIndexUids := values["indexUids"]
	assert.False(t, hasUids)
	assert.False(t, hasIndexUids)
}

// TestQuery_TimestampBounds tests RFC 3339 encoding of the six bounds
func TestQuery_TimestampBounds(t *testing.T) {
	ts := time.Date(2025, 7, 4, 11, 49, 53, 0, time.UTC)

	values := NewQuery(nil).
		WithBeforeEnqueuedAt(ts).
		WithBeforeStartedAt(ts).
		WithBeforeFinishedAt(ts).
		WithAfterEnqueuedAt(ts).
		WithAfterStartedAt(ts).
		WithAfterFinishedAt(ts).
		Values()

	expected := "2025-07-04T11:49:53Z"
	for _, key := range []string{
		"beforeEnqueuedAt", "beforeStartedAt", "beforeFinishedAt",
		"afterEnqueuedAt", "afterStartedAt", "afterFinishedAt",
	} {
		assert.Equal(t, expected, values.Get(key), key)
	}
}

// TestQuery_ReverseTrue tests the reverse flag flips to true
func TestQuery_ReverseTrue(t *testing.T) {
	values := NewQuery(nil).WithReverse(true).Values()
	assert.Equal(t, "true", values.Get("reverse"))
}

// TestQuery_NoLocalValidation tests that out-of-range values pass through;
// the server is authoritative
func TestQuery_NoLocalValidation(t *testing.T) {
	values := NewQuery(nil).WithLimit(0).WithFrom(-3).Values()

	assert.Equal(t, "0", values.Get("limit"))
	assert.Equal(t, "-3", values.Get("from"))
}

// TestQuery_Chaining tests that setters return the same builder
func TestQuery_Chaining(t *testing.T) {
	q := NewQuery(nil)
	assert.Same(t, q, q.WithLimit(1))
	assert.Same(t, q, q.WithReverse(true))
	assert.Same(t, q, q.WithStatuses(StatusEnqueued))
}

// TestList_DefaultQuery tests GET /batches with no filters: one batch with
// uid 42 and a time_limit_reached strategy
func TestList_DefaultQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batches", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("reverse"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [
				{
					"uid": 42,
					"stats": {"totalNbTasks": 3, "status": {"succeeded": 3}},
					"startedAt": "2024-10-11T11:49:54.000Z",
					"finishedAt": "2024-10-11T11:49:55.000Z",
					"batchStrategy": "time_limit_reached"
				}
			],
			"limit": 20,
			"from": null,
			"next": null,
			"total": 1
		}`))
	}))
	defer server.Close()

	page, err := List(context.Background(), newTestClient(t, server.URL), nil)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(42), page.Results[0].Uid)
	assert.Equal(t, StrategyTimeLimitReached, page.Results[0].BatchStrategy)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasNext())
}

// TestGet_SingleBatch tests GET /batches/{uid} with an unknown extra field
func TestGet_SingleBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/batches/99", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uid": 99, "batchStrategy": "size_limit_reached", "taskUids": [10, 11]}`))
	}))
	defer server.Close()

	batch, err := Get(context.Background(), newTestClient(t, server.URL), 99)
	require.NoError(t, err)

	assert.Equal(t, int64(99), batch.Uid)
	assert.Equal(t, StrategySizeLimitReached, batch.BatchStrategy)
}

// TestGet_NotFound tests the NotFound-class error for unknown uids
func TestGet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Batch 123 not found.","code":"batch_not_found"}`))
	}))
	defer server.Close()

	batch, err := Get(context.Background(), newTestClient(t, server.URL), 123)
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.True(t, client.IsNotFound(err))
}

// TestQuery_Execute_Paginated tests that exactly limit and from are sent and
// an empty page decodes
func TestQuery_Execute_Paginated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "2", query.Get("limit"))
		assert.Equal(t, "40", query.Get("from"))
		assert.Equal(t, "false", query.Get("reverse"))
		assert.Len(t, query, 3)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[],"limit":2,"total":0}`))
	}))
	defer server.Close()

	page, err := NewQuery(newTestClient(t, server.URL)).
		WithLimit(2).
		WithFrom(40).
		Execute(context.Background())
	require.NoError(t, err)

	assert.Empty(t, page.Results)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 0, page.Total)
}

// TestQuery_Execute_UnknownStrategyTolerated tests the forward-compatibility
// of strategy parsing end to end
func TestQuery_Execute_UnknownStrategyTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"results": [{"uid": 7, "stats": {"totalNbTasks": 1}, "batchStrategy": "flush_requested"}],
			"limit": 20, "total": 1
		}`))
	}))
	defer server.Close()

	page, err := List(context.Background(), newTestClient(t, server.URL), nil)
	require.NoError(t, err)

	require.Len(t, page.Results, 1)
	assert.Equal(t, StrategyUnknown, page.Results[0].BatchStrategy)
}
