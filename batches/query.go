package batches

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/loupesearch/loupe-go/client"
)

const (
	batchesPath = "/batches"
)

// Query accumulates filters and pagination controls for listing batches and
// serializes them into request parameters. Build one with NewQuery, chain
// the With* setters, then call Execute.
//
// No filter is validated locally; out-of-range values (zero or negative
// limits, unknown statuses) are passed through and the server is
// authoritative. A Query is owned by one caller for the duration of
// building and executing; it is not safe for concurrent mutation.
type Query struct {
	c *client.Client

	// uids selects batches containing the tasks with these task uids.
	uids []int64

	// batchUids filters batches by their own uid.
	batchUids []int64

	// indexUids selects batches containing tasks affecting these indexes.
	indexUids []string

	// statuses selects batches containing tasks with these statuses.
	statuses []string

	// types selects batches containing tasks with these types.
	types []string

	// limit is the maximum number of batches to return.
	limit *int64

	// from is the first batch uid that should be returned.
	from *int64

	// reverse returns results oldest first when true. Unlike the other
	// fields it has a concrete default and is always transmitted.
	reverse bool

	// Timestamp bounds on the tasks contained in the batches.
	beforeEnqueuedAt *time.Time
	beforeStartedAt  *time.Time
	beforeFinishedAt *time.Time
	afterEnqueuedAt  *time.Time
	afterStartedAt   *time.Time
	afterFinishedAt  *time.Time
}

// NewQuery creates a Query bound to c with all filters empty and
// reverse=false. Executing it unmodified applies the server defaults
// (all batches, most recent first, server-default page size).
func NewQuery(c *client.Client) *Query {
	return &Query{c: c}
}

// WithUids selects batches containing the tasks with the given task uids.
func (q *Query) WithUids(uids ...int64) *Query {
	q.uids = append(q.uids, uids...)
	return q
}

// WithBatchUids filters batches by their own uid.
func (q *Query) WithBatchUids(uids ...int64) *Query {
	q.batchUids = append(q.batchUids, uids...)
	return q
}

// WithIndexUids selects batches containing tasks affecting the given
// indexes.
func (q *Query) WithIndexUids(uids ...string) *Query {
	q.indexUids = append(q.indexUids, uids...)
	return q
}

// WithStatuses selects batches containing tasks with the given statuses
// (see the Status* constants).
func (q *Query) WithStatuses(statuses ...string) *Query {
	q.statuses = append(q.statuses, statuses...)
	return q
}

// WithTypes selects batches containing tasks with the given types
// (see the Type* constants).
func (q *Query) WithTypes(types ...string) *Query {
	q.types = append(q.types, types...)
	return q
}

// WithLimit sets the maximum number of batches to return.
func (q *Query) WithLimit(limit int64) *Query {
	q.limit = &limit
	return q
}

// WithFrom sets the first batch uid that should be returned.
func (q *Query) WithFrom(from int64) *Query {
	q.from = &from
	return q
}

// WithReverse flips the chronological ordering of the result set; true
// returns results from oldest to most recent.
func (q *Query) WithReverse(reverse bool) *Query {
	q.reverse = reverse
	return q
}

// WithBeforeEnqueuedAt selects batches containing tasks enqueued before t.
func (q *Query) WithBeforeEnqueuedAt(t time.Time) *Query {
	q.beforeEnqueuedAt = &t
	return q
}

// WithBeforeStartedAt selects batches containing tasks started before t.
func (q *Query) WithBeforeStartedAt(t time.Time) *Query {
	q.beforeStartedAt = &t
	return q
}

// WithBeforeFinishedAt selects batches containing tasks finished before t.
func (q *Query) WithBeforeFinishedAt(t time.Time) *Query {
	q.beforeFinishedAt = &t
	return q
}

// WithAfterEnqueuedAt selects batches containing tasks enqueued after t.
func (q *Query) WithAfterEnqueuedAt(t time.Time) *Query {
	q.afterEnqueuedAt = &t
	return q
}

// WithAfterStartedAt selects batches containing tasks started after t.
func (q *Query) WithAfterStartedAt(t time.Time) *Query {
	q.afterStartedAt = &t
	return q
}

// WithAfterFinishedAt selects batches containing tasks finished after t.
func (q *Query) WithAfterFinishedAt(t time.Time) *Query {
	q.afterFinishedAt = &t
	return q
}

// Values serializes the query into request parameters. Unset scalars and
// empty collections are omitted; collections are comma-joined; timestamps
// use RFC 3339; reverse is always transmitted.
func (q *Query) Values() url.Values {
	values := url.Values{}

	if len(q.uids) > 0 {
		values.Set("uids", joinInt64(q.uids))
	}
	if len(q.batchUids) > 0 {
		values.Set("batchUids", joinInt64(q.batchUids))
	}
	if len(q.indexUids) > 0 {
		values.Set("indexUids", strings.Join(q.indexUids, ","))
	}
	if len(q.statuses) > 0 {
		values.Set("statuses", strings.Join(q.statuses, ","))
	}
	if len(q.types) > 0 {
		values.Set("types", strings.Join(q.types, ","))
	}
	if q.limit != nil {
		values.Set("limit", strconv.FormatInt(*q.limit, 10))
	}
	if q.from != nil {
		values.Set("from", strconv.FormatInt(*q.from, 10))
	}
	values.Set("reverse", strconv.FormatBool(q.reverse))

	setTime := func(key string, t *time.Time) {
		if t != nil {
			values.Set(key, t.Format(time.RFC3339))
		}
	}
	setTime("beforeEnqueuedAt", q.beforeEnqueuedAt)
	setTime("beforeStartedAt", q.beforeStartedAt)
	setTime("beforeFinishedAt", q.beforeFinishedAt)
	setTime("afterEnqueuedAt", q.afterEnqueuedAt)
	setTime("afterStartedAt", q.afterStartedAt)
	setTime("afterFinishedAt", q.afterFinishedAt)

	return values
}

// Execute lists the batches matching the query through the bound client.
// Transport, status and decode failures are returned unchanged as
// *client.Error values.
func (q *Query) Execute(ctx context.Context) (*ResultsPage, error) {
	var page ResultsPage
	if err := q.c.Get(ctx, batchesPath, q.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// List lists batches matching q. A nil q applies the server defaults.
func List(ctx context.Context, c *client.Client, q *Query) (*ResultsPage, error) {
	if q == nil {
		q = NewQuery(c)
	} else if q.c == nil {
		q.c = c
	}
	return q.Execute(ctx)
}

// Get fetches a single batch by uid. A missing batch is reported as a
// NotFound-class error (client.IsNotFound); a malformed response body is a
// Decode-class error.
func Get(ctx context.Context, c *client.Client, uid int64) (*Batch, error) {
	var batch Batch
	path := fmt.Sprintf("%s/%d", batchesPath, uid)
	if err := c.Get(ctx, path, nil, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func joinInt64(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}
