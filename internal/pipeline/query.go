package pipeline

import (
	"slices"

	"github.com/roach88/localdoc/internal/jsonv"
)

// Query is an immutable read request. Build one with NewQuery and the
// With* methods, each of which returns a modified copy.
//
// The zero Query is the same as NewQuery(): no filter, no ordering and no
// limit.
type Query struct {
	expression     *jsonv.Object
	ordering       []string
	skip           int
	limit          int
	hasLimit       bool
	includeDeleted bool
}

// NewQuery returns a query that matches every live document.
func NewQuery() Query {
	return Query{}
}

// WithExpression sets the filter document. nil matches everything.
func (q Query) WithExpression(expr *jsonv.Object) Query {
	q.expression = expr.Clone()
	return q
}

// WithOrder sets the sort keys. A leading "-" sorts that key descending.
func (q Query) WithOrder(keys ...string) Query {
	q.ordering = slices.Clone(keys)
	return q
}

// WithSkip drops the first n results after sorting. n <= 0 skips nothing.
func (q Query) WithSkip(n int) Query {
	q.skip = n
	return q
}

// WithLimit caps the number of results. A negative n removes the cap;
// 0 returns nothing.
func (q Query) WithLimit(n int) Query {
	if n < 0 {
		q.limit, q.hasLimit = 0, false
		return q
	}
	q.limit, q.hasLimit = n, true
	return q
}

// WithIncludeDeleted controls whether tombstoned documents are returned.
func (q Query) WithIncludeDeleted(include bool) Query {
	q.includeDeleted = include
	return q
}

// Expression returns a copy of the filter document, or nil.
func (q Query) Expression() *jsonv.Object { return q.expression.Clone() }

// Ordering returns a copy of the sort keys.
func (q Query) Ordering() []string { return slices.Clone(q.ordering) }

// Skip returns the number of sorted results dropped before the limit.
func (q Query) Skip() int { return q.skip }

// Limit returns the result cap, or -1 when the query is unbounded.
func (q Query) Limit() int {
	if !q.hasLimit {
		return -1
	}
	return q.limit
}

// IncludeDeleted reports whether tombstoned documents are returned.
func (q Query) IncludeDeleted() bool { return q.includeDeleted }
