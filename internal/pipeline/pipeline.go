// Package pipeline answers queries against one bucket.
//
// A run scans the whole bucket, drops tombstones, evaluates the filter,
// applies an optional ACL check, sorts, and finally windows the result
// with skip and limit. Everything is materialized before windowing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/localdoc/internal/acl"
	"github.com/roach88/localdoc/internal/evaluator"
	"github.com/roach88/localdoc/internal/metrics"
	"github.com/roach88/localdoc/internal/queryir"
	"github.com/roach88/localdoc/internal/store"
)

// Runner executes queries over a Store.
type Runner struct {
	store   *store.Store
	eval    *evaluator.Evaluator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithEvaluator replaces the shared evaluator.
func WithEvaluator(e *evaluator.Evaluator) Option {
	return func(r *Runner) { r.eval = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics records query outcomes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New returns a Runner reading from s.
func New(s *store.Store, opts ...Option) *Runner {
	r := &Runner{store: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if r.eval == nil {
		r.eval = evaluator.New(evaluator.WithLogger(r.logger))
	}
	return r
}

// RunOption adjusts a single run.
type RunOption func(*runConfig)

type runConfig struct {
	checker   acl.Checker
	principal acl.Principal
}

// WithACL drops documents that checker says principal cannot read.
func WithACL(checker acl.Checker, principal acl.Principal) RunOption {
	return func(c *runConfig) {
		c.checker = checker
		c.principal = principal
	}
}

// Run returns the documents of bucket matching q.
//
// A malformed filter is not an error: it is logged and the result is
// empty. A missing bucket also yields an empty result.
func (r *Runner) Run(ctx context.Context, bucket string, q Query, opts ...RunOption) ([]store.Document, error) {
	start := time.Now()

	matched, denied, outcome, err := r.match(ctx, bucket, q, opts)
	if err != nil {
		r.metrics.ObserveQuery(metrics.OutcomeError, start, 0, 0)
		return nil, err
	}
	if outcome == metrics.OutcomeMalformed {
		r.metrics.ObserveQuery(outcome, start, 0, 0)
		return []store.Document{}, nil
	}

	SortDocuments(matched, q.ordering)
	out := window(matched, q.Skip(), q.Limit())

	r.logger.Debug("query run",
		"bucket", bucket,
		"matched", len(matched),
		"returned", len(out),
		"denied", denied,
		"duration", time.Since(start),
	)
	r.metrics.ObserveQuery(outcome, start, len(out), denied)
	return out, nil
}

// Count returns how many documents of bucket match q, ignoring its
// ordering, skip and limit.
func (r *Runner) Count(ctx context.Context, bucket string, q Query, opts ...RunOption) (int, error) {
	matched, _, _, err := r.match(ctx, bucket, q, opts)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (r *Runner) match(ctx context.Context, bucket string, q Query, opts []RunOption) ([]store.Document, int, string, error) {
	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var expr queryir.Expr
	if q.expression != nil {
		parsed, err := queryir.Parse(q.expression)
		if err != nil {
			r.logger.Warn("malformed query matches nothing", "bucket", bucket, "error", err)
			return nil, 0, metrics.OutcomeMalformed, nil
		}
		expr = parsed
	}

	rows, err := r.store.Scan(ctx, bucket, "")
	if err != nil {
		return nil, 0, metrics.OutcomeError, fmt.Errorf("run query on %s: %w", bucket, err)
	}

	matched := make([]store.Document, 0, len(rows))
	denied := 0
	for _, doc := range rows {
		if !q.includeDeleted && doc.Deleted() {
			continue
		}
		if expr != nil && !r.eval.Eval(doc.Body, expr) {
			continue
		}
		if cfg.checker != nil && !cfg.checker.CanRead(cfg.principal, doc.ACL()) {
			denied++
			continue
		}
		matched = append(matched, doc)
	}
	return matched, denied, metrics.OutcomeOK, nil
}

func window(docs []store.Document, skip, limit int) []store.Document {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(docs) {
		return []store.Document{}
	}
	docs = docs[skip:]
	if limit >= 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
