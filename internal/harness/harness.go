package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/localdoc/internal/acl"
	"github.com/roach88/localdoc/internal/connmgr"
	"github.com/roach88/localdoc/internal/pipeline"
	"github.com/roach88/localdoc/internal/store"
	"github.com/roach88/localdoc/internal/testutil"
)

// Harness holds the scratch store and runner for one scenario.
type Harness struct {
	store  *store.Store
	runner *pipeline.Runner
	acl    *acl.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Open an in-memory database with deterministic clock and ids
//  2. Insert the documents, dirty ones with the dirty state
//  3. Run every query and check its expectations
//  4. Evaluate the assertions against the store
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, testutil.DiscardLogger())
}

// RunContext is Run with an explicit context and logger.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	mgr, err := connmgr.Open(ctx, connmgr.Options{InMemory: true, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer mgr.Close()

	st := store.New(mgr.Master(),
		store.WithLogger(logger),
		store.WithClock(testutil.FixedClock(testutil.Epoch)),
		store.WithIDGenerator(testutil.NewSequenceIDs("doc")),
	)
	engine, err := acl.NewEngine(acl.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:  st,
		runner: pipeline.New(st, pipeline.WithLogger(logger)),
		acl:    engine,
		logger: logger,
	}

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed documents: %w", err)
	}

	result := NewResult()
	for _, step := range scenario.Queries {
		if err := h.runQuery(ctx, scenario, step, result); err != nil {
			return nil, fmt.Errorf("query %q: %w", step.Name, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, st, scenario.Bucket, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	return h.store.InTx(ctx, func(tx *store.Store) error {
		if err := tx.CreateBucketTable(ctx, scenario.Bucket); err != nil {
			return err
		}
		for i, body := range scenario.Documents {
			doc := &store.Document{Bucket: scenario.Bucket, Body: body.Clone()}
			state := store.StateClean
			if id := documentID(doc); id != "" && slices.Contains(scenario.Dirty, id) {
				state = store.StateDirty
			}
			if err := tx.Insert(ctx, doc, state); err != nil {
				return fmt.Errorf("documents[%d]: %w", i, err)
			}
		}
		return nil
	})
}

func documentID(doc *store.Document) string {
	v, ok := doc.Body.Get(store.KeyID)
	if !ok {
		return ""
	}
	s, _ := jsonString(v)
	return s
}

func (h *Harness) runQuery(ctx context.Context, scenario *Scenario, step QueryStep, result *Result) error {
	q := pipeline.NewQuery().
		WithOrder(step.Order...).
		WithSkip(step.Skip).
		WithIncludeDeleted(step.IncludeDeleted)
	if step.Filter != nil {
		q = q.WithExpression(step.Filter.Object)
	}
	if step.Limit != nil {
		q = q.WithLimit(*step.Limit)
	}

	var opts []pipeline.RunOption
	if step.Principal != nil {
		checker, err := h.acl.Checker(scenario.ACLRule)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithACL(checker, acl.Principal{
			ID:    step.Principal.ID,
			Roles: step.Principal.Roles,
		}))
	}

	docs, err := h.runner.Run(ctx, scenario.Bucket, q, opts...)
	if err != nil {
		return err
	}
	count, err := h.runner.Count(ctx, scenario.Bucket, q, opts...)
	if err != nil {
		return err
	}

	outcome := QueryOutcome{Name: step.Name, IDs: make([]string, len(docs)), Count: count}
	for i, d := range docs {
		outcome.IDs[i] = d.ID
	}
	result.Queries = append(result.Queries, outcome)

	if step.ExpectIDs != nil && !slices.Equal(step.ExpectIDs, outcome.IDs) {
		result.AddError(fmt.Sprintf("query %q: expected ids %v, got %v", step.Name, step.ExpectIDs, outcome.IDs))
	}
	if step.ExpectCount != nil && *step.ExpectCount != count {
		result.AddError(fmt.Sprintf("query %q: expected count %d, got %d", step.Name, *step.ExpectCount, count))
	}
	h.logger.Debug("scenario query", "query", step.Name, "ids", outcome.IDs, "count", count)
	return nil
}
