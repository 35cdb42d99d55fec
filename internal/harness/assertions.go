package harness

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/store"
)

// EvaluateAssertions checks every assertion against the store and returns
// one message per failure.
func EvaluateAssertions(ctx context.Context, st *store.Store, bucket string, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(ctx, st, bucket, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, st *store.Store, bucket string, a Assertion) error {
	switch a.Type {
	case AssertDirtyIDs:
		ids, err := st.DirtyIDs(ctx, bucket)
		if err != nil {
			return err
		}
		if !slices.Equal(a.ExpectIDs, ids) {
			return fmt.Errorf("expected %v, got %v", a.ExpectIDs, ids)
		}
	case AssertStats:
		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		var rows, dirty int64
		for _, s := range stats {
			if s.Bucket == bucket {
				rows, dirty = s.Rows, s.Dirty
			}
		}
		if a.Rows != nil && int64(*a.Rows) != rows {
			return fmt.Errorf("expected %d rows, got %d", *a.Rows, rows)
		}
		if a.Dirty != nil && int64(*a.Dirty) != dirty {
			return fmt.Errorf("expected %d dirty, got %d", *a.Dirty, dirty)
		}
	case AssertHasCached:
		found, err := st.HasAnyCachedObjects(ctx)
		if err != nil {
			return err
		}
		if found != *a.Expect {
			return fmt.Errorf("expected %t, got %t", *a.Expect, found)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func jsonString(v jsonv.Value) (string, bool) {
	s, ok := v.(jsonv.String)
	return string(s), ok
}
