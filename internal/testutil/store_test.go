package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/localdoc/internal/store"
)

func TestSequenceIDs(t *testing.T) {
	g := NewSequenceIDs("")
	assert.Equal(t, "doc-0001", g.Next())
	assert.Equal(t, "doc-0002", g.Next())

	named := NewSequenceIDs("task")
	assert.Equal(t, "task-0001", named.Next())
}

func TestNewMemoryStoreAndSeed(t *testing.T) {
	s := NewMemoryStore(t)
	docs := Seed(t, s, "tasks", `{"title":"a"}`, `{"_id":"fixed","title":"b"}`)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-0001", docs[0].ID)
	assert.Equal(t, "fixed", docs[1].ID)

	all, err := s.Scan(context.Background(), "tasks", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-0001", "fixed"}, IDs(all))
	for _, d := range all {
		assert.Equal(t, store.StateClean, d.State)
	}
}
