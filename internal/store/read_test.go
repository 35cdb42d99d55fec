package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_StorageOrderAndPredicate(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, body := range []string{`{"_id":"z","v":1}`, `{"_id":"a","v":2}`, `{"_id":"m","v":3}`} {
		require.NoError(t, s.Insert(ctx, newDoc("orders", body), StateClean))
	}

	all, err := s.Scan(ctx, "orders", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{all[0].ID, all[1].ID, all[2].ID},
		"scan must follow insertion (rowid) order, not id order")

	some, err := s.Scan(ctx, "orders", `"objectId" IN (?, ?)`, "m", "z")
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "z", some[0].ID)
	assert.Equal(t, "m", some[1].ID)
}

func TestScan_MissingBucketIsEmpty(t *testing.T) {
	docs, err := createTestStore(t).Scan(context.Background(), "nothing", "")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestScan_SkipsUndecodableRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Insert(ctx, newDoc("orders", `{"_id":"good"}`), StateClean))
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO "bucket_orders" ("objectId", "json", "state") VALUES (?, ?, ?)`,
		"bad", `[1,2]`, 0)
	require.NoError(t, err)

	docs, err := s.Scan(ctx, "orders", "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].ID)

	_, err = s.Get(ctx, "orders", "bad")
	assert.Equal(t, CodeStorage, CodeOf(err))
}

func TestScan_BadPredicateIsStorageError(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.CreateBucketTable(ctx, "orders"))

	_, err := s.Scan(ctx, "orders", "no_such_column = ?", 1)
	require.Error(t, err)
	assert.Equal(t, CodeStorage, CodeOf(err))
}
