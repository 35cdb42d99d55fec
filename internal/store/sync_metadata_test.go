package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/localdoc/internal/jsonv"
)

func TestSyncMetadata_CreatedLazily(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	md, err := s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)

	assert.Equal(t, "orders", md.Bucket)
	assert.Empty(t, md.LastPullServerTime)
	assert.Equal(t, 0, md.SyncScope.Len())
	assert.True(t, md.LastSyncedAt.IsZero())

	// Second access reads the same row.
	again, err := s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, md.Bucket, again.Bucket)
}

func TestSaveSyncMetadata_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	when := time.Date(2024, 5, 4, 3, 2, 1, 0, time.UTC)
	require.NoError(t, s.SaveSyncMetadata(ctx, &SyncMetadata{
		Bucket:             "orders",
		LastPullServerTime: "2024-05-04T03:02:00Z",
		SyncScope:          jsonv.MustParseObject(`{"owner":"u1"}`),
		LastSyncedAt:       when,
	}))

	md, err := s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-04T03:02:00Z", md.LastPullServerTime)
	assert.True(t, jsonv.Equal(jsonv.MustParseObject(`{"owner":"u1"}`), md.SyncScope))
	assert.Equal(t, when, md.LastSyncedAt)

	// Saving again overwrites.
	md.LastPullServerTime = "later"
	md.SyncScope = nil
	require.NoError(t, s.SaveSyncMetadata(ctx, md))

	md, err = s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "later", md.LastPullServerTime)
	assert.Equal(t, 0, md.SyncScope.Len())
}

func TestMarkSynced_UsesClock(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.MarkSynced(ctx, "orders", "server-42"))

	md, err := s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, "server-42", md.LastPullServerTime)
	assert.Equal(t, testEpoch, md.LastSyncedAt)
}

func TestSyncMetadata_DoesNotCreateBucketTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.SyncMetadata(ctx, "orders")
	require.NoError(t, err)

	has, err := s.HasAnyCachedObjects(ctx)
	require.NoError(t, err)
	assert.False(t, has)
}
