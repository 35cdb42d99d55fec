package store

import (
	"context"
	"errors"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/objectid"
)

func TestInsertGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tests := []struct {
		name  string
		body  string
		state SyncState
	}{
		{"flat", `{"_id":"a","name":"cart","n":5}`, StateClean},
		{"nested", `{"_id":"b","addr":{"city":"Oslo","zip":["0150"]},"tags":[1,"x",null,true]}`, StateDirty},
		{"big number", `{"_id":"c","n":9007199254740993,"f":1.50}`, StateClean},
		{"unicode", `{"_id":"d","s":"héllo é 😀"}`, StateDirty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc("orders", tt.body)
			want := doc.Body.Clone()

			require.NoError(t, s.Insert(ctx, doc, tt.state))

			got, err := s.Get(ctx, "orders", doc.ID)
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.True(t, jsonv.Equal(want, got.Body), "body mismatch")
			assert.Equal(t, want.Keys(), got.Body.Keys(), "key order must survive")
			assert.Equal(t, tt.state, got.State)
			assert.Equal(t, "orders", got.Bucket)
		})
	}
}

func TestInsert_MintsObjectID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	a := newDoc("orders", `{"v":1}`)
	b := newDoc("orders", `{"v":2}`)
	require.NoError(t, s.Insert(ctx, a, StateDirty))
	require.NoError(t, s.Insert(ctx, b, StateDirty))

	assert.Len(t, a.ID, 24)
	assert.True(t, objectid.Valid(a.ID))
	assert.NotEqual(t, a.ID, b.ID)

	// The minted id is written into the body.
	v, ok := a.Body.Get(KeyID)
	require.True(t, ok)
	assert.Equal(t, jsonv.String(a.ID), v)

	got, err := s.Get(ctx, "orders", a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.ID, got.ID)
}

func TestInsert_IDSources(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(&sequenceIDs{ids: []string{"minted"}}))

	explicit := &Document{ID: "field", Bucket: "b", Body: jsonv.MustParseObject(`{"_id":"ignored"}`)}
	require.NoError(t, s.Insert(ctx, explicit, StateClean))
	assert.Equal(t, "field", explicit.ID)
	v, _ := explicit.Body.Get(KeyID)
	assert.Equal(t, jsonv.String("field"), v)

	fromBody := newDoc("b", `{"_id":"body"}`)
	require.NoError(t, s.Insert(ctx, fromBody, StateClean))
	assert.Equal(t, "body", fromBody.ID)

	// A non-string _id is not an id.
	numeric := newDoc("b", `{"_id":5}`)
	require.NoError(t, s.Insert(ctx, numeric, StateClean))
	assert.Equal(t, "minted", numeric.ID)
}

func TestInsert_NilBody(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	doc := &Document{Bucket: "orders"}
	require.NoError(t, s.Insert(ctx, doc, StateClean))

	got, err := s.Get(ctx, "orders", doc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{KeyID}, got.Body.Keys())
}

func TestInsert_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Insert(ctx, newDoc("orders", `{"_id":"a"}`), StateClean))
	err := s.Insert(ctx, newDoc("orders", `{"_id":"a"}`), StateDirty)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsConflict(err))
	assert.False(t, IsInvalidOperation(err))

	var sqliteErr sqlite3.Error
	require.True(t, errors.As(err, &sqliteErr), "raw driver error must stay reachable")
	assert.Equal(t, sqlite3.ErrConstraintPrimaryKey, sqliteErr.ExtendedCode)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "insert", se.Op)
	assert.Equal(t, "orders", se.Bucket)
	assert.Equal(t, "a", se.ID)
}

func TestInsert_FailureLeavesDocumentUntouched(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(&sequenceIDs{ids: []string{"a"}}))
	require.NoError(t, s.Insert(ctx, newDoc("orders", `{"_id":"a"}`), StateClean))

	// The minted id collides with the existing row.
	minted := newDoc("orders", `{"v":2}`)
	require.True(t, IsConflict(s.Insert(ctx, minted, StateDirty)))
	assert.Empty(t, minted.ID)
	assert.Equal(t, StateClean, minted.State)
	assert.Equal(t, []string{"v"}, minted.Body.Keys())

	explicit := &Document{ID: "a", Bucket: "orders", Body: jsonv.MustParseObject(`{"v":3}`)}
	require.True(t, IsConflict(s.Insert(ctx, explicit, StateClean)))
	assert.Equal(t, []string{"v"}, explicit.Body.Keys())

	var bare Document
	bare.ID, bare.Bucket = "a", "orders"
	require.True(t, IsConflict(s.Insert(ctx, &bare, StateClean)))
	assert.Nil(t, bare.Body)
}

func TestInvalidOperations(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	tests := []struct {
		name string
		run  func() error
	}{
		{"insert nil", func() error { return s.Insert(ctx, nil, StateClean) }},
		{"insert empty bucket", func() error { return s.Insert(ctx, &Document{}, StateClean) }},
		{"update nil", func() error { _, err := s.Update(ctx, nil, StateClean); return err }},
		{"update missing id", func() error { _, err := s.Update(ctx, newDoc("orders", `{"v":1}`), StateClean); return err }},
		{"delete missing id", func() error { _, err := s.Delete(ctx, newDoc("orders", `{"v":1}`)); return err }},
		{"get empty id", func() error { _, err := s.Get(ctx, "orders", ""); return err }},
		{"scan empty bucket", func() error { _, err := s.Scan(ctx, "", ""); return err }},
		{"save nil metadata", func() error { return s.SaveSyncMetadata(ctx, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOperation)
			assert.Equal(t, CodeInvalidOperation, CodeOf(err))
		})
	}
}

func TestGet_Absent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// No table at all.
	doc, err := s.Get(ctx, "orders", "a")
	require.NoError(t, err)
	assert.Nil(t, doc)

	// Table but no row.
	require.NoError(t, s.CreateBucketTable(ctx, "orders"))
	doc, err = s.Get(ctx, "orders", "a")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	doc := newDoc("orders", `{"_id":"a","v":1}`)
	require.NoError(t, s.Insert(ctx, doc, StateClean))

	doc.Body.Set("v", jsonv.NewInt(2))
	n, err := s.Update(ctx, doc, StateDirty)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Get(ctx, "orders", "a")
	require.NoError(t, err)
	assert.True(t, jsonv.Equal(jsonv.MustParseObject(`{"_id":"a","v":2}`), got.Body))
	assert.Equal(t, StateDirty, got.State)
}

func TestUpdateDelete_GoneRowReportsZero(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// Missing bucket.
	n, err := s.Update(ctx, newDoc("orders", `{"_id":"a"}`), StateDirty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, s.Insert(ctx, newDoc("orders", `{"_id":"a"}`), StateClean))

	n, err = s.Delete(ctx, newDoc("orders", `{"_id":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Concurrently deleted row.
	n, err = s.Update(ctx, newDoc("orders", `{"_id":"a"}`), StateDirty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = s.Delete(ctx, &Document{ID: "a", Bucket: "orders"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDirtyTracking(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	doc := newDoc("orders", `{"_id":"a","v":1}`)
	require.NoError(t, s.Insert(ctx, doc, StateClean))
	require.NoError(t, s.Insert(ctx, newDoc("orders", `{"_id":"b"}`), StateClean))

	ids, err := s.DirtyIDs(ctx, "orders")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = s.Update(ctx, doc, StateDirty)
	require.NoError(t, err)
	ids, err = s.DirtyIDs(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	docs, err := s.DirtyDocuments(ctx, "orders")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, StateDirty, docs[0].State)

	_, err = s.Update(ctx, doc, StateClean)
	require.NoError(t, err)
	ids, err = s.DirtyIDs(ctx, "orders")
	require.NoError(t, err)
	assert.NotContains(t, ids, "a")
}

func TestDocument_DeletedMarker(t *testing.T) {
	assert.True(t, newDoc("b", `{"deleted":true}`).Deleted())
	assert.False(t, newDoc("b", `{"deleted":false}`).Deleted())
	assert.False(t, newDoc("b", `{"deleted":"true"}`).Deleted())
	assert.False(t, newDoc("b", `{}`).Deleted())
	assert.False(t, (*Document)(nil).Deleted())
}

func TestSyncState_String(t *testing.T) {
	assert.Equal(t, "clean", StateClean.String())
	assert.Equal(t, "dirty", StateDirty.String())
	assert.Equal(t, "SyncState(7)", SyncState(7).String())

	st, err := ParseSyncState("DIRTY")
	require.NoError(t, err)
	assert.Equal(t, StateDirty, st)
	_, err = ParseSyncState("stale")
	assert.Error(t, err)
}
