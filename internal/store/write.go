package store

import (
	"context"
	"time"

	"github.com/roach88/localdoc/internal/jsonv"
	"github.com/roach88/localdoc/internal/sqlbuild"
)

// Insert writes doc as a new row tagged with state, creating the bucket
// table on first use.
//
// The id is doc.ID, else a string "_id" in the body, else a freshly
// minted ObjectId. On success doc.ID, doc.State and doc.Body (with "_id"
// set) are replaced by the stored values; on failure doc is untouched. A
// duplicate id returns an *Error with CodeConflict.
func (s *Store) Insert(ctx context.Context, doc *Document, state SyncState) (err error) {
	const op = "insert"
	defer s.observe(op, time.Now(), &err)

	if doc == nil {
		return invalidOp(op, "", "", "document is required")
	}
	if err := s.checkBucket(op, doc.Bucket); err != nil {
		return err
	}
	if err := s.CreateBucketTable(ctx, doc.Bucket); err != nil {
		return err
	}

	id := doc.resolveID()
	if id == "" {
		id = s.ids.Next()
	}
	stored := doc.Body.Clone()
	if stored == nil {
		stored = jsonv.NewObject()
	}
	stored.Set(KeyID, jsonv.String(id))

	body, err := encodeBody(stored)
	if err != nil {
		return &Error{Code: CodeInvalidOperation, Op: op, Bucket: doc.Bucket, ID: id, Err: err}
	}

	_, err = s.exec.Exec(ctx, sqlbuild.Insert{
		Table: TableName(doc.Bucket),
		Values: []sqlbuild.Col{
			sqlbuild.C(ColObjectID, id),
			sqlbuild.C(ColJSON, body),
			sqlbuild.C(ColState, int(state)),
		},
	})
	if err != nil {
		return storageError(op, doc.Bucket, id, err)
	}

	doc.ID = id
	doc.State = state
	doc.Body = stored
	s.logger.Debug("document inserted", "bucket", doc.Bucket, "id", id, "state", state.String())
	return nil
}

// Update replaces the body and state of the row with doc's id.
// Returns the number of rows affected: 0 when the row (or the whole
// bucket) no longer exists, which is not an error.
func (s *Store) Update(ctx context.Context, doc *Document, state SyncState) (n int64, err error) {
	const op = "update"
	defer s.observe(op, time.Now(), &err)

	id, err := s.requireID(op, doc)
	if err != nil {
		return 0, err
	}
	exists, err := s.bucketExists(ctx, doc.Bucket)
	if err != nil {
		return 0, storageError(op, doc.Bucket, id, err)
	}
	if !exists {
		return 0, nil
	}

	if doc.Body == nil {
		doc.Body = jsonv.NewObject()
	}
	doc.Body.Set(KeyID, jsonv.String(id))
	body, err := encodeBody(doc.Body)
	if err != nil {
		return 0, &Error{Code: CodeInvalidOperation, Op: op, Bucket: doc.Bucket, ID: id, Err: err}
	}

	n, err = s.exec.Exec(ctx, sqlbuild.Update{
		Table: TableName(doc.Bucket),
		Values: []sqlbuild.Col{
			sqlbuild.C(ColJSON, body),
			sqlbuild.C(ColState, int(state)),
		},
		Where: `"` + ColObjectID + `" = ?`,
		Args:  []any{id},
	})
	if err != nil {
		return 0, storageError(op, doc.Bucket, id, err)
	}

	if n > 0 {
		doc.ID = id
		doc.State = state
	}
	s.logger.Debug("document updated", "bucket", doc.Bucket, "id", id, "state", state.String(), "rows", n)
	return n, nil
}

// Delete removes the row with doc's id and returns the rows affected.
func (s *Store) Delete(ctx context.Context, doc *Document) (n int64, err error) {
	const op = "delete"
	defer s.observe(op, time.Now(), &err)

	id, err := s.requireID(op, doc)
	if err != nil {
		return 0, err
	}
	exists, err := s.bucketExists(ctx, doc.Bucket)
	if err != nil {
		return 0, storageError(op, doc.Bucket, id, err)
	}
	if !exists {
		return 0, nil
	}

	n, err = s.exec.Exec(ctx, sqlbuild.Delete{
		Table: TableName(doc.Bucket),
		Where: `"` + ColObjectID + `" = ?`,
		Args:  []any{id},
	})
	if err != nil {
		return 0, storageError(op, doc.Bucket, id, err)
	}

	s.logger.Debug("document deleted", "bucket", doc.Bucket, "id", id, "rows", n)
	return n, nil
}

// requireID validates the arguments shared by Update and Delete.
func (s *Store) requireID(op string, doc *Document) (string, error) {
	if doc == nil {
		return "", invalidOp(op, "", "", "document is required")
	}
	if err := s.checkBucket(op, doc.Bucket); err != nil {
		return "", err
	}
	id := doc.resolveID()
	if id == "" {
		return "", invalidOp(op, doc.Bucket, "", "document id is required")
	}
	return id, nil
}
