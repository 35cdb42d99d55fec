package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/localdoc/internal/sqlbuild"
)

// Get returns the document with id, or nil when no such row exists.
// A bucket whose table was never created reads as empty.
func (s *Store) Get(ctx context.Context, bucket, id string) (doc *Document, err error) {
	const op = "get"
	defer s.observe(op, time.Now(), &err)

	if err := s.checkBucket(op, bucket); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, invalidOp(op, bucket, "", "document id is required")
	}

	exists, err := s.bucketExists(ctx, bucket)
	if err != nil {
		return nil, storageError(op, bucket, id, err)
	}
	if !exists {
		return nil, nil
	}

	row, err := s.exec.QueryRow(ctx, sqlbuild.Select{
		Table:   TableName(bucket),
		Columns: []string{ColObjectID, ColJSON, ColState},
		Where:   `"` + ColObjectID + `" = ?`,
		Args:    []any{id},
	})
	if err != nil {
		return nil, storageError(op, bucket, id, err)
	}

	doc, err = scanDocument(row, bucket)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(op, bucket, id, err)
	}
	return doc, nil
}

// Scan returns every row of bucket matching where (a SQL predicate over
// the objectId, json and state columns, with ? placeholders bound from
// args), in storage order. An empty where matches every row.
//
// Rows whose body no longer parses as a JSON object are skipped with a
// warning. Returns an empty slice (not nil) when nothing matches or the
// bucket does not exist.
func (s *Store) Scan(ctx context.Context, bucket, where string, args ...any) (docs []Document, err error) {
	const op = "scan"
	defer s.observe(op, time.Now(), &err)

	if err := s.checkBucket(op, bucket); err != nil {
		return nil, err
	}

	exists, err := s.bucketExists(ctx, bucket)
	if err != nil {
		return nil, storageError(op, bucket, "", err)
	}
	if !exists {
		return []Document{}, nil
	}

	rows, err := s.exec.Query(ctx, sqlbuild.Select{
		Table:   TableName(bucket),
		Columns: []string{ColObjectID, ColJSON, ColState},
		Where:   where,
		Args:    args,
		OrderBy: "rowid",
	})
	if err != nil {
		return nil, storageError(op, bucket, "", err)
	}
	defer rows.Close()

	docs = []Document{}
	scanned := 0
	for rows.Next() {
		scanned++
		doc, err := scanDocument(rows, bucket)
		if errors.Is(err, errUndecodable) {
			s.logger.Warn("skipping undecodable row", "bucket", bucket, "error", err)
			continue
		}
		if err != nil {
			return nil, storageError(op, bucket, "", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, bucket, "", fmt.Errorf("iterate rows: %w", err))
	}

	s.metrics.AddRowsScanned(scanned)
	return docs, nil
}

// DirtyIDs returns the ids of dirty documents in storage order.
func (s *Store) DirtyIDs(ctx context.Context, bucket string) ([]string, error) {
	docs, err := s.DirtyDocuments(ctx, bucket)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// DirtyDocuments returns the dirty documents in storage order.
func (s *Store) DirtyDocuments(ctx context.Context, bucket string) ([]Document, error) {
	return s.Scan(ctx, bucket, `"`+ColState+`" = ?`, int(StateDirty))
}

// ListBucketTables returns the names of all buckets that have a table,
// sorted by name.
func (s *Store) ListBucketTables(ctx context.Context) (buckets []string, err error) {
	const op = "list_buckets"
	defer s.observe(op, time.Now(), &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND substr(name, 1, ?) = ?
		ORDER BY name
	`, len(BucketTablePrefix), BucketTablePrefix)
	if err != nil {
		return nil, storageError(op, "", "", err)
	}
	defer rows.Close()

	buckets = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageError(op, "", "", fmt.Errorf("scan table name: %w", err))
		}
		buckets = append(buckets, strings.TrimPrefix(name, BucketTablePrefix))
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, "", "", fmt.Errorf("iterate tables: %w", err))
	}
	return buckets, nil
}

// HasAnyCachedObjects reports whether any bucket table holds at least one
// row. Each table is probed with a LIMIT 1 select, stopping at the first hit.
func (s *Store) HasAnyCachedObjects(ctx context.Context) (found bool, err error) {
	const op = "has_any"
	defer s.observe(op, time.Now(), &err)

	buckets, err := s.ListBucketTables(ctx)
	if err != nil {
		return false, err
	}

	for _, bucket := range buckets {
		row, err := s.exec.QueryRow(ctx, sqlbuild.Select{
			Table:   TableName(bucket),
			Columns: []string{ColObjectID},
			Limit:   1,
		})
		if err != nil {
			return false, storageError(op, bucket, "", err)
		}
		var id string
		switch err := row.Scan(&id); err {
		case nil:
			return true, nil
		case sql.ErrNoRows:
			continue
		default:
			return false, storageError(op, bucket, "", err)
		}
	}
	return false, nil
}

// BucketStats summarizes one bucket.
type BucketStats struct {
	Bucket string `json:"bucket"`
	Rows   int64  `json:"rows"`
	Dirty  int64  `json:"dirty"`
}

// Stats returns row and dirty counts for every bucket, sorted by name.
func (s *Store) Stats(ctx context.Context) (stats []BucketStats, err error) {
	const op = "stats"
	defer s.observe(op, time.Now(), &err)

	buckets, err := s.ListBucketTables(ctx)
	if err != nil {
		return nil, err
	}

	stats = make([]BucketStats, 0, len(buckets))
	for _, bucket := range buckets {
		table, err := sqlbuild.QuoteIdent(TableName(bucket))
		if err != nil {
			// A table created outside the store with an odd name.
			s.logger.Warn("skipping bucket with invalid table name", "bucket", bucket)
			continue
		}
		bs := BucketStats{Bucket: bucket}
		err = s.db.QueryRowContext(ctx, fmt.Sprintf(
			`SELECT COUNT(*), COALESCE(SUM(CASE WHEN "%s" = ? THEN 1 ELSE 0 END), 0) FROM %s`,
			ColState, table,
		), int(StateDirty)).Scan(&bs.Rows, &bs.Dirty)
		if err != nil {
			return nil, storageError(op, bucket, "", err)
		}
		stats = append(stats, bs)
	}
	return stats, nil
}

var errUndecodable = errors.New("undecodable document body")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, bucket string) (*Document, error) {
	var (
		id    string
		raw   string
		state int
	)
	if err := row.Scan(&id, &raw, &state); err != nil {
		return nil, err
	}
	body, err := decodeBody(raw)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w: %v", id, errUndecodable, err)
	}
	return &Document{ID: id, Bucket: bucket, Body: body, State: SyncState(state)}, nil
}
