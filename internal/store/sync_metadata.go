package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/localdoc/internal/jsonv"
)

// SyncMetadata is the per-bucket bookkeeping row used by the sync
// workflow. It lives in the static sync_bucket_metadata table, not in a
// bucket table.
type SyncMetadata struct {
	Bucket             string
	LastPullServerTime string
	SyncScope          *jsonv.Object
	LastSyncedAt       time.Time // zero when the bucket never completed a sync
}

// SyncMetadata returns the bucket's metadata row, creating an empty one
// on first access.
func (s *Store) SyncMetadata(ctx context.Context, bucket string) (md *SyncMetadata, err error) {
	const op = "sync_metadata"
	defer s.observe(op, time.Now(), &err)

	if err := s.checkBucket(op, bucket); err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_bucket_metadata (bucket)
		VALUES (?)
		ON CONFLICT(bucket) DO NOTHING
	`, bucket)
	if err != nil {
		return nil, storageError(op, bucket, "", err)
	}

	var (
		scope    string
		syncedMS int64
	)
	md = &SyncMetadata{Bucket: bucket}
	err = s.db.QueryRowContext(ctx, `
		SELECT last_pull_server_time, sync_scope, last_synced_at
		FROM sync_bucket_metadata
		WHERE bucket = ?
	`, bucket).Scan(&md.LastPullServerTime, &scope, &syncedMS)
	if err != nil {
		return nil, storageError(op, bucket, "", err)
	}

	md.SyncScope, err = decodeBody(scope)
	if err != nil {
		return nil, storageError(op, bucket, "", fmt.Errorf("sync scope: %w", err))
	}
	if syncedMS > 0 {
		md.LastSyncedAt = time.UnixMilli(syncedMS).UTC()
	}
	return md, nil
}

// SaveSyncMetadata writes md, creating the row if needed.
func (s *Store) SaveSyncMetadata(ctx context.Context, md *SyncMetadata) (err error) {
	const op = "save_sync_metadata"
	defer s.observe(op, time.Now(), &err)

	if md == nil {
		return invalidOp(op, "", "", "metadata is required")
	}
	if err := s.checkBucket(op, md.Bucket); err != nil {
		return err
	}

	scope := md.SyncScope
	if scope == nil {
		scope = jsonv.NewObject()
	}
	scopeJSON, err := encodeBody(scope)
	if err != nil {
		return &Error{Code: CodeInvalidOperation, Op: op, Bucket: md.Bucket, Err: err}
	}

	var syncedMS int64
	if !md.LastSyncedAt.IsZero() {
		syncedMS = md.LastSyncedAt.UnixMilli()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_bucket_metadata (bucket, last_pull_server_time, sync_scope, last_synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket) DO UPDATE SET
			last_pull_server_time = excluded.last_pull_server_time,
			sync_scope = excluded.sync_scope,
			last_synced_at = excluded.last_synced_at
	`, md.Bucket, md.LastPullServerTime, scopeJSON, syncedMS)
	if err != nil {
		return storageError(op, md.Bucket, "", err)
	}

	s.logger.Debug("sync metadata saved", "bucket", md.Bucket, "last_pull", md.LastPullServerTime)
	return nil
}

// MarkSynced records a completed pull: the server time it reached and the
// local completion time from the store's clock.
func (s *Store) MarkSynced(ctx context.Context, bucket, serverTime string) error {
	md, err := s.SyncMetadata(ctx, bucket)
	if err != nil {
		return err
	}
	md.LastPullServerTime = serverTime
	md.LastSyncedAt = s.clock.Now().UTC()
	return s.SaveSyncMetadata(ctx, md)
}
