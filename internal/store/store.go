package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/roach88/localdoc/internal/connmgr"
	"github.com/roach88/localdoc/internal/metrics"
	"github.com/roach88/localdoc/internal/objectid"
	"github.com/roach88/localdoc/internal/sqlbuild"
)

// BucketTablePrefix is prepended to a bucket name to form its table name.
const BucketTablePrefix = "bucket_"

// Column names shared by every bucket table.
const (
	ColObjectID = "objectId"
	ColJSON     = "json"
	ColState    = "state"
)

var bucketNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,128}$`)

// ValidBucketName reports whether name can be used as a bucket.
func ValidBucketName(name string) bool {
	return bucketNamePattern.MatchString(name)
}

// TableName returns the physical table name for bucket.
func TableName(bucket string) string {
	return BucketTablePrefix + bucket
}

// IDGenerator mints ids for documents inserted without one.
type IDGenerator interface {
	Next() string
}

var _ IDGenerator = (*objectid.Generator)(nil)

// Store is the per-bucket object store.
type Store struct {
	db      connmgr.DBTX
	exec    *sqlbuild.Executor
	logger  *slog.Logger
	metrics *metrics.Metrics
	ids     IDGenerator
	clock   objectid.Clock
	inTx    bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records operations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithIDGenerator replaces the ObjectId generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock sets the time source for minted ids and sync timestamps.
func WithClock(c objectid.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New returns a store that runs every statement on db.
func New(db connmgr.DBTX, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = objectid.SystemClock{}
	}
	if s.ids == nil {
		s.ids = objectid.NewGenerator(s.clock)
	}
	s.exec = sqlbuild.NewExecutor(db)
	return s
}

// withDB returns a copy of s bound to db.
func (s *Store) withDB(db connmgr.DBTX) *Store {
	c := *s
	c.db = db
	c.exec = sqlbuild.NewExecutor(db)
	return &c
}

type sqlTxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// InTx runs fn against a store bound to a serializable transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
// Nested calls are rejected.
func (s *Store) InTx(ctx context.Context, fn func(*Store) error) error {
	const op = "in_tx"
	if s.inTx {
		return invalidOp(op, "", "", "transaction already in progress")
	}

	var (
		tx  *sql.Tx
		err error
	)
	switch db := s.db.(type) {
	case connmgr.TxBeginner:
		tx, err = db.BeginTx(ctx)
	case sqlTxBeginner:
		tx, err = db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	default:
		return invalidOp(op, "", "", fmt.Sprintf("handle %T cannot begin a transaction", s.db))
	}
	if err != nil {
		return storageError(op, "", "", err)
	}
	defer tx.Rollback()

	txStore := s.withDB(tx)
	txStore.inTx = true
	if err := fn(txStore); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError(op, "", "", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) checkBucket(op, bucket string) error {
	if bucket == "" {
		return invalidOp(op, bucket, "", "bucket is required")
	}
	if !ValidBucketName(bucket) {
		return invalidOp(op, bucket, "", fmt.Sprintf("invalid bucket name %q", bucket))
	}
	return nil
}

// CreateBucketTable creates the bucket's table if it does not exist.
func (s *Store) CreateBucketTable(ctx context.Context, bucket string) (err error) {
	const op = "create_bucket"
	defer s.observe(op, time.Now(), &err)

	if err := s.checkBucket(op, bucket); err != nil {
		return err
	}
	table, err := sqlbuild.QuoteIdent(TableName(bucket))
	if err != nil {
		return invalidOp(op, bucket, "", err.Error())
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		"%s" TEXT PRIMARY KEY,
		"%s" TEXT NOT NULL,
		"%s" INTEGER NOT NULL
	)`, table, ColObjectID, ColJSON, ColState)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return storageError(op, bucket, "", err)
	}

	s.logger.Debug("bucket table ensured", "bucket", bucket)
	return nil
}

// DropBucketTable drops the bucket's table. Dropping a missing bucket is a no-op.
func (s *Store) DropBucketTable(ctx context.Context, bucket string) (err error) {
	const op = "drop_bucket"
	defer s.observe(op, time.Now(), &err)

	if err := s.checkBucket(op, bucket); err != nil {
		return err
	}
	table, err := sqlbuild.QuoteIdent(TableName(bucket))
	if err != nil {
		return invalidOp(op, bucket, "", err.Error())
	}

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return storageError(op, bucket, "", err)
	}

	s.logger.Debug("bucket table dropped", "bucket", bucket)
	return nil
}

// bucketExists checks sqlite_master for the bucket's table.
func (s *Store) bucketExists(ctx context.Context, bucket string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		TableName(bucket),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) observe(op string, start time.Time, errp *error) {
	s.metrics.ObserveStoreOp(op, start, *errp)
}
