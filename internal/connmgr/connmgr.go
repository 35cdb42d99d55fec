package connmgr

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Index on sync_bucket_metadata.last_synced_at
const currentSchemaVersion = 1

// MemoryPath is the path that selects an in-memory database.
const MemoryPath = ":memory:"

// MasterID is the session id reported by the master connection.
const MasterID = "master"

// DefaultBusyTimeout is used when Options.BusyTimeout is zero.
const DefaultBusyTimeout = 5 * time.Second

// ErrClosed is returned by Session and NewSession after Close.
var ErrClosed = errors.New("connection manager is closed")

// Options configures Open.
type Options struct {
	// Path is the database file, or ":memory:".
	Path string

	// InMemory forces an in-memory database regardless of Path.
	InMemory bool

	// BusyTimeout bounds how long a connection waits on a locked database.
	BusyTimeout time.Duration

	Logger *slog.Logger
}

// Manager hands out connections to one database.
type Manager struct {
	db       *sql.DB
	master   *Conn
	inMemory bool
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Conn
	closed   bool
}

// Open creates or opens the database described by opts, pins the master
// connection, and applies the static schema and migrations.
//
// Disk databases are configured through the DSN so every pooled
// connection gets the same settings:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - busy timeout for lock contention
//   - foreign key enforcement
//
// This function is idempotent - safe to call multiple times on one path.
func Open(ctx context.Context, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inMemory := opts.InMemory || opts.Path == MemoryPath
	if !inMemory && opts.Path == "" {
		return nil, fmt.Errorf("open database: empty path")
	}

	db, err := sql.Open("sqlite3", buildDSN(opts.Path, inMemory, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if inMemory {
		// Each connection to ":memory:" is a separate database, so the
		// pool is held at exactly one connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	raw, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	m := &Manager{
		db:       db,
		master:   &Conn{id: MasterID, conn: raw, inMemory: inMemory},
		inMemory: inMemory,
		logger:   logger,
		sessions: make(map[string]*Conn),
	}

	if err := m.applySchema(ctx); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Debug("database opened", "path", opts.Path, "in_memory", inMemory)
	return m, nil
}

func buildDSN(path string, inMemory bool, busy time.Duration) string {
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	params := url.Values{}
	params.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))
	params.Set("_foreign_keys", "on")

	if inMemory {
		return MemoryPath + "?" + params.Encode()
	}

	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	return path + "?" + params.Encode()
}

// InMemory reports whether the database lives in memory.
func (m *Manager) InMemory() bool {
	return m.inMemory
}

// Master returns the connection pinned at open time.
func (m *Manager) Master() *Conn {
	return m.master
}

// Session returns the connection confined to id, opening one on first use.
// In-memory databases always return the master connection.
func (m *Manager) Session(ctx context.Context, id string) (*Conn, error) {
	if m.inMemory {
		return m.master, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if c, ok := m.sessions[id]; ok {
		return c, nil
	}

	raw, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session %q: %w", id, err)
	}
	c := &Conn{id: id, conn: raw}
	m.sessions[id] = c

	m.logger.Debug("session opened", "session", id)
	return c, nil
}

// NewSession mints a session id and returns its connection.
func (m *Manager) NewSession(ctx context.Context) (*Conn, error) {
	return m.Session(ctx, uuid.NewString())
}

// Release closes the connection held for id. Unknown ids are ignored.
func (m *Manager) Release(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	m.logger.Debug("session released", "session", id)
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("release session %q: %w", id, err)
	}
	return nil
}

// Sessions returns the number of open session connections.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close releases every session, the master connection and the pool.
// Calling Close more than once is safe.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Conn)
	m.mu.Unlock()

	var errs []error
	for id, c := range sessions {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %q: %w", id, err))
		}
	}
	if err := m.master.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close master: %w", err))
	}
	if err := m.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// applySchema creates static tables if they don't exist and runs migrations.
// This function is idempotent.
func (m *Manager) applySchema(ctx context.Context) error {
	if _, err := m.master.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := m.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func (m *Manager) runMigrations(ctx context.Context) error {
	var version int
	if err := m.master.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(ctx, m.master); err != nil {
			return err
		}
	}

	if _, err := m.master.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes sync metadata by completion time so the sync
// workflow can find the stalest bucket without a scan.
func migrateToV1(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_sync_bucket_metadata_last_synced
		ON sync_bucket_metadata(last_synced_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value on c.
// Used for testing.
func verifyPragma(ctx context.Context, c *Conn, name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := c.QueryRowContext(ctx, query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
