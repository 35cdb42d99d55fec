package connmgr

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the statement surface shared by *Conn, *sql.Conn, *sql.DB and
// *sql.Tx. Everything above connmgr depends on this, not on a concrete handle.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner is implemented by handles that can start a transaction.
type TxBeginner interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

// Conn is one physical connection. A session Conn must only be used by
// the goroutine that owns the session; the in-memory master is shared and
// relies on database/sql serializing calls on a single connection.
type Conn struct {
	id       string
	conn     *sql.Conn
	inMemory bool
}

var (
	_ DBTX       = (*Conn)(nil)
	_ TxBeginner = (*Conn)(nil)
)

// ID returns the session id, or MasterID.
func (c *Conn) ID() string { return c.id }

// InMemory reports whether the connection belongs to an in-memory database.
func (c *Conn) InMemory() bool { return c.inMemory }

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a serializable transaction on this connection.
func (c *Conn) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := c.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction on %s: %w", c.id, err)
	}
	return tx, nil
}
