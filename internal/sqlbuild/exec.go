package sqlbuild

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/localdoc/internal/connmgr"
)

// Executor compiles statements and runs them on a connection.
type Executor struct {
	db       connmgr.DBTX
	compiler Compiler
}

// NewExecutor returns an executor bound to db.
func NewExecutor(db connmgr.DBTX) *Executor {
	return &Executor{db: db}
}

// Exec runs an Insert, Update or Delete and returns the affected row count.
func (e *Executor) Exec(ctx context.Context, stmt Statement) (int64, error) {
	switch stmt.(type) {
	case Select, *Select:
		return 0, fmt.Errorf("exec: select must go through Query")
	}

	query, params, err := e.compiler.Compile(stmt)
	if err != nil {
		return 0, err
	}

	res, err := e.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Query runs a Select and returns a forward-only cursor.
// Callers are responsible for closing the returned rows.
func (e *Executor) Query(ctx context.Context, s Select) (*sql.Rows, error) {
	query, params, err := e.compiler.Compile(s)
	if err != nil {
		return nil, err
	}
	return e.db.QueryContext(ctx, query, params...)
}

// QueryRow runs a Select expected to return at most one row.
func (e *Executor) QueryRow(ctx context.Context, s Select) (*sql.Row, error) {
	query, params, err := e.compiler.Compile(s)
	if err != nil {
		return nil, err
	}
	return e.db.QueryRowContext(ctx, query, params...), nil
}
