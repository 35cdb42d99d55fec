package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Code categorizes store errors.
type Code string

const (
	// CodeInvalidOperation marks a caller bug: nil document, empty bucket,
	// missing id.
	CodeInvalidOperation Code = "INVALID_OPERATION"

	// CodeConflict marks a primary-key or unique constraint violation.
	CodeConflict Code = "CONFLICT"

	// CodeStorage marks any other failure reported by SQLite.
	CodeStorage Code = "STORAGE"
)

// Sentinels matched by *Error through errors.Is.
var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrConflict         = errors.New("conflict")
)

// Error is returned by every Store operation that fails.
type Error struct {
	Code   Code
	Op     string
	Bucket string
	ID     string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Bucket != "" {
		fmt.Fprintf(&b, " bucket=%s", e.Bucket)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%s", e.ID)
	}
	fmt.Fprintf(&b, ": %s", e.Code)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying error, usually a sqlite3.Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidOperation:
		return e.Code == CodeInvalidOperation
	case ErrConflict:
		return e.Code == CodeConflict
	default:
		return false
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsConflict returns true if the error is a constraint conflict.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}

// IsInvalidOperation returns true if the error reports a caller bug.
func IsInvalidOperation(err error) bool {
	return CodeOf(err) == CodeInvalidOperation
}

func invalidOp(op, bucket, id, msg string) error {
	return &Error{Code: CodeInvalidOperation, Op: op, Bucket: bucket, ID: id, Err: errors.New(msg)}
}

// storageError wraps err from SQLite, classifying constraint violations
// as conflicts.
func storageError(op, bucket, id string, err error) error {
	if err == nil {
		return nil
	}

	code := CodeStorage
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			code = CodeConflict
		}
	}
	return &Error{Code: code, Op: op, Bucket: bucket, ID: id, Err: err}
}
