// Package store persists JSON documents in per-bucket SQLite tables.
//
// Every bucket maps to one table named BucketTablePrefix+bucket with three
// columns: objectId (primary key), json (the full document body) and state
// (the sync state set by the caller). Tables are created on first insert
// and dropped explicitly.
//
// Point lookups and zero-row updates are normal outcomes: Get returns a nil
// document and Update/Delete return 0. Contract violations such as a
// missing id return ErrInvalidOperation immediately. Storage failures are
// wrapped in *Error and never retried.
//
// A Store runs on whatever connmgr.DBTX it is given. Hand it a session
// connection for confined access, or call InTx for a serializable
// multi-statement unit.
package store
