// Package connmgr owns the physical SQLite handles behind a localdoc store.
//
// A Manager opens the database once and pins a master connection used for
// schema DDL. Callers that need isolation ask for a session-confined
// connection by id; on disk each session gets its own pooled connection,
// while an in-memory database has exactly one connection that every
// session shares.
package connmgr
