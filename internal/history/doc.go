// Package history records job state transitions in SQLite.
//
// Every state a file passes through is appended as one row so operators can
// see what happened to a file after the fact. The ledger is observability
// only: the daemon never reads it back to decide what to encode, and a
// missing or cleared database simply starts empty. Schema changes bump the
// version in schema.go; users delete the database to adopt the new schema.
package history
