// Package store provides durable storage for tasks, molecule documents and
// the pass log.
//
// The same SQL runs on two backends through database/sql:
//   - SQLite (github.com/mattn/go-sqlite3) for embedded use and tests
//   - PostgreSQL (github.com/jackc/pgx/v5/stdlib) for shared deployments
//
// # Critical Patterns
//
// Deterministic reads: every multi-row query orders by its key column with a
// byte-order collation (COLLATE BINARY / COLLATE "C"), so results are
// identical across backends and runs.
//
// Idempotent writes: tasks and molecules are written with
// INSERT ... ON CONFLICT DO UPDATE keyed by id. A molecule whose content
// digest is unchanged only has its pass stamp rewritten.
//
// Fixed-width timestamps: every timestamp column holds mol.TimeLayout text,
// so text comparison is chronological comparison.
//
// # SQLite configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//   - a single open connection (one writer)
package store
