// Package store provides the durable relational store for accounts and
// classification records.
//
// # Architecture
//
// The package is interface-driven:
//
//   - AccountStore: account creation, lookup, listing and deletion
//   - RecordStore: per-account classification records
//   - AuditStore: append-only maintenance audit trail
//
// SQLiteStore implements all three in a single struct. Callers receive the
// narrow interface they need.
//
// # SQLite Configuration
//
// Two drivers are supported and chosen by name:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// Both are opened with WAL journaling, foreign keys and a busy timeout set in
// the DSN so every pooled connection carries them. Writes go through a single
// connection; the engine serializes conflicting writers.
//
// # Invariants
//
//   - At most one account per normalized (trimmed, lowercased) email. This is
//     enforced by a UNIQUE constraint, never by read-then-write.
//   - A record always references an existing account. Inserts for unknown
//     accounts fail with ErrForeignKey.
//   - Deleting an account removes its records in the same transaction.
//
// # Migrations
//
// Schema migrations are embedded SQL files applied with goose on open.
//
// # Testing
//
// Use a file under t.TempDir(); see setupTestStore in the package tests.
package store
