// Package sqlite provides a SQLite-backed run journal.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It records one row per ingestion run and
// one row per processed slide, so operators can list past runs and find the slides
// that were skipped.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.slidelake/data/journal.db
//
// # Thread Safety
//
// All operations are thread-safe. The journal uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
