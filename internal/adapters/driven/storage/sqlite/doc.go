// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every store interface
// through a single database connection:
//
//   - SourceStore: source configuration persistence
//   - SnapshotStore: last known good records per source
//   - MappingHistoryStore: accepted field mappings
//   - ChangeStore: the offline status change queue
//   - StatusHistoryStore: confirmed status changes
//   - SchedulerStore: background task state and results
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.parcelsync/data/parcelsync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
