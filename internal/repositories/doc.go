// Package repositories implements SQLite persistence for an export session.
//
// The database is opened on [shared.MemoryDSN], so everything stored here lives only as long as
// the process.
//
// Key Implementations:
//   - [GenreRepository] : artist genre cache with TTL expiry and a size bound
//   - [ExportRunRepository] : one row per export attempt, used for end-of-run summaries
//
// The [NextSequence] function hands out per-table sequence numbers inside the inserting transaction.
package repositories
