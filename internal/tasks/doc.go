// Package tasks runs playlist exports with real-time progress reporting.
//
// # Export
//
// [Exporter.Export] turns one playlist into a DJ CSV:
//
//  1. Fetch playlist contents and name concurrently. A missing name only changes the file name;
//     a contents failure fails the export. Items that are not tracks are dropped.
//  2. Stop with a notice when no tracks remain.
//  3. Resolve audio features, ISRCs and artist genres concurrently through package lookup. Every
//     lookup covers every id, so the results are zipped by position.
//  4. Encode the rows and hand the file to a [FileSink].
//
// Users see short notices through a [Notifier]. Failures produce one generic notice; the cause
// goes to the log together with the export id.
//
// [Exporter.ExportMany] runs several exports on a worker pool and collects a [BulkExportResult].
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// An optional [RunRecorder] (repositories.ExportRunRepository) stores one row per export attempt,
// which the CLI uses for its end-of-run summary.
package tasks
