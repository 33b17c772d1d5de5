// Package tasks runs long library operations against the series backend with real-time progress reporting.
//
// # Core Operations
//
// [LibraryEngine] provides two operations:
//
//  1. [LibraryEngine.Export] : Export every followed series with its watch state
//     - Forces a fresh fetch of the followed-series list
//     - Fetches each series detail under a [rate.Limiter]
//     - Writes files through a pool of workers using the formatter package (json, csv, markdown, txt)
//     - Writes export_manifest.json summarizing successes and failures
//
//  2. [LibraryEngine.Dump] : Fetch raw account payloads
//     - /init, /users/me/series, /notifications and /series/popular
//     - Failed endpoints are collected in [DumpResult.Errors]
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default so a slow or absent reader never stalls an operation.
//
// # Export History
//
// The optional [JobStore] (repositories.ExportJobRepository) records each export run with its counters.
// Recording errors are logged and never abort the export.
package tasks
