// Package history persists job and trial records in SQLite so operators can
// review past conversions and diagnostic batches.
package history
