// Package diagnostics exercises the conversion pipeline across a ladder of
// resolution configurations using a short audio-free clip of one input. Each
// trial runs to completion before the next starts, so an engine failure in
// one trial cannot contaminate another. The batch is a report, not a test:
// it has no overall pass or fail.
package diagnostics
