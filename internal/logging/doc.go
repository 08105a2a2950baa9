// Package logging configures slog handlers and shared attribute helpers for
// reframe components. It offers a console handler for interactive use, a JSON
// handler for machine consumption, and a sampler that keeps progress output
// readable during long engine invocations.
package logging
