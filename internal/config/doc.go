// Package config loads, normalizes, and validates the TOML configuration for
// reframe. Paths are expanded, env overrides applied, and defaults filled in
// before validation runs.
package config
