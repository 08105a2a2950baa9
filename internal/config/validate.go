package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would break runtime
// behavior. It returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return fmt.Errorf("paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir must not be empty")
	}

	switch c.Engine.Mode {
	case "threaded", "single":
	default:
		return fmt.Errorf("engine.mode must be \"threaded\" or \"single\", got %q", c.Engine.Mode)
	}
	if c.Engine.LoadTimeout <= 0 {
		return fmt.Errorf("engine.load_timeout must be positive, got %d", c.Engine.LoadTimeout)
	}

	if c.Budget.FloorSeconds <= 0 {
		return fmt.Errorf("budget.floor_seconds must be positive, got %d", c.Budget.FloorSeconds)
	}
	if c.Budget.CeilingSeconds < c.Budget.FloorSeconds {
		return fmt.Errorf("budget.ceiling_seconds (%d) must be at least budget.floor_seconds (%d)",
			c.Budget.CeilingSeconds, c.Budget.FloorSeconds)
	}

	if c.Diagnostics.TrialTimeout <= 0 {
		return fmt.Errorf("diagnostics.trial_timeout must be positive, got %d", c.Diagnostics.TrialTimeout)
	}
	if c.Diagnostics.ClipSeconds <= 0 {
		return fmt.Errorf("diagnostics.clip_seconds must be positive, got %d", c.Diagnostics.ClipSeconds)
	}

	if c.Notifications.RequestTimeout <= 0 {
		return fmt.Errorf("notifications.request_timeout must be positive, got %d", c.Notifications.RequestTimeout)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}

	return nil
}
