package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for a missing config file")
	}
	if cfg.Engine.Mode != "threaded" {
		t.Fatalf("default mode = %q, want threaded", cfg.Engine.Mode)
	}
	if cfg.Budget.FloorSeconds != 15 || cfg.Budget.CeilingSeconds != 900 {
		t.Fatalf("default budget clamps = %d/%d, want 15/900", cfg.Budget.FloorSeconds, cfg.Budget.CeilingSeconds)
	}
	if cfg.Diagnostics.TrialTimeout != 45 {
		t.Fatalf("default trial timeout = %d, want 45", cfg.Diagnostics.TrialTimeout)
	}
	if !filepath.IsAbs(cfg.Paths.StagingDir) {
		t.Fatalf("staging dir not expanded: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"

[engine]
mode = "single"
ffmpeg_binary = "/opt/ffmpeg/bin/ffmpeg"

[diagnostics]
trial_timeout = 90
allow_upscale = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Engine.Mode != "single" {
		t.Fatalf("mode = %q, want single", cfg.Engine.Mode)
	}
	if cfg.Engine.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg binary = %q", cfg.Engine.FFmpegBinary)
	}
	if cfg.Diagnostics.TrialTimeout != 90 {
		t.Fatalf("trial timeout = %d, want 90", cfg.Diagnostics.TrialTimeout)
	}
	if !cfg.Diagnostics.AllowUpscale {
		t.Fatal("expected allow_upscale=true")
	}
	// Unset sections keep defaults.
	if cfg.Logging.Format != "console" {
		t.Fatalf("logging format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[engine]\nmode = \"forked\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for bad engine mode")
	}
	if !strings.Contains(err.Error(), "engine.mode") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvertedBudgetClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[budget]\nfloor_seconds = 120\nceiling_seconds = 60\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for ceiling below floor")
	}
}

func TestNtfyTopicEnvOverride(t *testing.T) {
	t.Setenv("REFRAME_NTFY_TOPIC", "reframe-jobs")
	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "reframe-jobs" {
		t.Fatalf("ntfy topic = %q, want reframe-jobs", cfg.Notifications.NtfyTopic)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/videos")
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if got != filepath.Join(home, "videos") {
		t.Fatalf("expandPath = %q", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("embedded sample config failed to load: %v", err)
	}
	defaults := Default()
	if cfg.Engine.Mode != defaults.Engine.Mode {
		t.Fatalf("sample config mode %q differs from default %q", cfg.Engine.Mode, defaults.Engine.Mode)
	}
	if cfg.Budget.CeilingSeconds != defaults.Budget.CeilingSeconds {
		t.Fatalf("sample config ceiling %d differs from default %d", cfg.Budget.CeilingSeconds, defaults.Budget.CeilingSeconds)
	}
}
