package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[engine]") {
		t.Fatal("sample config missing [engine] section")
	}
	if !strings.Contains(out.String(), target) {
		t.Fatalf("output %q does not mention target", out.String())
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("# existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --overwrite")
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(target, []byte("[engine]\nmode = \"forked\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"config", "validate", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRenderTable(t *testing.T) {
	output := renderTable(
		[]string{"Name", "Value"},
		[][]string{{"alpha", "1"}, {"beta"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(output, "alpha") || !strings.Contains(output, "beta") {
		t.Fatalf("table missing rows:\n%s", output)
	}
	if !strings.Contains(output, "Name") {
		t.Fatalf("table missing header:\n%s", output)
	}
}

func TestRenderTableStatusColumn(t *testing.T) {
	output := renderTable(
		[]string{"Trial", "Status"},
		[][]string{{"480p", "timed_out"}, {"360p", "succeeded"}},
		[]columnAlignment{alignLeft, alignStatus},
	)
	if !strings.Contains(output, "Timed Out") || !strings.Contains(output, "Succeeded") {
		t.Fatalf("status cells not rendered as labels:\n%s", output)
	}
	if strings.Contains(output, "timed_out") {
		t.Fatalf("raw status leaked into output:\n%s", output)
	}
	// The header row is not a status value and must pass through untouched.
	if !strings.Contains(output, "Status") {
		t.Fatalf("header missing:\n%s", output)
	}
}
