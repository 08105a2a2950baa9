package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var statusTitle = cases.Title(language.English)

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// statusLabel renders a snake_case status as a title-cased, optionally
// colored label for tables.
func statusLabel(status string) string {
	label := statusTitle.String(strings.ReplaceAll(status, "_", " "))
	if !stdoutIsTerminal() {
		return label
	}
	switch status {
	case "succeeded", "passed":
		return text.FgGreen.Sprint(label)
	case "failed":
		return text.FgRed.Sprint(label)
	case "timed_out":
		return text.FgYellow.Sprint(label)
	default:
		return label
	}
}

func passStatus(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
