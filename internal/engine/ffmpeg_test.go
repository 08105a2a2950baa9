package engine

import (
	"bufio"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestProgressTracker(t *testing.T) {
	tracker := newProgressTracker()

	// Stats before the duration header carry no usable fraction.
	if _, ok := tracker.observe("frame=   10 fps=0.0 q=28.0 size=       0KiB time=00:00:01.00 bitrate=   0.3kbits/s"); ok {
		t.Fatal("expected no fraction before duration is known")
	}

	if _, ok := tracker.observe("  Duration: 00:02:00.00, start: 0.000000, bitrate: 1500 kb/s"); ok {
		t.Fatal("duration header itself should not emit progress")
	}

	fraction, ok := tracker.observe("frame=  900 fps=120 q=28.0 size=    2048KiB time=00:00:30.00 bitrate= 559.2kbits/s speed=4.0x")
	if !ok {
		t.Fatal("expected a fraction from a stats line")
	}
	if math.Abs(fraction-0.25) > 1e-9 {
		t.Fatalf("fraction = %v, want 0.25", fraction)
	}

	// Output running past the reported duration clamps to 1.
	fraction, ok = tracker.observe("frame= 4000 fps=120 q=-1.0 Lsize=    9000KiB time=00:02:05.00 bitrate= 614.4kbits/s speed=4.1x")
	if !ok || fraction != 1 {
		t.Fatalf("fraction = %v (ok=%v), want clamped 1", fraction, ok)
	}
}

func TestProgressTrackerIgnoresUnrelatedLines(t *testing.T) {
	tracker := newProgressTracker()
	tracker.observe("  Duration: 00:01:00.00, start: 0.000000")
	if _, ok := tracker.observe("Stream #0:0(und): Video: h264, yuv420p, 1280x720"); ok {
		t.Fatal("metadata line should not emit progress")
	}
}

func TestScanStatsLinesSplitsOnCarriageReturn(t *testing.T) {
	input := "line one\rline two\nline three"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanStatsLines)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	want := []string{"line one", "line two", "line three"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("lines = %q, want %q", lines, want)
		}
	}
}

func TestStoragePathRejectsTraversal(t *testing.T) {
	engine := NewFFmpeg(WithScratchDir(t.TempDir()))
	for _, name := range []string{"", "../escape", "nested/name", "/absolute"} {
		if _, err := engine.storagePath(name); err == nil {
			t.Errorf("storagePath(%q) accepted an unsafe name", name)
		}
	}
	path, err := engine.storagePath("output.mp4")
	if err != nil {
		t.Fatalf("storagePath: %v", err)
	}
	if filepath.Base(path) != "output.mp4" {
		t.Fatalf("path = %q", path)
	}
}

func TestFFmpegStorageRoundTrip(t *testing.T) {
	engine := NewFFmpeg(WithScratchDir(t.TempDir()))
	if err := engine.WriteInput("in.bin", []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteInput: %v", err)
	}
	data, err := engine.ReadOutput("in.bin")
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("payload = %v", data)
	}
	if err := engine.Remove("in.bin"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing again is fine.
	if err := engine.Remove("in.bin"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}
