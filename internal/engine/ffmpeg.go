package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// FFmpeg runs the ffmpeg executable as the transcoding engine. A private
// scratch directory backs the engine storage namespace; argv names resolve
// against it because commands run with that directory as their working
// directory.
type FFmpeg struct {
	binary  string
	scratch string
}

// Option configures the FFmpeg engine.
type Option func(*FFmpeg)

// WithBinary overrides the default executable name.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			f.binary = binary
		}
	}
}

// WithScratchDir overrides the engine storage location.
func WithScratchDir(dir string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(dir) != "" {
			f.scratch = dir
		}
	}
}

// NewFFmpeg constructs an FFmpeg engine using defaults.
func NewFFmpeg(opts ...Option) *FFmpeg {
	engine := &FFmpeg{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Load verifies the executable is present and runnable and prepares engine
// storage.
func (f *FFmpeg) Load(ctx context.Context) error {
	if _, err := exec.LookPath(f.binary); err != nil {
		return fmt.Errorf("locate %s: %w", f.binary, err)
	}

	cmd := commandContext(ctx, f.binary, "-hide_banner", "-version")
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s -version: %w: %s", f.binary, err, firstLine(output))
	}

	if f.scratch == "" {
		dir, err := os.MkdirTemp("", "reframe-engine-")
		if err != nil {
			return fmt.Errorf("create engine storage: %w", err)
		}
		f.scratch = dir
	} else if err := os.MkdirAll(f.scratch, 0o755); err != nil {
		return fmt.Errorf("create engine storage: %w", err)
	}
	return nil
}

// WriteInput stores data under name in engine storage.
func (f *FFmpeg) WriteInput(name string, data []byte) error {
	path, err := f.storagePath(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write input %q: %w", name, err)
	}
	return nil
}

// ReadOutput retrieves a named artifact from engine storage.
func (f *FFmpeg) ReadOutput(name string) ([]byte, error) {
	path, err := f.storagePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read output %q: %w", name, err)
	}
	return data, nil
}

// Remove deletes a named artifact. Missing names are ignored.
func (f *FFmpeg) Remove(name string) error {
	path, err := f.storagePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}

// Run executes one ffmpeg command inside engine storage, streaming stderr
// lines and derived progress fractions to events.
func (f *FFmpeg) Run(ctx context.Context, argv []string, events Events) error {
	if f.scratch == "" {
		return errors.New("engine not loaded")
	}
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := commandContext(ctx, f.binary, argv...) //nolint:gosec
	cmd.Dir = f.scratch
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", f.binary, err)
	}

	tracker := newProgressTracker()
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanStatsLines)
	var lastLines []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		events.log(line)
		lastLines = appendTail(lastLines, line, 8)
		if fraction, ok := tracker.observe(line); ok {
			events.progress(fraction)
		}
	}

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if waitErr != nil {
		return fmt.Errorf("%s: %w: %s", f.binary, waitErr, strings.Join(lastLines, " | "))
	}
	return nil
}

func (f *FFmpeg) storagePath(name string) (string, error) {
	if f.scratch == "" {
		return "", errors.New("engine not loaded")
	}
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid storage name %q", name)
	}
	return filepath.Join(f.scratch, name), nil
}

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`\btime=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// progressTracker derives completion fractions from ffmpeg stderr. The input
// header reports the container duration; periodic stats lines report the
// current output timestamp.
type progressTracker struct {
	totalSeconds float64
}

func newProgressTracker() *progressTracker {
	return &progressTracker{}
}

func (t *progressTracker) observe(line string) (float64, bool) {
	if t.totalSeconds == 0 {
		if match := durationPattern.FindStringSubmatch(line); match != nil {
			t.totalSeconds = clockSeconds(match)
			return 0, false
		}
	}
	if t.totalSeconds <= 0 {
		return 0, false
	}
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	fraction := clockSeconds(match) / t.totalSeconds
	if fraction > 1 {
		fraction = 1
	}
	return fraction, true
}

func clockSeconds(match []string) float64 {
	hours, _ := strconv.ParseFloat(match[1], 64)
	minutes, _ := strconv.ParseFloat(match[2], 64)
	seconds, _ := strconv.ParseFloat(match[3], 64)
	return hours*3600 + minutes*60 + seconds
}

// scanStatsLines splits on \n and \r. ffmpeg rewrites its stats line in place
// with carriage returns, so a newline-only split would sit on one giant line
// until the process exits.
func scanStatsLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func appendTail(lines []string, line string, limit int) []string {
	lines = append(lines, line)
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}

var _ Engine = (*FFmpeg)(nil)
