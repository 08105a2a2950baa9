package probe

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reframe/internal/services"
)

// Frame rate assumed when the container does not report one. Budget math
// needs a value, and the estimate only has to be in the right ballpark.
const assumedFrameRate = 30.0

// Result holds the probe fields the pipeline consumes.
type Result struct {
	Width           int
	Height          int
	DurationSeconds float64
	FrameRate       float64
	Container       string
	VideoCodec      string
}

// PixelCount returns the per-frame pixel count of the input picture.
func (r Result) PixelCount() int {
	return r.Width * r.Height
}

// Prober runs ffprobe against candidate inputs.
type Prober struct {
	binary string
}

// New returns a Prober using the given ffprobe executable. An empty binary
// falls back to "ffprobe" on PATH.
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

type rawProbe struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"r_frame_rate"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Inspect probes a media file on disk. Failures are classified as probe
// failures; callers treat them as terminal for the job.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect", "empty input path", nil)
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "ffprobe failed"
		}
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect", detail, err)
	}

	return parse(output)
}

// InspectBytes probes in-memory media content by staging it in a temporary
// file for the duration of the call.
func (p *Prober) InspectBytes(ctx context.Context, data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "inspect", "empty input", nil)
	}

	dir, err := os.MkdirTemp("", "reframe-probe-")
	if err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "stage input", "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "stage input", "write temp file", err)
	}

	return p.Inspect(ctx, path)
}

func parse(output []byte) (Result, error) {
	var raw rawProbe
	if err := json.Unmarshal(output, &raw); err != nil {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "parse", "malformed ffprobe output", err)
	}

	result := Result{
		Container: raw.Format.FormatName,
		FrameRate: assumedFrameRate,
	}

	for _, stream := range raw.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		result.Width = stream.Width
		result.Height = stream.Height
		result.VideoCodec = stream.CodecName
		if rate := parseFrameRate(stream.FrameRate); rate > 0 {
			result.FrameRate = rate
		}
		if result.DurationSeconds == 0 {
			result.DurationSeconds = parseFloat(stream.Duration)
		}
		break
	}

	if duration := parseFloat(raw.Format.Duration); duration > 0 {
		result.DurationSeconds = duration
	}

	if result.Width <= 0 || result.Height <= 0 {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "parse", "no usable video stream", nil)
	}
	// NaN from a malformed duration string must not slip past the <= 0 check.
	if math.IsNaN(result.DurationSeconds) || result.DurationSeconds <= 0 {
		return Result{}, services.Wrap(services.ErrProbe, "probe", "parse", "container reports no usable duration", nil)
	}

	return result, nil
}

func parseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if d <= 0 || math.IsNaN(n) || math.IsNaN(d) {
			return 0
		}
		return n / d
	}
	rate := parseFloat(value)
	if math.IsNaN(rate) {
		return 0
	}
	return rate
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
