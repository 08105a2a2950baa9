package encoding

import (
	"fmt"
	"path/filepath"
	"strings"

	"reframe/internal/services"
)

// Resolution ceiling the engine build in use is known to handle.
const (
	MaxSupportedWidth  = 1920
	MaxSupportedHeight = 1080
)

// InputDescriptor names an opaque input byte stream. The name is used only to
// derive a file-extension hint for the engine; it is never opened as a path.
type InputDescriptor struct {
	Name string
	Data []byte
}

// ExtensionHint returns the input's file extension including the dot, or a
// generic fallback when the name carries none.
func (d InputDescriptor) ExtensionHint() string {
	ext := strings.ToLower(filepath.Ext(d.Name))
	if ext == "" {
		ext = ".bin"
	}
	return ext
}

// OutputSettings describes the requested conversion target.
type OutputSettings struct {
	TargetWidth      int
	TargetHeight     int
	FrameRate        int
	VideoBitrateKbps int
	MonoAudio        bool
}

// Validate rejects settings the engine cannot honor. Called before any engine
// work so a bad request costs nothing.
func (s OutputSettings) Validate() error {
	if s.TargetWidth <= 0 || s.TargetHeight <= 0 {
		return services.Wrap(services.ErrValidation, "settings", "validate",
			fmt.Sprintf("target resolution %dx%d must be positive", s.TargetWidth, s.TargetHeight), nil)
	}
	if s.TargetWidth > MaxSupportedWidth || s.TargetHeight > MaxSupportedHeight {
		return services.Wrap(services.ErrValidation, "settings", "validate",
			fmt.Sprintf("target resolution %dx%d exceeds supported maximum %dx%d",
				s.TargetWidth, s.TargetHeight, MaxSupportedWidth, MaxSupportedHeight), nil)
	}
	if s.FrameRate <= 0 {
		return services.Wrap(services.ErrValidation, "settings", "validate",
			fmt.Sprintf("frame rate %d must be positive", s.FrameRate), nil)
	}
	if s.VideoBitrateKbps <= 0 {
		return services.Wrap(services.ErrValidation, "settings", "validate",
			fmt.Sprintf("video bitrate %d kbps must be positive", s.VideoBitrateKbps), nil)
	}
	return nil
}

// PixelCount returns the per-frame pixel count of the target picture.
func (s OutputSettings) PixelCount() int {
	return s.TargetWidth * s.TargetHeight
}

// Label renders the settings as a short human-readable tag.
func (s OutputSettings) Label() string {
	return fmt.Sprintf("%dx%d@%d %dkbps", s.TargetWidth, s.TargetHeight, s.FrameRate, s.VideoBitrateKbps)
}
