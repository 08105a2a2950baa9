package diagnostics

import (
	"fmt"

	"reframe/internal/media/probe"
)

// Configuration is one rung of the trial ladder.
type Configuration struct {
	Label       string
	Width       int
	Height      int
	FrameRate   int
	BitrateKbps int
}

// The standard ladder, largest first. Trials walk it in order so the most
// demanding configuration fails earliest when the environment is the problem.
var standardLadder = []Configuration{
	{Label: "1080p", Width: 1920, Height: 1080, FrameRate: 30, BitrateKbps: 4000},
	{Label: "720p", Width: 1280, Height: 720, FrameRate: 30, BitrateKbps: 2500},
	{Label: "480p", Width: 854, Height: 480, FrameRate: 30, BitrateKbps: 1200},
	{Label: "360p", Width: 640, Height: 360, FrameRate: 24, BitrateKbps: 800},
	{Label: "240p", Width: 426, Height: 240, FrameRate: 24, BitrateKbps: 400},
}

// GenerateConfigurations returns the trial ladder for a probed source. Rungs
// larger than the source are dropped unless allowUpscale is set; whether
// upscaled trials are meaningful is policy, not an invariant, so the choice
// lives in configuration.
func GenerateConfigurations(source probe.Result, allowUpscale bool) []Configuration {
	configs := make([]Configuration, 0, len(standardLadder))
	for _, config := range standardLadder {
		if !allowUpscale && (config.Width > source.Width || config.Height > source.Height) {
			continue
		}
		configs = append(configs, config)
	}
	if len(configs) == 0 {
		// Source smaller than the whole ladder: trial the smallest rung
		// anyway so the batch still reports something.
		configs = append(configs, standardLadder[len(standardLadder)-1])
	}
	return configs
}

// String renders the configuration for reports.
func (c Configuration) String() string {
	return fmt.Sprintf("%s (%dx%d@%d, %dkbps)", c.Label, c.Width, c.Height, c.FrameRate, c.BitrateKbps)
}
