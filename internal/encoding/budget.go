package encoding

import (
	"time"

	"reframe/internal/media/probe"
)

// Mode selects how the engine executes and therefore how the watchdog
// behaves. Threaded execution delivers reliable progress events; single
// execution does not, so its budget is a hard ceiling.
type Mode string

const (
	ModeThreaded Mode = "threaded"
	ModeSingle   Mode = "single"
)

// unitFraction is the slice of content duration whose processing time the
// estimate extrapolates from.
const unitFraction = 0.005

// Safety margins by execution mode. Single execution has less compute
// headroom before looking stuck, so it gets the larger margin.
const (
	marginThreaded = 4
	marginSingle   = 8
)

// Estimator derives a per-job time budget from probe results and output
// settings. It is a heuristic and never touches the engine.
type Estimator struct {
	Floor   time.Duration
	Ceiling time.Duration
}

// Budget computes the time budget for one job. The raw estimate is
// unitSeconds x complexity x margin, where complexity is the output/input
// pixel ratio clamped to at least 1: downscales never estimate below the
// unit cost, upscales grow with the extra pixels to produce. The result is
// clamped to [Floor, Ceiling].
func (e Estimator) Budget(result probe.Result, settings OutputSettings, mode Mode) time.Duration {
	unitSeconds := result.DurationSeconds * unitFraction

	complexity := 1.0
	if inputPixels := result.PixelCount(); inputPixels > 0 {
		if ratio := float64(settings.PixelCount()) / float64(inputPixels); ratio > 1 {
			complexity = ratio
		}
	}

	margin := float64(marginThreaded)
	if mode == ModeSingle {
		margin = marginSingle
	}

	budget := time.Duration(unitSeconds * complexity * margin * float64(time.Second))
	if budget < e.Floor {
		return e.Floor
	}
	if budget > e.Ceiling {
		return e.Ceiling
	}
	return budget
}
