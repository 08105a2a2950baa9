package encoding

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed encode policy. Not caller-configurable: the point of the builder is
// that two runs with the same inputs produce the same command.
const (
	videoCodec  = "libx264"
	videoPreset = "veryfast"
)

// Command is a prepared engine invocation.
type Command struct {
	// Argv is the ordered argument list handed to the engine.
	Argv []string
	// Display is the same arguments rendered as one line for operators. It
	// is never re-parsed.
	Display string
}

// BuildCommand maps an input/output name pair and output settings to an
// engine argument list. Pure and deterministic: identical inputs yield a
// byte-identical argv.
func BuildCommand(inputName, outputName string, settings OutputSettings) Command {
	argv := []string{
		"-y",
		"-i", inputName,
		"-c:v", videoCodec,
		"-preset", videoPreset,
		"-vf", fmt.Sprintf("scale=%d:%d", settings.TargetWidth, settings.TargetHeight),
		"-r", strconv.Itoa(settings.FrameRate),
		"-b:v", strconv.Itoa(settings.VideoBitrateKbps) + "k",
	}
	if settings.MonoAudio {
		argv = append(argv, "-c:a", "aac", "-ac", "1")
	} else {
		argv = append(argv, "-c:a", "copy")
	}
	argv = append(argv, outputName)

	return Command{
		Argv:    argv,
		Display: strings.Join(argv, " "),
	}
}

// BuildClipCommand maps an input name to a command that extracts a short,
// audio-free clip for diagnostic trials. Stream copy keeps it cheap.
func BuildClipCommand(inputName, outputName string, clipSeconds int) Command {
	argv := []string{
		"-y",
		"-i", inputName,
		"-t", strconv.Itoa(clipSeconds),
		"-an",
		"-c:v", "copy",
		outputName,
	}
	return Command{
		Argv:    argv,
		Display: strings.Join(argv, " "),
	}
}
