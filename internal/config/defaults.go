package config

const (
	defaultStagingDir = "~/.local/share/reframe/staging"
	defaultLogDir     = "~/.local/share/reframe/logs"
	defaultOutputDir  = "~/Videos/reframe"

	defaultFFmpegBinary  = "ffmpeg"
	defaultFFprobeBinary = "ffprobe"
	defaultEngineMode    = "threaded"
	defaultLoadTimeout   = 30

	defaultBudgetFloorSeconds   = 15
	defaultBudgetCeilingSeconds = 900

	defaultTrialTimeout = 45
	defaultClipSeconds  = 3

	defaultNotifyTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with every default value. Paths are left
// unexpanded until normalize runs.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			OutputDir:  defaultOutputDir,
		},
		Engine: Engine{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			Mode:          defaultEngineMode,
			LoadTimeout:   defaultLoadTimeout,
		},
		Budget: Budget{
			FloorSeconds:   defaultBudgetFloorSeconds,
			CeilingSeconds: defaultBudgetCeilingSeconds,
		},
		Diagnostics: Diagnostics{
			TrialTimeout: defaultTrialTimeout,
			ClipSeconds:  defaultClipSeconds,
			AllowUpscale: false,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
