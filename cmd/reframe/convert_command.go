package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reframe/internal/encoding"
	"reframe/internal/engine"
	"reframe/internal/logging"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		width   int
		height  int
		fps     int
		bitrate int
		mono    bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert a media file to the requested resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.buildRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			inputPath := args[0]
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			settings := encoding.OutputSettings{
				TargetWidth:      width,
				TargetHeight:     height,
				FrameRate:        fps,
				VideoBitrateKbps: bitrate,
				MonoAudio:        mono,
			}

			sampler := logging.NewProgressSampler(0.05)
			outcome, err := rt.supervisor.Start(cmd.Context(), encoding.JobRequest{
				Input:    encoding.InputDescriptor{Name: filepath.Base(inputPath), Data: data},
				Settings: settings,
				Events: engine.Events{
					Progress: func(fraction float64) {
						if sampler.ShouldLog(fraction) {
							rt.logger.Info("conversion progress",
								logging.Float64("fraction", fraction))
						}
					},
				},
			})
			if err != nil {
				return err
			}

			inputName := filepath.Base(inputPath)
			if _, recordErr := rt.store.RecordJob(cmd.Context(), inputName, settings, outcome); recordErr != nil {
				rt.logger.Warn("record job history", logging.Error(recordErr))
			}

			switch outcome.Kind {
			case encoding.OutcomeSucceeded:
				target := strings.TrimSpace(output)
				if target == "" {
					stem := strings.TrimSuffix(inputName, filepath.Ext(inputName))
					target = filepath.Join(rt.cfg.Paths.OutputDir,
						fmt.Sprintf("%s-%dx%d.mp4", stem, width, height))
				}
				if err := os.WriteFile(target, outcome.OutputBytes, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
				notify(rt, func() error {
					return rt.notifier.NotifyConversionCompleted(cmd.Context(), inputName,
						int64(len(outcome.OutputBytes)), outcome.Elapsed)
				})
				fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s (%s in %s)\n",
					inputName, target, formatBytes(int64(len(outcome.OutputBytes))), formatElapsed(outcome.Elapsed))
				return nil
			case encoding.OutcomeTimedOut:
				notify(rt, func() error {
					return rt.notifier.NotifyConversionTimedOut(cmd.Context(), inputName, outcome.Elapsed)
				})
				return fmt.Errorf("conversion timed out after %s with no forward progress; "+
					"a longer budget ceiling or threaded engine mode may help", formatElapsed(outcome.Elapsed))
			default:
				notify(rt, func() error {
					return rt.notifier.NotifyError(cmd.Context(), outcome.Reason, "convert")
				})
				return outcome.Reason
			}
		},
	}

	cmd.Flags().IntVar(&width, "width", 1280, "Target width in pixels")
	cmd.Flags().IntVar(&height, "height", 720, "Target height in pixels")
	cmd.Flags().IntVar(&fps, "fps", 30, "Target frame rate")
	cmd.Flags().IntVar(&bitrate, "bitrate", 2500, "Target video bitrate in kbps")
	cmd.Flags().BoolVar(&mono, "mono", false, "Downmix audio to a single channel")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (defaults into the configured output directory)")

	return cmd
}

// notify sends a notification without letting delivery problems change the
// command's outcome.
func notify(rt *runtime, send func() error) {
	if err := send(); err != nil {
		rt.logger.Warn("send notification", logging.Error(err))
	}
}
