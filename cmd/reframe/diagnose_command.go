package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"reframe/internal/diagnostics"
	"reframe/internal/encoding"
	"reframe/internal/logging"
)

func newDiagnoseCommand(ctx *commandContext) *cobra.Command {
	var (
		allowUpscale bool
		trialTimeout int
		clipSeconds  int
	)

	cmd := &cobra.Command{
		Use:   "diagnose <input>",
		Short: "Run trial conversions across a resolution ladder",
		Long: "Diagnose cuts a short audio-free clip from the input and converts it once per\n" +
			"resolution configuration, strictly in order, to localize environment-specific\n" +
			"engine failures. The batch is a report; it has no overall pass or fail.",
		Args: cobra.ExactArgs(1),
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

			source, err := rt.prober.InspectBytes(cmd.Context(), data)
			if err != nil {
				return err
			}

			upscale := allowUpscale || rt.cfg.Diagnostics.AllowUpscale
			configs := diagnostics.GenerateConfigurations(source, upscale)
			fmt.Fprintf(cmd.OutOrStdout(), "Source %dx%d, %.1fs; running %d trials\n",
				source.Width, source.Height, source.DurationSeconds, len(configs))

			timeout := trialTimeout
			if timeout <= 0 {
				timeout = rt.cfg.Diagnostics.TrialTimeout
			}
			clip := clipSeconds
			if clip <= 0 {
				clip = rt.cfg.Diagnostics.ClipSeconds
			}

			runner := diagnostics.NewRunner(rt.engine, rt.supervisor, rt.logger)
			trials, err := runner.Run(cmd.Context(),
				encoding.InputDescriptor{Name: filepath.Base(inputPath), Data: data},
				configs,
				diagnostics.Options{
					TrialTimeout: time.Duration(timeout) * time.Second,
					ClipSeconds:  clip,
					OnTrial: func(trial diagnostics.Trial) {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s (%s)\n",
							trial.Configuration.Label, trial.Status, formatElapsed(trial.Elapsed))
					},
				})
			if err != nil {
				return err
			}

			sessionID := uuid.NewString()
			if err := rt.store.RecordTrials(cmd.Context(), sessionID, trials); err != nil {
				rt.logger.Warn("record trial history", logging.Error(err))
			}

			var succeeded, failed, timedOut int
			rows := make([][]string, 0, len(trials))
			for _, trial := range trials {
				detail := ""
				if trial.Reason != nil {
					detail = trial.Reason.Error()
				}
				switch trial.Status {
				case diagnostics.TrialSucceeded:
					succeeded++
				case diagnostics.TrialTimedOut:
					timedOut++
				default:
					failed++
				}
				rows = append(rows, []string{
					trial.Configuration.String(),
					string(trial.Status),
					formatElapsed(trial.Elapsed),
					detail,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Configuration", "Status", "Elapsed", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignStatus, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Session %s: %d succeeded, %d failed, %d timed out\n",
				sessionID, succeeded, failed, timedOut)

			notify(rt, func() error {
				return rt.notifier.NotifyDiagnosticsCompleted(cmd.Context(), succeeded, failed, timedOut)
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowUpscale, "allow-upscale", false, "Include configurations larger than the source")
	cmd.Flags().IntVar(&trialTimeout, "trial-timeout", 0, "Per-trial ceiling in seconds (defaults from config)")
	cmd.Flags().IntVar(&clipSeconds, "clip-seconds", 0, "Clip length in seconds (defaults from config)")

	return cmd
}
