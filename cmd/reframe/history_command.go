package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reframe/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past conversions and diagnostic sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if session = strings.TrimSpace(session); session != "" {
				trials, err := store.TrialsForSession(cmd.Context(), session)
				if err != nil {
					return err
				}
				if len(trials) == 0 {
					fmt.Fprintf(out, "No trials recorded for session %s\n", session)
					return nil
				}
				rows := make([][]string, 0, len(trials))
				for _, trial := range trials {
					rows = append(rows, []string{
						trial.Label,
						trial.Status,
						formatElapsed(time.Duration(trial.ElapsedMS) * time.Millisecond),
						trial.Reason,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Trial", "Status", "Elapsed", "Reason"},
					rows,
					[]columnAlignment{alignLeft, alignStatus, alignRight, alignLeft},
				))
				return nil
			}

			jobs, err := store.RecentJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No conversions recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
					job.InputName,
					job.Settings,
					job.Outcome,
					formatBytes(job.OutputBytes),
					formatElapsed(time.Duration(job.ElapsedMS) * time.Millisecond),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "Input", "Settings", "Outcome", "Output", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignStatus, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")
	cmd.Flags().StringVar(&session, "session", "", "Show the trials of one diagnostic session")

	return cmd
}
