// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/jobs"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func newP31Cmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-missing-p31",
		Short: "Backfill instance-of (P31) claims from Wikidata",
		Long: "Fetch Wikidata claims for every imported node that has no P31 property and store the P31 statements. " +
			"Nodes that already carry P31 are skipped, so the command can be rerun safely.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runP31(cmd, st)
		},
	}

	cmd.Flags().Bool("dry-run", false, "fetch claims without writing them")
	cmd.Flags().Int("limit", 0, "process at most N nodes (0 means all)")
	cmd.Flags().Float64("delay", 0, "seconds between Wikidata requests (default wikidata.request_delay)")
	cmd.Flags().Int("concurrency", 1, "maximum in-flight Wikidata requests")

	return cmd
}

func runP31(cmd *cobra.Command, st *cliState) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	limit, _ := cmd.Flags().GetInt("limit")
	delaySeconds, _ := cmd.Flags().GetFloat64("delay")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if limit < 0 || delaySeconds < 0 || concurrency < 1 {
		return sgerr.New(sgerr.CodeCLIInputInvalid, "--limit and --delay must not be negative and --concurrency must be at least 1")
	}

	return st.withApp(func(app *App) error {
		delay := app.Config.Wikidata.RequestDelay
		if cmd.Flags().Changed("delay") {
			delay = time.Duration(delaySeconds * float64(time.Second))
		}

		summary, err := app.P31Backfill().Run(cmd.Context(), jobs.P31Options{
			DryRun:      dryRun,
			Limit:       limit,
			Delay:       delay,
			Concurrency: concurrency,
		})
		if summary != nil {
			title := "P31 backfill"
			if summary.DryRun {
				title += dimStyle.Render(" (dry run)")
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderReport(title, []row{
				{"processed", summary.Processed},
				{"success_count", summary.SuccessCount},
				{"p31_found_count", summary.P31FoundCount},
				{"p31_not_found_count", summary.P31NotFoundCount},
				{"error_count", summary.ErrorCount},
			}))
		}
		if err != nil {
			return sgerr.Wrapf(err, sgerr.CodeJobFailure, "p31 backfill interrupted")
		}
		return nil
	})
}
