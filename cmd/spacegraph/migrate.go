// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func newMigrateCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate-to-pgs",
		Short: "Project the relational store into the property graph",
		Long: "Upsert every space, node and edge into the property graph, remove projected entities that no longer exist " +
			"and verify per-entity counts. Exits non-zero when counts differ afterwards.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, st)
		},
	}

	cmd.Flags().Bool("clear", false, "delete everything in the property graph first")
	cmd.Flags().BoolP("yes", "y", false, "skip the --clear confirmation prompt")
	cmd.Flags().Bool("verify-only", false, "only compare per-entity counts")
	cmd.Flags().Bool("repairs-only", false, "only replay pending projection repairs")
	cmd.MarkFlagsMutuallyExclusive("verify-only", "repairs-only", "clear")

	return cmd
}

func runMigrate(cmd *cobra.Command, st *cliState) error {
	clearFirst, _ := cmd.Flags().GetBool("clear")
	yes, _ := cmd.Flags().GetBool("yes")
	verifyOnly, _ := cmd.Flags().GetBool("verify-only")
	repairsOnly, _ := cmd.Flags().GetBool("repairs-only")
	out := cmd.OutOrStdout()

	return st.withApp(func(app *App) error {
		ctx := cmd.Context()
		switch {
		case verifyOnly:
			v, err := app.Reconciler.Verify(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, renderCounts("Store counts", v.Counts))
			if !v.OK() {
				return sgerr.Errorf(sgerr.CodeJobFailure, "store counts differ: %s", describe(v.Discrepancies()))
			}
			return nil

		case repairsOnly:
			rep, err := app.Reconciler.RepairPending(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, renderReport("Projection repairs", []row{
				{"replayed", rep.Replayed},
				{"failed", rep.Failed},
			}))
			if rep.Failed > 0 {
				return sgerr.Errorf(sgerr.CodeJobFailure, "%d repair entries could not be replayed", rep.Failed)
			}
			return nil
		}

		if clearFirst && !yes {
			ok, err := confirmWord(cmd.InOrStdin(), cmd.ErrOrStderr(), "clear",
				"This deletes every node and relationship in the property graph.")
			if err != nil {
				return err
			}
			if !ok {
				return sgerr.New(sgerr.CodeCLIAborted, "migration aborted")
			}
		}

		report, err := app.Reconciler.Migrate(ctx, mirror.MigrateOptions{Clear: clearFirst})
		if report != nil {
			_, _ = fmt.Fprintln(out, renderReport("Migration", []row{
				{"spaces", report.Spaces},
				{"nodes", report.Nodes},
				{"edges", report.Edges},
				{"removed", report.Removed},
				{"errors", report.Errors},
				{"repairs_resolved", report.Resolved},
			}))
		}
		if err != nil {
			return err
		}
		switch {
		case len(report.Discrepancies) > 0:
			_, _ = fmt.Fprintln(out, renderCounts("Discrepancies", report.Discrepancies))
			return sgerr.Errorf(sgerr.CodeJobFailure, "store counts differ after migration: %s", describe(report.Discrepancies))
		case report.Errors > 0:
			return sgerr.Errorf(sgerr.CodeJobFailure, "%d entities failed to project", report.Errors)
		}
		return nil
	})
}

func renderCounts(title string, counts []mirror.EntityCount) string {
	rows := make([]row, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, row{c.Entity, fmt.Sprintf("rs=%d pgs=%d %s", c.RS, c.PGS, status(c.Match()))})
	}
	return renderReport(title, rows)
}

func describe(counts []mirror.EntityCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s rs=%d pgs=%d", c.Entity, c.RS, c.PGS))
	}
	return strings.Join(parts, ", ")
}
