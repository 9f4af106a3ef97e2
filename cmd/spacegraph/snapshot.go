// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/spacegraph"
)

func newSnapshotCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create, list and revert space snapshots",
	}
	cmd.PersistentFlags().Int64("space", 0, "space id")
	_ = cmd.MarkPersistentFlagRequired("space")

	create := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the current state of a space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, _ := cmd.Flags().GetString("actor")
			return withFacade(cmd, st, func(f *spacegraph.Facade) error {
				snap, err := f.CreateSnapshot(cmd.Context(), actor)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created snapshot %d of space %d\n", snap.ID, f.SpaceID())
				return nil
			})
		},
	}
	create.Flags().String("actor", "cli", "recorded as the snapshot author")

	cmd.AddCommand(
		create,
		&cobra.Command{
			Use:   "list",
			Short: "List the snapshots of a space, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withFacade(cmd, st, func(f *spacegraph.Facade) error {
					snaps, err := f.ListSnapshots(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if len(snaps) == 0 {
						_, _ = fmt.Fprintln(out, "No snapshots.")
						return nil
					}
					for _, s := range snaps {
						_, _ = fmt.Fprintf(out, "%d\t%s\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.CreatedBy)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "revert ID",
			Short: "Replace a space with the contents of a snapshot",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("ID", args[0])
				if err != nil {
					return err
				}
				return withFacade(cmd, st, func(f *spacegraph.Facade) error {
					if err := f.RevertToSnapshot(cmd.Context(), id); err != nil {
						return err
					}
					stats := f.Stats()
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reverted space %d to snapshot %d (%d nodes, %d edges)\n",
						f.SpaceID(), id, stats.Nodes, stats.Edges)
					return nil
				})
			},
		},
	)
	return cmd
}

func withFacade(cmd *cobra.Command, st *cliState, fn func(*spacegraph.Facade) error) error {
	spaceID, _ := cmd.Flags().GetInt64("space")
	return st.withApp(func(app *App) error {
		return fn(app.Facade(spaceID))
	})
}
