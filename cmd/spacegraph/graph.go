// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/spacegraph"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func newGraphCmd(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect and edit a space graph",
	}
	cmd.PersistentFlags().Int64("space", 0, "space id")
	_ = cmd.MarkPersistentFlagRequired("space")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path FROM TO",
			Short: "Print a shortest undirected path between two nodes",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				from, err := parseID("FROM", args[0])
				if err != nil {
					return err
				}
				to, err := parseID("TO", args[1])
				if err != nil {
					return err
				}
				return withLoadedFacade(cmd, st, func(f *spacegraph.Facade) error {
					path, err := f.ShortestPath(from, to)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), joinIDs(path, " -> "))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "components",
			Short: "Print the connected components of a space, largest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withLoadedFacade(cmd, st, func(f *spacegraph.Facade) error {
					out := cmd.OutOrStdout()
					stats := f.Stats()
					_, _ = fmt.Fprintln(out, renderReport(fmt.Sprintf("Space %d", f.SpaceID()), []row{
						{"nodes", stats.Nodes},
						{"edges", stats.Edges},
						{"components", stats.Components},
					}))
					for i, comp := range f.ConnectedComponents() {
						_, _ = fmt.Fprintf(out, "%s %s\n", dimStyle.Render(fmt.Sprintf("#%d (%d)", i+1, len(comp))), joinIDs(comp, " "))
					}
					return nil
				})
			},
		},
	)
	cmd.AddCommand(newGraphEditCmds(st)...)
	return cmd
}

func withLoadedFacade(cmd *cobra.Command, st *cliState, fn func(*spacegraph.Facade) error) error {
	spaceID, _ := cmd.Flags().GetInt64("space")
	return st.withApp(func(app *App) error {
		f := app.Facade(spaceID)
		if err := f.Load(cmd.Context()); err != nil {
			return err
		}
		return fn(f)
	})
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, sgerr.Errorf(sgerr.CodeCLIInputInvalid, "%s must be a positive integer id, got %q", name, raw)
	}
	return id, nil
}

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, sep)
}
