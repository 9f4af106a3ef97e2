// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Graph mutations go through the mirror writer, so the property graph is
// kept in step with the relational store.
func newGraphEditCmds(st *cliState) []*cobra.Command {
	addNode := &cobra.Command{
		Use:   "add-node LABEL",
		Short: "Create a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := strings.TrimSpace(args[0])
			if label == "" {
				return sgerr.New(sgerr.CodeCLIInputInvalid, "LABEL must not be empty")
			}
			entity, _ := cmd.Flags().GetString("entity")
			actor, _ := cmd.Flags().GetString("actor")
			spaceID, _ := cmd.Flags().GetInt64("space")
			return st.withApp(func(app *App) error {
				node, err := app.Facade(spaceID).AddNode(cmd.Context(), label, strings.ToUpper(strings.TrimSpace(entity)), actor)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created node %d in space %d\n", node.ID, spaceID)
				return nil
			})
		},
	}
	addNode.Flags().String("entity", "", "external Wikidata entity id, e.g. Q7085")
	addNode.Flags().String("actor", "cli", "recorded as the node's creator")

	addEdge := &cobra.Command{
		Use:   "add-edge FROM TO",
		Short: "Create an edge between two nodes of the space",
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
			relation, _ := cmd.Flags().GetString("label")
			spaceID, _ := cmd.Flags().GetInt64("space")
			return st.withApp(func(app *App) error {
				for _, id := range []int64{from, to} {
					if _, err := nodeInSpace(cmd.Context(), app, spaceID, id); err != nil {
						return err
					}
				}
				edge, err := app.Facade(spaceID).AddEdge(cmd.Context(), from, to, relation)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created edge %d (%d -> %d)\n", edge.ID, from, to)
				return nil
			})
		},
	}
	addEdge.Flags().String("label", "", "relation label")

	archive := &cobra.Command{
		Use:   "archive-node ID",
		Short: "Archive a node, or restore it with --restore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("ID", args[0])
			if err != nil {
				return err
			}
			restore, _ := cmd.Flags().GetBool("restore")
			spaceID, _ := cmd.Flags().GetInt64("space")
			return st.withApp(func(app *App) error {
				node, err := nodeInSpace(cmd.Context(), app, spaceID, id)
				if err != nil {
					return err
				}
				node.Archived = !restore
				if err := app.Writer.UpdateNode(cmd.Context(), node); err != nil {
					return err
				}
				verb := "Archived"
				if restore {
					verb = "Restored"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s node %d\n", verb, id)
				return nil
			})
		},
	}
	archive.Flags().Bool("restore", false, "clear the archived flag instead")

	removeNode := &cobra.Command{
		Use:   "remove-node ID",
		Short: "Delete a node with its edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("ID", args[0])
			if err != nil {
				return err
			}
			spaceID, _ := cmd.Flags().GetInt64("space")
			return st.withApp(func(app *App) error {
				if _, err := nodeInSpace(cmd.Context(), app, spaceID, id); err != nil {
					return err
				}
				if err := app.Writer.DeleteNode(cmd.Context(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted node %d\n", id)
				return nil
			})
		},
	}

	removeEdge := &cobra.Command{
		Use:   "remove-edge ID",
		Short: "Delete an edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("ID", args[0])
			if err != nil {
				return err
			}
			spaceID, _ := cmd.Flags().GetInt64("space")
			return st.withApp(func(app *App) error {
				edge, err := app.Graph.Edges().GetEdge(cmd.Context(), id)
				if err != nil {
					return err
				}
				if edge.SpaceID != spaceID {
					return sgerr.New(sgerr.CodeStoreEdgeNotFound, "edge not found in space",
						sgerr.FieldEdgeID(id), sgerr.FieldSpaceID(spaceID))
				}
				if err := app.Writer.DeleteEdge(cmd.Context(), id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted edge %d\n", id)
				return nil
			})
		},
	}

	return []*cobra.Command{addNode, addEdge, archive, removeNode, removeEdge}
}

func nodeInSpace(ctx context.Context, app *App, spaceID, nodeID int64) (*store.Node, error) {
	node, err := app.Graph.Nodes().GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if node.SpaceID != spaceID {
		return nil, sgerr.New(sgerr.CodeStoreNodeNotFound, "node not found in space",
			sgerr.FieldNodeID(nodeID), sgerr.FieldSpaceID(spaceID))
	}
	return node, nil
}
