// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package mirror

import (
	"context"
	"log/slog"

	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Entity names used in count comparisons.
const (
	EntitySpace   = "Space"
	EntityNode    = "Node"
	EntityEdge    = "Edge"
	EntityInSpace = projection.InSpace
)

// MigrateOptions controls a full migration.
type MigrateOptions struct {
	// Clear wipes the projection before migrating.
	Clear bool
}

// EntityCount compares one entity total across both stores.
type EntityCount struct {
	Entity string `json:"entity"`
	RS     int    `json:"rs"`
	PGS    int    `json:"pgs"`
}

// Match reports whether both stores agree.
func (c EntityCount) Match() bool { return c.RS == c.PGS }

// Verification is a per-entity count comparison.
type Verification struct {
	Counts []EntityCount `json:"counts"`
}

// Discrepancies returns the entities whose counts differ.
func (v *Verification) Discrepancies() []EntityCount {
	var out []EntityCount
	for _, c := range v.Counts {
		if !c.Match() {
			out = append(out, c)
		}
	}
	return out
}

// OK reports whether every count matches.
func (v *Verification) OK() bool { return len(v.Discrepancies()) == 0 }

// Report summarises a migration.
type Report struct {
	Spaces        int           `json:"spaces"`
	Nodes         int           `json:"nodes"`
	Edges         int           `json:"edges"`
	Removed       int           `json:"removed"`
	Errors        int           `json:"errors"`
	Resolved      int           `json:"resolved"`
	Discrepancies []EntityCount `json:"discrepancies"`
}

// RepairReport summarises a replay of pending repair entries.
type RepairReport struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

// Reconciler brings the projection into agreement with the relational store.
type Reconciler struct {
	rs     store.GraphStore
	pgs    projection.Store
	logger *slog.Logger
}

// NewReconciler creates a Reconciler. A nil logger falls back to slog.Default.
func NewReconciler(rs store.GraphStore, pgs projection.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{rs: rs, pgs: pgs, logger: logger}
}

// Migrate projects every space, node and edge, removes projected entities
// that no longer exist relationally and resolves pending repairs. Running it
// twice yields the same projection.
func (r *Reconciler) Migrate(ctx context.Context, opts MigrateOptions) (*Report, error) {
	pending, err := r.rs.Repairs().PendingRepairs(ctx, 0)
	if err != nil {
		return nil, err
	}

	if opts.Clear {
		r.logger.Info("clearing projection")
		if err := r.pgs.Clear(ctx); err != nil {
			return nil, err
		}
	}

	spaces, err := r.rs.Spaces().ListSpaces(ctx, store.ListOpts{})
	if err != nil {
		return nil, err
	}

	report := &Report{}
	known := make(map[int64]struct{}, len(spaces))
	for _, space := range spaces {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		known[space.ID] = struct{}{}
		if err := r.reconcileSpace(ctx, space, report); err != nil {
			return report, err
		}
		r.logger.Info("space migrated", "space_id", space.ID, "nodes", report.Nodes, "edges", report.Edges)
	}

	projected, err := r.pgs.SpaceIDs(ctx)
	if err != nil {
		return report, err
	}
	for _, id := range projected {
		if _, ok := known[id]; ok {
			continue
		}
		if err := r.pgs.DeleteSpace(ctx, id); err != nil {
			r.entityFailed("delete", "space", id, id, err, report)
			continue
		}
		report.Removed++
	}

	if report.Errors == 0 {
		for _, rep := range pending {
			if err := r.rs.Repairs().ResolveRepair(ctx, rep.ID); err != nil && !sgerr.IsConflict(err) {
				return report, err
			}
			report.Resolved++
		}
	}

	v, err := r.Verify(ctx)
	if err != nil {
		return report, err
	}
	report.Discrepancies = v.Discrepancies()
	return report, nil
}

// ReconcileSpace re-projects a single space from the relational store.
func (r *Reconciler) ReconcileSpace(ctx context.Context, spaceID int64) error {
	space, err := r.rs.Spaces().GetSpace(ctx, spaceID)
	if err != nil {
		return err
	}
	return r.reconcileSpaceStrict(ctx, space)
}

// reconcileSpace upserts the space with its nodes and edges and deletes
// projected nodes and edges unknown to the relational store. Per-entity
// failures are counted; only read failures abort.
func (r *Reconciler) reconcileSpace(ctx context.Context, space *store.Space, report *Report) error {
	if err := r.pgs.UpsertSpace(ctx, space); err != nil {
		r.entityFailed("upsert", "space", space.ID, space.ID, err, report)
		return nil
	}
	report.Spaces++

	nodes, err := r.rs.Nodes().ListNodes(ctx, space.ID, store.NodeListOpts{IncludeArchived: true})
	if err != nil {
		return err
	}
	props, err := r.rs.Properties().NodePropertiesBySpace(ctx, space.ID, "")
	if err != nil {
		return err
	}
	live := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		if err := r.pgs.UpsertNode(ctx, n, props[n.ID]); err != nil {
			r.entityFailed("upsert", "node", n.ID, space.ID, err, report)
			continue
		}
		if !n.Archived {
			live[n.ID] = struct{}{}
			report.Nodes++
		}
	}

	edges, err := r.rs.Edges().ListEdges(ctx, space.ID)
	if err != nil {
		return err
	}
	edgeIDs := make(map[int64]struct{}, len(edges))
	for _, e := range edges {
		edgeIDs[e.ID] = struct{}{}
		if err := r.pgs.UpsertEdge(ctx, e); err != nil {
			r.entityFailed("upsert", "edge", e.ID, space.ID, err, report)
			continue
		}
		_, src := live[e.SourceID]
		_, dst := live[e.TargetID]
		if src && dst {
			report.Edges++
		}
	}

	projectedEdges, err := r.pgs.EdgeIDs(ctx, space.ID)
	if err != nil {
		return err
	}
	for _, id := range projectedEdges {
		if _, ok := edgeIDs[id]; ok {
			continue
		}
		if err := r.pgs.DeleteEdge(ctx, id); err != nil {
			r.entityFailed("delete", "edge", id, space.ID, err, report)
			continue
		}
		report.Removed++
	}

	projectedNodes, err := r.pgs.NodeIDs(ctx, space.ID)
	if err != nil {
		return err
	}
	for _, id := range projectedNodes {
		if _, ok := live[id]; ok {
			continue
		}
		if err := r.pgs.DeleteNode(ctx, id); err != nil {
			r.entityFailed("delete", "node", id, space.ID, err, report)
			continue
		}
		report.Removed++
	}
	return nil
}

func (r *Reconciler) entityFailed(op, entity string, id, spaceID int64, err error, report *Report) {
	report.Errors++
	r.logger.Warn("projection write failed",
		"operation", op,
		"entity", entity,
		"id", id,
		"space_id", spaceID,
		"reason", err.Error(),
	)
}

// Verify compares entity totals across both stores.
func (r *Reconciler) Verify(ctx context.Context) (*Verification, error) {
	rc, err := r.rs.Counts(ctx)
	if err != nil {
		return nil, err
	}
	pc, err := r.pgs.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &Verification{Counts: []EntityCount{
		{Entity: EntitySpace, RS: rc.Spaces, PGS: pc.Spaces},
		{Entity: EntityNode, RS: rc.Nodes, PGS: pc.Nodes},
		{Entity: EntityEdge, RS: rc.Edges, PGS: pc.Edges},
		{Entity: EntityInSpace, RS: rc.Nodes, PGS: pc.InSpace},
	}}, nil
}

// RepairPending replays outstanding repair entries. Each entry converges
// its entity to the relational state: present rows are upserted, missing
// rows are deleted. Entries that replay cleanly are resolved.
func (r *Reconciler) RepairPending(ctx context.Context) (*RepairReport, error) {
	pending, err := r.rs.Repairs().PendingRepairs(ctx, 0)
	if err != nil {
		return nil, err
	}
	report := &RepairReport{}
	for _, rep := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.replay(ctx, rep); err != nil {
			report.Failed++
			r.logger.Warn("repair replay failed",
				"repair_id", rep.ID,
				"operation", string(rep.Operation),
				"entity", string(rep.Entity),
				"id", rep.EntityID,
				"space_id", rep.SpaceID,
				"reason", err.Error(),
			)
			continue
		}
		if err := r.rs.Repairs().ResolveRepair(ctx, rep.ID); err != nil && !sgerr.IsConflict(err) {
			return report, err
		}
		report.Replayed++
	}
	return report, nil
}

func (r *Reconciler) replay(ctx context.Context, rep *store.ProjectionRepair) error {
	switch rep.Entity {
	case store.RepairSpace:
		space, err := r.rs.Spaces().GetSpace(ctx, rep.EntityID)
		if sgerr.IsNotFound(err) {
			return r.pgs.DeleteSpace(ctx, rep.EntityID)
		}
		if err != nil {
			return err
		}
		return r.reconcileSpaceStrict(ctx, space)

	case store.RepairNode:
		node, err := r.rs.Nodes().GetNode(ctx, rep.EntityID)
		if sgerr.IsNotFound(err) {
			return r.pgs.DeleteNode(ctx, rep.EntityID)
		}
		if err != nil {
			return err
		}
		props, err := r.rs.Properties().NodeProperties(ctx, node.ID)
		if err != nil {
			return err
		}
		if err := r.pgs.UpsertNode(ctx, node, props); err != nil {
			return err
		}
		if node.Archived {
			return nil
		}
		return upsertAdjacentEdges(ctx, r.rs, r.pgs, node)

	case store.RepairEdge:
		edge, err := r.rs.Edges().GetEdge(ctx, rep.EntityID)
		if sgerr.IsNotFound(err) {
			return r.pgs.DeleteEdge(ctx, rep.EntityID)
		}
		if err != nil {
			return err
		}
		return r.pgs.UpsertEdge(ctx, edge)
	}
	return sgerr.Errorf(sgerr.CodeStoreInvalidInput, "repair %s: unknown entity %q", rep.ID, rep.Entity)
}

func (r *Reconciler) reconcileSpaceStrict(ctx context.Context, space *store.Space) error {
	report := &Report{}
	if err := r.reconcileSpace(ctx, space, report); err != nil {
		return err
	}
	if report.Errors > 0 {
		return sgerr.New(sgerr.CodeProjectionWriteFailure, "space reconciliation incomplete",
			sgerr.FieldSpaceID(space.ID), sgerr.Field("errors", report.Errors))
	}
	return nil
}
