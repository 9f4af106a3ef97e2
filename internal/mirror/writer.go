// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package mirror keeps the property-graph projection in step with the
// relational store. The relational store is authoritative: every mutation
// commits there first and is then mirrored best-effort. Mirror failures are
// logged and recorded as repair entries for the reconciliation job.
package mirror

import (
	"context"
	"log/slog"

	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// Writer applies graph mutations to the relational store and mirrors them.
type Writer struct {
	rs     store.GraphStore
	pgs    projection.Store
	logger *slog.Logger
}

// NewWriter creates a Writer. A nil logger falls back to slog.Default.
func NewWriter(rs store.GraphStore, pgs projection.Store, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{rs: rs, pgs: pgs, logger: logger}
}

// CreateSpace stores a space and mirrors it. Returns the new space id.
func (w *Writer) CreateSpace(ctx context.Context, space *store.Space) (int64, error) {
	if err := w.rs.Spaces().CreateSpace(ctx, space); err != nil {
		return 0, err
	}
	if err := w.pgs.UpsertSpace(ctx, space); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairSpace, space.ID, space.ID, err)
	}
	return space.ID, nil
}

// DeleteSpace removes a space with everything it owns.
func (w *Writer) DeleteSpace(ctx context.Context, spaceID int64) error {
	if err := w.rs.Spaces().DeleteSpace(ctx, spaceID); err != nil {
		return err
	}
	if err := w.pgs.DeleteSpace(ctx, spaceID); err != nil {
		w.failed(ctx, store.RepairDelete, store.RepairSpace, spaceID, spaceID, err)
	}
	return nil
}

// CreateNode stores a node with its properties and mirrors it. Returns the
// new node id.
func (w *Writer) CreateNode(ctx context.Context, node *store.Node, props []*store.Property) (int64, error) {
	if err := w.rs.Nodes().CreateNode(ctx, node, props); err != nil {
		return 0, err
	}
	if err := w.pgs.UpsertNode(ctx, node, props); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairNode, node.ID, node.SpaceID, err)
	}
	return node.ID, nil
}

// UpdateNode updates a node's label, description, entity id or archived
// flag. Archiving removes the node from the projection; unarchiving
// re-projects its edges.
func (w *Writer) UpdateNode(ctx context.Context, node *store.Node) error {
	prev, err := w.rs.Nodes().GetNode(ctx, node.ID)
	if err != nil {
		return err
	}
	if err := w.rs.Nodes().UpdateNode(ctx, node); err != nil {
		return err
	}
	if err := w.mirrorNode(ctx, node, prev.Archived && !node.Archived); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairNode, node.ID, node.SpaceID, err)
	}
	return nil
}

// DeleteNode removes a node and its adjacent edges.
func (w *Writer) DeleteNode(ctx context.Context, nodeID int64) error {
	node, err := w.rs.Nodes().GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	removed, err := w.rs.Nodes().DeleteNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := w.pgs.DeleteNode(ctx, nodeID); err != nil {
		w.failed(ctx, store.RepairDelete, store.RepairNode, nodeID, node.SpaceID, err)
		for _, edgeID := range removed {
			w.failed(ctx, store.RepairDelete, store.RepairEdge, edgeID, node.SpaceID, err)
		}
	}
	return nil
}

// CreateEdge stores an edge with its properties and mirrors it. Returns the
// new edge id.
func (w *Writer) CreateEdge(ctx context.Context, edge *store.Edge, props []*store.Property) (int64, error) {
	if err := w.rs.Edges().CreateEdge(ctx, edge, props); err != nil {
		return 0, err
	}
	if err := w.pgs.UpsertEdge(ctx, edge); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairEdge, edge.ID, edge.SpaceID, err)
	}
	return edge.ID, nil
}

// UpdateEdge updates an edge; a relabel replaces the projected relationship.
func (w *Writer) UpdateEdge(ctx context.Context, edge *store.Edge) error {
	if err := w.rs.Edges().UpdateEdge(ctx, edge); err != nil {
		return err
	}
	if err := w.pgs.UpsertEdge(ctx, edge); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairEdge, edge.ID, edge.SpaceID, err)
	}
	return nil
}

// DeleteEdge removes an edge.
func (w *Writer) DeleteEdge(ctx context.Context, edgeID int64) error {
	edge, err := w.rs.Edges().GetEdge(ctx, edgeID)
	if err != nil {
		return err
	}
	if err := w.rs.Edges().DeleteEdge(ctx, edgeID); err != nil {
		return err
	}
	if err := w.pgs.DeleteEdge(ctx, edgeID); err != nil {
		w.failed(ctx, store.RepairDelete, store.RepairEdge, edgeID, edge.SpaceID, err)
	}
	return nil
}

// ReplaceNodeProperties upserts props on a node keyed by statement id and
// refreshes the projected attributes.
func (w *Writer) ReplaceNodeProperties(ctx context.Context, nodeID int64, props []*store.Property) error {
	node, err := w.rs.Nodes().GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := w.rs.Properties().UpsertNodeProperties(ctx, nodeID, props); err != nil {
		return err
	}
	if err := w.mirrorNode(ctx, node, false); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairNode, nodeID, node.SpaceID, err)
	}
	return nil
}

// DeleteNodeProperty removes one property row from a node and refreshes the
// projected attributes.
func (w *Writer) DeleteNodeProperty(ctx context.Context, nodeID, propertyRowID int64) error {
	node, err := w.rs.Nodes().GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := w.rs.Properties().DeleteNodeProperty(ctx, nodeID, propertyRowID); err != nil {
		return err
	}
	if err := w.mirrorNode(ctx, node, false); err != nil {
		w.failed(ctx, store.RepairUpsert, store.RepairNode, nodeID, node.SpaceID, err)
	}
	return nil
}

// mirrorNode re-projects node with its current properties, optionally
// followed by its adjacent edges.
func (w *Writer) mirrorNode(ctx context.Context, node *store.Node, withEdges bool) error {
	props, err := w.rs.Properties().NodeProperties(ctx, node.ID)
	if err != nil {
		return err
	}
	if err := w.pgs.UpsertNode(ctx, node, props); err != nil {
		return err
	}
	if !withEdges || node.Archived {
		return nil
	}
	return upsertAdjacentEdges(ctx, w.rs, w.pgs, node)
}

func upsertAdjacentEdges(ctx context.Context, rs store.GraphStore, pgs projection.Store, node *store.Node) error {
	edges, err := rs.Edges().ListEdges(ctx, node.SpaceID)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if e.SourceID != node.ID && e.TargetID != node.ID {
			continue
		}
		if err := pgs.UpsertEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// failed logs a mirror failure and records a repair entry. The relational
// write has already committed, so the caller's result is unaffected.
func (w *Writer) failed(ctx context.Context, op store.RepairOp, entity store.RepairEntity, id, spaceID int64, err error) {
	w.logger.Warn("projection write failed",
		"operation", string(op),
		"entity", string(entity),
		"id", id,
		"space_id", spaceID,
		"reason", err.Error(),
	)
	repair := &store.ProjectionRepair{
		Operation: op,
		Entity:    entity,
		EntityID:  id,
		SpaceID:   spaceID,
		Reason:    err.Error(),
	}
	if rerr := w.rs.Repairs().RecordRepair(ctx, repair); rerr != nil {
		w.logger.Error("recording projection repair failed",
			"entity", string(entity), "id", id, "space_id", spaceID, "error", rerr)
	}
}
