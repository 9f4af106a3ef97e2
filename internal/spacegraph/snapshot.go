// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package spacegraph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type snapshotPayload struct {
	Nodes []snapshotNode `json:"nodes"`
	Edges []snapshotEdge `json:"edges"`
}

type snapshotNode struct {
	ID               int64              `json:"id"`
	Label            string             `json:"label"`
	Description      string             `json:"description,omitempty"`
	ExternalEntityID string             `json:"external_entity_id,omitempty"`
	CreatedBy        string             `json:"created_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	Archived         bool               `json:"archived,omitempty"`
	Properties       []snapshotProperty `json:"properties,omitempty"`
}

type snapshotEdge struct {
	ID                 int64              `json:"id"`
	SourceID           int64              `json:"source_id"`
	TargetID           int64              `json:"target_id"`
	RelationLabel      string             `json:"relation_label"`
	ExternalPropertyID string             `json:"external_property_id,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	Properties         []snapshotProperty `json:"properties,omitempty"`
}

type snapshotProperty struct {
	StatementID   string          `json:"statement_id,omitempty"`
	PropertyID    string          `json:"property_id"`
	PropertyLabel string          `json:"property_label,omitempty"`
	RawValue      json.RawMessage `json:"raw_value,omitempty"`
	ValueText     string          `json:"value_text,omitempty"`
	ValueID       string          `json:"value_id,omitempty"`
	DisplayText   string          `json:"display_text,omitempty"`
}

func encodeProperties(props []*store.Property) []snapshotProperty {
	if len(props) == 0 {
		return nil
	}
	out := make([]snapshotProperty, 0, len(props))
	for _, p := range props {
		out = append(out, snapshotProperty{
			StatementID:   p.StatementID,
			PropertyID:    p.PropertyID,
			PropertyLabel: p.PropertyLabel,
			RawValue:      p.RawValue,
			ValueText:     p.ValueText,
			ValueID:       p.ValueID,
			DisplayText:   p.DisplayText,
		})
	}
	return out
}

func decodeProperties(owner int64, props []snapshotProperty) []*store.Property {
	out := make([]*store.Property, 0, len(props))
	for _, p := range props {
		out = append(out, &store.Property{
			OwnerID:       owner,
			StatementID:   p.StatementID,
			PropertyID:    p.PropertyID,
			PropertyLabel: p.PropertyLabel,
			RawValue:      p.RawValue,
			ValueText:     p.ValueText,
			ValueID:       p.ValueID,
			DisplayText:   p.DisplayText,
		})
	}
	return out
}

func encodeContents(c *store.SpaceContents) ([]byte, error) {
	payload := snapshotPayload{
		Nodes: make([]snapshotNode, 0, len(c.Nodes)),
		Edges: make([]snapshotEdge, 0, len(c.Edges)),
	}
	for _, n := range c.Nodes {
		payload.Nodes = append(payload.Nodes, snapshotNode{
			ID:               n.ID,
			Label:            n.Label,
			Description:      n.Description,
			ExternalEntityID: n.ExternalEntityID,
			CreatedBy:        n.CreatedBy,
			CreatedAt:        n.CreatedAt,
			Archived:         n.Archived,
			Properties:       encodeProperties(c.NodeProperties[n.ID]),
		})
	}
	for _, e := range c.Edges {
		payload.Edges = append(payload.Edges, snapshotEdge{
			ID:                 e.ID,
			SourceID:           e.SourceID,
			TargetID:           e.TargetID,
			RelationLabel:      e.RelationLabel,
			ExternalPropertyID: e.ExternalPropertyID,
			CreatedAt:          e.CreatedAt,
			Properties:         encodeProperties(c.EdgeProperties[e.ID]),
		})
	}
	return json.Marshal(payload)
}

func decodeContents(spaceID int64, data []byte) (*store.SpaceContents, error) {
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeGraphSnapshotInvalid, "decoding snapshot payload: %w", err)
	}
	c := &store.SpaceContents{
		Nodes:          make([]*store.Node, 0, len(payload.Nodes)),
		Edges:          make([]*store.Edge, 0, len(payload.Edges)),
		NodeProperties: make(map[int64][]*store.Property),
		EdgeProperties: make(map[int64][]*store.Property),
	}
	for _, n := range payload.Nodes {
		if n.ID <= 0 {
			return nil, sgerr.New(sgerr.CodeGraphSnapshotInvalid, "snapshot node without id")
		}
		c.Nodes = append(c.Nodes, &store.Node{
			ID:               n.ID,
			SpaceID:          spaceID,
			Label:            n.Label,
			Description:      n.Description,
			ExternalEntityID: n.ExternalEntityID,
			CreatedBy:        n.CreatedBy,
			CreatedAt:        n.CreatedAt,
			Archived:         n.Archived,
		})
		if len(n.Properties) > 0 {
			c.NodeProperties[n.ID] = decodeProperties(n.ID, n.Properties)
		}
	}
	for _, e := range payload.Edges {
		if e.ID <= 0 {
			return nil, sgerr.New(sgerr.CodeGraphSnapshotInvalid, "snapshot edge without id")
		}
		c.Edges = append(c.Edges, &store.Edge{
			ID:                 e.ID,
			SpaceID:            spaceID,
			SourceID:           e.SourceID,
			TargetID:           e.TargetID,
			RelationLabel:      e.RelationLabel,
			ExternalPropertyID: e.ExternalPropertyID,
			CreatedAt:          e.CreatedAt,
		})
		if len(e.Properties) > 0 {
			c.EdgeProperties[e.ID] = decodeProperties(e.ID, e.Properties)
		}
	}
	return c, nil
}

// CreateSnapshot serialises the space's nodes, edges and their properties
// into a new immutable snapshot.
func (f *Facade) CreateSnapshot(ctx context.Context, actor string) (*store.Snapshot, error) {
	contents, err := f.rs.Snapshots().LoadSpace(ctx, f.spaceID)
	if err != nil {
		return nil, err
	}
	payload, err := encodeContents(contents)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeGraphSnapshotInvalid, "encoding snapshot payload: %w", err)
	}
	snap := &store.Snapshot{SpaceID: f.spaceID, CreatedBy: actor, Payload: payload}
	if err := f.rs.Snapshots().CreateSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	f.logger.Info("snapshot created", "snapshot_id", snap.ID, "nodes", len(contents.Nodes), "edges", len(contents.Edges))
	return snap, nil
}

// ListSnapshots returns the space's snapshots, oldest first.
func (f *Facade) ListSnapshots(ctx context.Context) ([]*store.Snapshot, error) {
	return f.rs.Snapshots().ListSnapshots(ctx, f.spaceID)
}

// RevertToSnapshot replaces the space with the snapshot contents in one
// relational transaction, then reconciles the projection for the space.
// A reconciliation failure is logged and does not fail the revert.
func (f *Facade) RevertToSnapshot(ctx context.Context, snapshotID int64) error {
	snap, err := f.rs.Snapshots().GetSnapshot(ctx, snapshotID)
	if err != nil {
		return err
	}
	if snap.SpaceID != f.spaceID {
		return sgerr.New(sgerr.CodeGraphSnapshotInvalid, "snapshot belongs to another space",
			sgerr.FieldSpaceID(f.spaceID), sgerr.Field("snapshot_id", snapshotID), sgerr.Field("snapshot_space_id", snap.SpaceID))
	}
	contents, err := decodeContents(f.spaceID, snap.Payload)
	if err != nil {
		return sgerr.With(err, sgerr.Field("snapshot_id", snapshotID))
	}
	if err := f.rs.Snapshots().RestoreSpace(ctx, f.spaceID, contents); err != nil {
		if sgerr.IsNotFound(err) {
			return err
		}
		return sgerr.Wrap(err, sgerr.CodeGraphRevertFailure, "restoring snapshot",
			sgerr.FieldSpaceID(f.spaceID), sgerr.Field("snapshot_id", snapshotID))
	}

	if f.reconciler != nil {
		if err := f.reconciler.ReconcileSpace(ctx, f.spaceID); err != nil {
			f.logger.Warn("projection reconciliation after revert failed", "snapshot_id", snapshotID, "error", err)
		}
	}
	f.logger.Info("space reverted", "snapshot_id", snapshotID)
	return f.Load(ctx)
}
