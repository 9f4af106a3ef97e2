// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package store

import (
	"encoding/json"
	"time"
)

// --- Space types ---

// Space is a tenant-like scope that owns a disjoint subgraph of nodes and edges.
type Space struct {
	ID          int64
	Title       string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	Archived    bool
}

// --- Graph types ---

// Node is a vertex of a space's knowledge graph. ExternalEntityID, when set,
// is the Wikidata QID the node was imported from.
type Node struct {
	ID               int64
	SpaceID          int64
	Label            string
	Description      string
	ExternalEntityID string
	CreatedBy        string
	CreatedAt        time.Time
	Archived         bool
}

// Edge is a directed relationship between two nodes of the same space.
type Edge struct {
	ID                 int64
	SpaceID            int64
	SourceID           int64
	TargetID           int64
	RelationLabel      string
	ExternalPropertyID string
	CreatedAt          time.Time
}

// OwnerKind distinguishes node properties from edge properties.
type OwnerKind string

const (
	OwnerNode OwnerKind = "node"
	OwnerEdge OwnerKind = "edge"
)

// Property is a Wikidata-style statement attached to a node or an edge.
// StatementID is empty only for user-authored properties.
type Property struct {
	ID            int64
	OwnerID       int64
	StatementID   string
	PropertyID    string
	PropertyLabel string
	RawValue      json.RawMessage
	ValueText     string
	ValueID       string
	DisplayText   string
}

// SpaceContents is the full graph state of a space: nodes, edges and the
// properties attached to them, keyed by owner id.
type SpaceContents struct {
	Nodes          []*Node
	Edges          []*Edge
	NodeProperties map[int64][]*Property
	EdgeProperties map[int64][]*Property
}

// --- Snapshot types ---

// Snapshot is an immutable serialized copy of a space's graph.
type Snapshot struct {
	ID        int64
	SpaceID   int64
	CreatedBy string
	CreatedAt time.Time
	Payload   []byte
}

// --- Query types ---

// ListOpts controls pagination for list operations.
type ListOpts struct {
	Limit  int
	Offset int
}

// NodeListOpts filters node listings.
type NodeListOpts struct {
	IncludeArchived bool
	ListOpts
}

// PropertySource identifies whether a property summary came from nodes or edges.
type PropertySource string

const (
	PropertySourceNode PropertySource = "node"
	PropertySourceEdge PropertySource = "edge"
)

// PropertySummary is one distinct property id used within a space.
type PropertySummary struct {
	PropertyID    string
	PropertyLabel string
	Source        PropertySource
}

// PropertyValue is one distinct value of a property within a space.
type PropertyValue struct {
	ValueID   string
	ValueText string
}

// RuleMatch holds the node and edge ids whose properties match a single
// (property_id, value_id) rule. EdgeEndpoints maps each matched edge id to its
// (source, target) pair.
type RuleMatch struct {
	NodeIDs       []int64
	EdgeIDs       []int64
	EdgeEndpoints map[int64][2]int64
}

// Counts reports entity totals used by the reconciliation job.
type Counts struct {
	Spaces int
	Nodes  int
	Edges  int
}

// --- Repair types ---

// RepairOp names the mirror operation that failed.
type RepairOp string

const (
	RepairUpsert RepairOp = "upsert"
	RepairDelete RepairOp = "delete"
)

// RepairEntity names the kind of projected entity.
type RepairEntity string

const (
	RepairSpace RepairEntity = "space"
	RepairNode  RepairEntity = "node"
	RepairEdge  RepairEntity = "edge"
)

// ProjectionRepair records a projection write that failed after the
// relational commit succeeded, so reconciliation can replay it.
type ProjectionRepair struct {
	ID         string
	Operation  RepairOp
	Entity     RepairEntity
	EntityID   int64
	SpaceID    int64
	Reason     string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
