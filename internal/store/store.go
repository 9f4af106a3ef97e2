// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package store

import "context"

// GraphStore is the relational store of record. It groups the sub-stores
// that own spaces, nodes, edges, properties, snapshots and projection repairs.
type GraphStore interface {
	Spaces() SpaceStore
	Nodes() NodeStore
	Edges() EdgeStore
	Properties() PropertyStore
	Queries() QueryStore
	Snapshots() SnapshotStore
	Repairs() RepairStore

	// Counts returns the number of spaces, non-archived nodes and projectable
	// edges (both endpoints non-archived).
	Counts(ctx context.Context) (Counts, error)

	Close() error
}

// SpaceStore manages spaces.
type SpaceStore interface {
	CreateSpace(ctx context.Context, space *Space) error
	GetSpace(ctx context.Context, id int64) (*Space, error)
	ListSpaces(ctx context.Context, opts ListOpts) ([]*Space, error)
	// DeleteSpace removes the space and cascades to its nodes, edges,
	// properties and snapshots.
	DeleteSpace(ctx context.Context, id int64) error
}

// NodeStore manages nodes. CreateNode and UpdateNode write the node and its
// properties in a single transaction.
type NodeStore interface {
	CreateNode(ctx context.Context, node *Node, props []*Property) error
	GetNode(ctx context.Context, id int64) (*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	// DeleteNode removes the node and returns the ids of the edges that were
	// removed with it.
	DeleteNode(ctx context.Context, id int64) ([]int64, error)
	ListNodes(ctx context.Context, spaceID int64, opts NodeListOpts) ([]*Node, error)
	// ListNodesWithoutProperty returns non-archived nodes with an external
	// entity id that carry no property with the given property id.
	ListNodesWithoutProperty(ctx context.Context, propertyID string, limit int) ([]*Node, error)
}

// EdgeStore manages edges.
type EdgeStore interface {
	CreateEdge(ctx context.Context, edge *Edge, props []*Property) error
	GetEdge(ctx context.Context, id int64) (*Edge, error)
	UpdateEdge(ctx context.Context, edge *Edge) error
	DeleteEdge(ctx context.Context, id int64) error
	ListEdges(ctx context.Context, spaceID int64) ([]*Edge, error)
}

// PropertyStore manages node and edge properties.
type PropertyStore interface {
	NodeProperties(ctx context.Context, nodeID int64) ([]*Property, error)
	// NodePropertiesBySpace returns the properties with the given property id
	// for every node in the space, keyed by node id. An empty propertyID
	// returns all properties.
	NodePropertiesBySpace(ctx context.Context, spaceID int64, propertyID string) (map[int64][]*Property, error)
	// UpsertNodeProperties inserts the properties, replacing any existing
	// property with the same (node_id, statement_id).
	UpsertNodeProperties(ctx context.Context, nodeID int64, props []*Property) error
	DeleteNodeProperty(ctx context.Context, nodeID, propertyRowID int64) error

	EdgeProperties(ctx context.Context, edgeID int64) ([]*Property, error)
	UpsertEdgeProperties(ctx context.Context, edgeID int64, props []*Property) error
}

// QueryStore answers the relational parts of subgraph search.
type QueryStore interface {
	NodeIDsWithProperty(ctx context.Context, spaceID int64, propertyIDs []string) ([]int64, error)
	// NodeIDsWithValue matches node properties whose value_text or value_id
	// equals one of values exactly.
	NodeIDsWithValue(ctx context.Context, spaceID int64, values []string) ([]int64, error)
	// MatchRule returns nodes and edges carrying propertyID; a non-empty
	// valueID additionally requires an exact value_id match.
	MatchRule(ctx context.Context, spaceID int64, propertyID, valueID string) (*RuleMatch, error)
	DistinctProperties(ctx context.Context, spaceID int64) ([]PropertySummary, error)
	DistinctPropertyValues(ctx context.Context, spaceID int64, propertyID, query string) ([]PropertyValue, error)
	// SearchText matches nodes by label or description and edges by relation
	// label, case-insensitively.
	SearchText(ctx context.Context, spaceID int64, query string) ([]*Node, []*Edge, error)
	NodesByIDs(ctx context.Context, spaceID int64, ids []int64) ([]*Node, error)
	EdgesByIDs(ctx context.Context, spaceID int64, ids []int64) ([]*Edge, error)
	// EdgesAmong returns edges whose endpoints are both in nodeIDs.
	EdgesAmong(ctx context.Context, spaceID int64, nodeIDs []int64) ([]*Edge, error)
}

// SnapshotStore manages snapshots and the transactional restore of a space.
type SnapshotStore interface {
	CreateSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id int64) (*Snapshot, error)
	ListSnapshots(ctx context.Context, spaceID int64) ([]*Snapshot, error)
	// LoadSpace reads the complete graph state of a space.
	LoadSpace(ctx context.Context, spaceID int64) (*SpaceContents, error)
	// RestoreSpace atomically replaces the nodes, edges and properties of a
	// space with contents, preserving the ids it carries.
	RestoreSpace(ctx context.Context, spaceID int64, contents *SpaceContents) error
}

// RepairStore persists failed projection writes.
type RepairStore interface {
	RecordRepair(ctx context.Context, repair *ProjectionRepair) error
	PendingRepairs(ctx context.Context, limit int) ([]*ProjectionRepair, error)
	ResolveRepair(ctx context.Context, id string) error
}
