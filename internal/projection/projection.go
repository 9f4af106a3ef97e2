// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package projection defines the property-graph projection of the relational
// store. Every non-archived node is projected as a Node linked to its Space by
// an IN_SPACE relationship; every edge between projected nodes becomes one
// directed relationship whose type is the sanitised relation label.
package projection

import (
	"cmp"
	"context"
	"slices"

	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// InSpace is the synthetic relationship type linking a Node to its Space.
const InSpace = "IN_SPACE"

// DefaultMaxPaths bounds neighbourhood expansion.
const DefaultMaxPaths = 5000

// Store is a property-graph store that mirrors the relational store.
// Upserts are keyed by relational id and are idempotent.
type Store interface {
	UpsertSpace(ctx context.Context, space *store.Space) error
	DeleteSpace(ctx context.Context, spaceID int64) error
	UpsertNode(ctx context.Context, node *store.Node, props []*store.Property) error
	DeleteNode(ctx context.Context, nodeID int64) error
	UpsertEdge(ctx context.Context, edge *store.Edge) error
	DeleteEdge(ctx context.Context, edgeID int64) error

	// Clear removes every projected Space, Node and relationship.
	Clear(ctx context.Context) error
	Counts(ctx context.Context) (Counts, error)

	SpaceIDs(ctx context.Context) ([]int64, error)
	NodeIDs(ctx context.Context, spaceID int64) ([]int64, error)
	EdgeIDs(ctx context.Context, spaceID int64) ([]int64, error)

	// ExistingNodes returns the subset of ids projected in the space.
	ExistingNodes(ctx context.Context, spaceID int64, ids []int64) ([]int64, error)
	// FindNodesByText returns ids of nodes whose label or description
	// contains any of texts (case-sensitive).
	FindNodesByText(ctx context.Context, spaceID int64, texts []string) ([]int64, error)
	// FindEdges returns relationships whose type or label contains any of
	// selectors.
	FindEdges(ctx context.Context, spaceID int64, selectors []string) ([]EdgeRef, error)
	// Expand collects the nodes and relationships on all simple paths of
	// length at most depth starting at seeds, ignoring IN_SPACE. At most
	// maxPaths paths are considered; Partial reports that the cap was hit.
	Expand(ctx context.Context, spaceID int64, seeds []int64, depth, maxPaths int) (*Subgraph, error)

	Close(ctx context.Context) error
}

// Counts reports projected entity totals.
type Counts struct {
	Spaces  int
	Nodes   int
	Edges   int
	InSpace int
}

// EdgeRef identifies a projected relationship and its endpoints.
type EdgeRef struct {
	ID     int64
	Source int64
	Target int64
}

// Node is a projected node as returned by expansion.
type Node struct {
	ID          int64
	Label       string
	Description string
}

// Edge is a projected relationship as returned by expansion.
type Edge struct {
	ID     int64
	Source int64
	Target int64
	Type   string
	Label  string
}

// Subgraph is the result of an expansion.
type Subgraph struct {
	Nodes   []Node
	Edges   []Edge
	Partial bool
}

// Collect builds a Subgraph from node and edge sets keyed by id, sorted by id.
func Collect(nodes map[int64]Node, edges map[int64]Edge, partial bool) *Subgraph {
	sub := &Subgraph{Partial: partial}
	for _, n := range nodes {
		sub.Nodes = append(sub.Nodes, n)
	}
	for _, e := range edges {
		sub.Edges = append(sub.Edges, e)
	}
	slices.SortFunc(sub.Nodes, func(a, b Node) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(sub.Edges, func(a, b Edge) int { return cmp.Compare(a.ID, b.ID) })
	return sub
}
