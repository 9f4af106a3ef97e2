// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package search

import (
	"context"
	"strings"

	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// ListProperties returns the distinct properties used by nodes and edges
// of a space.
func (e *Engine) ListProperties(ctx context.Context, spaceID int64) ([]store.PropertySummary, error) {
	if _, err := e.rs.Spaces().GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	props, err := e.rs.Queries().DistinctProperties(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []store.PropertySummary{}
	}
	return props, nil
}

// ListPropertyValues returns the distinct values of propertyID in a space,
// optionally filtered by a case-insensitive substring of value text or id.
func (e *Engine) ListPropertyValues(ctx context.Context, spaceID int64, propertyID, query string) ([]store.PropertyValue, error) {
	if _, err := e.rs.Spaces().GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	values, err := e.rs.Queries().DistinctPropertyValues(ctx, spaceID, propertyID, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []store.PropertyValue{}
	}
	return values, nil
}

// TextResult holds relational text matches.
type TextResult struct {
	Nodes []*store.Node
	Edges []*store.Edge
}

// TextSearch matches node labels, node descriptions and edge relation
// labels case-insensitively. An empty query matches nothing.
func (e *Engine) TextSearch(ctx context.Context, spaceID int64, query string) (*TextResult, error) {
	if _, err := e.rs.Spaces().GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	res := &TextResult{Nodes: []*store.Node{}, Edges: []*store.Edge{}}
	query = strings.TrimSpace(query)
	if query == "" {
		return res, nil
	}
	nodes, edges, err := e.rs.Queries().SearchText(ctx, spaceID, query)
	if err != nil {
		return nil, err
	}
	if nodes != nil {
		res.Nodes = nodes
	}
	if edges != nil {
		res.Edges = edges
	}
	return res, nil
}

// InstanceTypes classifies every live node of a space.
func (e *Engine) InstanceTypes(ctx context.Context, spaceID int64) (*ontology.Summary, error) {
	if _, err := e.rs.Spaces().GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	nodes, err := e.rs.Nodes().ListNodes(ctx, spaceID, store.NodeListOpts{})
	if err != nil {
		return nil, err
	}
	props, err := e.rs.Properties().NodePropertiesBySpace(ctx, spaceID, ontology.InstanceOf)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return e.table.Summarize(ids, props), nil
}
