// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package search answers subgraph queries over a space. Property and value
// filters run against the relational store; text, edge selectors and
// neighbourhood expansion run against the projection.
package search

import (
	"context"
	"log/slog"
	"slices"

	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const (
	DefaultDepth    = 1
	DefaultMaxDepth = 5
)

// Config bounds query cost.
type Config struct {
	MaxDepth int
	MaxPaths int
}

// Query selects seed nodes and the neighbourhood radius around them.
// Selector kinds are OR-combined.
type Query struct {
	SpaceID              int64
	NodeSelectors        []Selector
	EdgeSelectors        []string
	PropertyFilters      []string
	PropertyValueFilters []string
	// Depth defaults to DefaultDepth when nil.
	Depth *int
}

func (q Query) empty() bool {
	return len(q.NodeSelectors) == 0 && len(q.EdgeSelectors) == 0 &&
		len(q.PropertyFilters) == 0 && len(q.PropertyValueFilters) == 0
}

// Node is a result node with its match annotations.
type Node struct {
	ID                   int64                    `json:"id"`
	Label                string                   `json:"label"`
	Description          string                   `json:"description,omitempty"`
	MatchedProperty      bool                     `json:"matched_property"`
	MatchedPropertyValue bool                     `json:"matched_property_value"`
	InstanceType         *ontology.Classification `json:"instance_type,omitempty"`
}

// Edge is a result relationship.
type Edge struct {
	ID     int64  `json:"id"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label"`
}

// Result is a subgraph. Partial reports that the path cap was hit; Degraded
// reports that the projection failed and the result is empty.
type Result struct {
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
	Partial  bool   `json:"partial"`
	Degraded bool   `json:"degraded"`
}

func emptyResult() *Result {
	return &Result{Nodes: []Node{}, Edges: []Edge{}}
}

// Engine runs searches. Safe for concurrent use.
type Engine struct {
	rs     store.GraphStore
	pgs    projection.Store
	table  *ontology.Table
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil table uses the default ontology table
// and a nil logger falls back to slog.Default.
func NewEngine(rs store.GraphStore, pgs projection.Store, table *ontology.Table, cfg Config, logger *slog.Logger) *Engine {
	if table == nil {
		table = ontology.DefaultTable()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxPaths <= 0 {
		cfg.MaxPaths = projection.DefaultMaxPaths
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rs: rs, pgs: pgs, table: table, cfg: cfg, logger: logger}
}

// Search resolves seeds from every selector kind, expands them over simple
// paths up to the requested depth and annotates the resulting nodes.
func (e *Engine) Search(ctx context.Context, q Query) (*Result, error) {
	depth := DefaultDepth
	if q.Depth != nil {
		depth = *q.Depth
	}
	if depth < 0 {
		return nil, sgerr.New(sgerr.CodeSearchQueryInvalid, "depth must be non-negative", sgerr.Field("depth", depth))
	}
	depth = min(depth, e.cfg.MaxDepth)
	for _, s := range q.NodeSelectors {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	if _, err := e.rs.Spaces().GetSpace(ctx, q.SpaceID); err != nil {
		return nil, err
	}
	if q.empty() {
		return emptyResult(), nil
	}

	queries := e.rs.Queries()
	propertyMatches, err := queries.NodeIDsWithProperty(ctx, q.SpaceID, q.PropertyFilters)
	if err != nil {
		return nil, err
	}
	valueMatches, err := queries.NodeIDsWithValue(ctx, q.SpaceID, q.PropertyValueFilters)
	if err != nil {
		return nil, err
	}

	seeds := make([]int64, 0, len(q.NodeSelectors))
	var texts []string
	for _, s := range q.NodeSelectors {
		if s.Kind == SelectorID {
			seeds = append(seeds, s.ID)
		} else {
			texts = append(texts, s.Text)
		}
	}
	if len(valueMatches) > 0 {
		seeds = append(seeds, valueMatches...)
	} else {
		seeds = append(seeds, propertyMatches...)
	}

	sub, err := e.expand(ctx, q.SpaceID, seeds, texts, q.EdgeSelectors, depth)
	if err != nil {
		if sgerr.HasCode(err, sgerr.CodeProjectionUnavailable) {
			return nil, err
		}
		e.logger.Error("subgraph query failed", "space_id", q.SpaceID, "depth", depth, "error", err)
		res := emptyResult()
		res.Degraded = true
		return res, nil
	}

	return e.annotate(ctx, q.SpaceID, sub, propertyMatches, valueMatches)
}

func (e *Engine) expand(ctx context.Context, spaceID int64, seeds []int64, texts, edgeSelectors []string, depth int) (*projection.Subgraph, error) {
	if len(texts) > 0 {
		ids, err := e.pgs.FindNodesByText(ctx, spaceID, texts)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, ids...)
	}
	if len(edgeSelectors) > 0 {
		refs, err := e.pgs.FindEdges(ctx, spaceID, edgeSelectors)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			seeds = append(seeds, r.Source, r.Target)
		}
	}
	slices.Sort(seeds)
	seeds = slices.Compact(seeds)
	if len(seeds) == 0 {
		return &projection.Subgraph{}, nil
	}
	return e.pgs.Expand(ctx, spaceID, seeds, depth, e.cfg.MaxPaths)
}

func (e *Engine) annotate(ctx context.Context, spaceID int64, sub *projection.Subgraph, propertyMatches, valueMatches []int64) (*Result, error) {
	res := emptyResult()
	res.Partial = sub.Partial
	if len(sub.Nodes) == 0 {
		return res, nil
	}

	instanceOf, err := e.rs.Properties().NodePropertiesBySpace(ctx, spaceID, ontology.InstanceOf)
	if err != nil {
		return nil, err
	}
	propSet := toSet(propertyMatches)
	valueSet := toSet(valueMatches)
	for _, n := range sub.Nodes {
		_, mp := propSet[n.ID]
		_, mv := valueSet[n.ID]
		res.Nodes = append(res.Nodes, Node{
			ID:                   n.ID,
			Label:                n.Label,
			Description:          n.Description,
			MatchedProperty:      mp,
			MatchedPropertyValue: mv,
			InstanceType:         e.table.ClassifyProperties(instanceOf[n.ID]),
		})
	}
	for _, ed := range sub.Edges {
		res.Edges = append(res.Edges, Edge{ID: ed.ID, Source: ed.Source, Target: ed.Target, Type: ed.Type, Label: ed.Label})
	}
	return res, nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
