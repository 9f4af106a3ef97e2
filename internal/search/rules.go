// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package search

import (
	"context"
	"strings"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Logic combines rule matches.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Rule matches nodes and edges carrying PropertyID. An empty ValueID
// matches any value.
type Rule struct {
	PropertyID string `json:"property_id"`
	ValueID    string `json:"value_id,omitempty"`
}

// RuleQuery is a flat list of rules joined by one logic operator. Empty
// logic means AND.
type RuleQuery struct {
	SpaceID int64
	Rules   []Rule
	Logic   Logic
}

// RuleNode is a node of a rule query result. Nodes pulled in only as the
// far endpoint of a matched edge have MatchedProperty false.
type RuleNode struct {
	ID               int64  `json:"id"`
	Label            string `json:"label"`
	Description      string `json:"description,omitempty"`
	ExternalEntityID string `json:"external_entity_id,omitempty"`
	MatchedProperty  bool   `json:"matched_property"`
}

// RuleEdge is an edge of a rule query result.
type RuleEdge struct {
	ID            int64  `json:"id"`
	Source        int64  `json:"source"`
	Target        int64  `json:"target"`
	RelationLabel string `json:"relation_label"`
}

// RuleResult holds nodes and edges sorted by id.
type RuleResult struct {
	Nodes []RuleNode `json:"nodes"`
	Edges []RuleEdge `json:"edges"`
}

func parseLogic(l Logic) (Logic, error) {
	switch Logic(strings.ToUpper(string(l))) {
	case "", LogicAnd:
		return LogicAnd, nil
	case LogicOr:
		return LogicOr, nil
	}
	return "", sgerr.New(sgerr.CodeSearchQueryInvalid, "unknown rule logic", sgerr.Field("logic", string(l)))
}

// RuleQuery evaluates a rule list against the relational store. Each rule
// selects its matching nodes plus the endpoints of its matching edges; AND
// intersects the per-rule sets and OR unions them.
func (e *Engine) RuleQuery(ctx context.Context, q RuleQuery) (*RuleResult, error) {
	logic, err := parseLogic(q.Logic)
	if err != nil {
		return nil, err
	}
	for i, r := range q.Rules {
		if strings.TrimSpace(r.PropertyID) == "" {
			return nil, sgerr.New(sgerr.CodeSearchQueryInvalid, "rule needs a property_id", sgerr.Field("rule", i))
		}
	}
	if _, err := e.rs.Spaces().GetSpace(ctx, q.SpaceID); err != nil {
		return nil, err
	}
	res := &RuleResult{Nodes: []RuleNode{}, Edges: []RuleEdge{}}
	if len(q.Rules) == 0 {
		return res, nil
	}

	queries := e.rs.Queries()
	var final map[int64]struct{}
	matchedEdges := make(map[int64][2]int64)
	for i, r := range q.Rules {
		m, err := queries.MatchRule(ctx, q.SpaceID, r.PropertyID, r.ValueID)
		if err != nil {
			return nil, err
		}
		set := toSet(m.NodeIDs)
		for _, id := range m.EdgeIDs {
			ends := m.EdgeEndpoints[id]
			matchedEdges[id] = ends
			set[ends[0]] = struct{}{}
			set[ends[1]] = struct{}{}
		}

		switch {
		case i == 0:
			final = set
		case logic == LogicAnd:
			for id := range final {
				if _, ok := set[id]; !ok {
					delete(final, id)
				}
			}
		default:
			for id := range set {
				final[id] = struct{}{}
			}
		}
	}
	if len(final) == 0 {
		return res, nil
	}

	nodeIDs := sortedKeys(final)
	among, err := queries.EdgesAmong(ctx, q.SpaceID, nodeIDs)
	if err != nil {
		return nil, err
	}
	edgeIDs := make(map[int64]struct{}, len(among)+len(matchedEdges))
	for _, ed := range among {
		edgeIDs[ed.ID] = struct{}{}
	}
	extra := make(map[int64]struct{})
	for id, ends := range matchedEdges {
		_, src := final[ends[0]]
		_, dst := final[ends[1]]
		if !src && !dst {
			continue
		}
		edgeIDs[id] = struct{}{}
		if !src {
			extra[ends[0]] = struct{}{}
		}
		if !dst {
			extra[ends[1]] = struct{}{}
		}
	}

	all := make(map[int64]struct{}, len(final)+len(extra))
	for id := range final {
		all[id] = struct{}{}
	}
	for id := range extra {
		all[id] = struct{}{}
	}
	nodes, err := queries.NodesByIDs(ctx, q.SpaceID, sortedKeys(all))
	if err != nil {
		return nil, err
	}
	edges, err := queries.EdgesByIDs(ctx, q.SpaceID, sortedKeys(edgeIDs))
	if err != nil {
		return nil, err
	}

	for _, n := range nodes {
		_, matched := final[n.ID]
		res.Nodes = append(res.Nodes, ruleNode(n, matched))
	}
	for _, ed := range edges {
		res.Edges = append(res.Edges, RuleEdge{ID: ed.ID, Source: ed.SourceID, Target: ed.TargetID, RelationLabel: ed.RelationLabel})
	}
	return res, nil
}

func ruleNode(n *store.Node, matched bool) RuleNode {
	return RuleNode{
		ID:               n.ID,
		Label:            n.Label,
		Description:      n.Description,
		ExternalEntityID: n.ExternalEntityID,
		MatchedProperty:  matched,
	}
}
