// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/search"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/pkg/health"
)

func (s *Server) registerHealthRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Always answers 200 while the process is up. Status is degraded when a store is unreachable.",
		Tags:        []string{"system"},
	}, s.handleHealth)
}

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "rule-query",
		Method:      http.MethodPost,
		Path:        "/spaces/{space}/search/query",
		Summary:     "Match nodes and edges by property rules",
		Tags:        []string{"search"},
	}, s.handleRuleQuery)

	huma.Register(s.api, huma.Operation{
		OperationID: "subgraph-search",
		Method:      http.MethodPost,
		Path:        "/spaces/{space}/search/subgraph",
		Summary:     "Expand the neighbourhood of selected nodes",
		Tags:        []string{"search"},
	}, s.handleSubgraph)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-properties",
		Method:      http.MethodGet,
		Path:        "/spaces/{space}/search/properties",
		Summary:     "List distinct properties used in a space",
		Tags:        []string{"search"},
	}, s.handleListProperties)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-property-values",
		Method:      http.MethodGet,
		Path:        "/spaces/{space}/search/properties/{property_id}/values",
		Summary:     "List distinct values of a property",
		Tags:        []string{"search"},
	}, s.handleListPropertyValues)

	huma.Register(s.api, huma.Operation{
		OperationID: "text-search",
		Method:      http.MethodGet,
		Path:        "/spaces/{space}/search/text",
		Summary:     "Case-insensitive substring search over nodes and edges",
		Tags:        []string{"search"},
	}, s.handleTextSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "instance-types",
		Method:      http.MethodGet,
		Path:        "/spaces/{space}/instance-types",
		Summary:     "Group nodes by instance type",
		Tags:        []string{"search"},
	}, s.handleInstanceTypes)
}

// --- Request/Response types for huma ---

type healthOutput struct {
	Body health.Report
}

type spaceInput struct {
	Space string `path:"space" doc:"Space id"`
}

type ruleQueryInput struct {
	Space string `path:"space" doc:"Space id"`
	Body  struct {
		Rules []search.Rule `json:"rules" doc:"Property rules; a rule without value_id matches any value"`
		Logic string        `json:"logic,omitempty" doc:"AND (default) or OR"`
	}
}

// RuleNode is a node of a rule query response.
type RuleNode struct {
	ID               int64  `json:"id"`
	Label            string `json:"label"`
	Description      string `json:"description,omitempty"`
	ExternalEntityID string `json:"external_entity_id,omitempty"`
	MatchedProperty  bool   `json:"matched_property"`
}

// RuleEdge is an edge of a rule query response.
type RuleEdge struct {
	ID     int64  `json:"id"`
	Source int64  `json:"source"`
	Target int64  `json:"target"`
	Label  string `json:"label"`
}

type ruleQueryOutput struct {
	Body struct {
		Nodes []RuleNode `json:"nodes"`
		Edges []RuleEdge `json:"edges"`
	}
}

type subgraphInput struct {
	Space string `path:"space" doc:"Space id"`
	Body  struct {
		NodeSelectors        []search.Selector `json:"node_selectors,omitempty" doc:"Seed nodes by id or text"`
		EdgeSelectors        []string          `json:"edge_selectors,omitempty" doc:"Relationship type or label substrings"`
		PropertyFilters      []string          `json:"property_filters,omitempty" doc:"Property ids; nodes carrying any are seeds"`
		PropertyValueFilters []string          `json:"property_value_filters,omitempty" doc:"Exact property values; overrides property_filters"`
		Depth                *int              `json:"depth,omitempty" doc:"Expansion radius, default 1"`
	}
}

type subgraphOutput struct {
	Body *search.Result
}

// Property is a distinct property of a space.
type Property struct {
	PropertyID    string `json:"property_id"`
	PropertyLabel string `json:"property_label"`
	Source        string `json:"source" enum:"node,edge"`
}

type listPropertiesOutput struct {
	Body []Property
}

type propertyValuesInput struct {
	Space      string `path:"space" doc:"Space id"`
	PropertyID string `path:"property_id" doc:"Property id, e.g. P31"`
	Q          string `query:"q" doc:"Case-insensitive substring of the value text"`
}

// PropertyValue is a distinct value of a property.
type PropertyValue struct {
	ValueID   string `json:"value_id"`
	ValueText string `json:"value_text"`
}

type propertyValuesOutput struct {
	Body []PropertyValue
}

type textSearchInput struct {
	Space string `path:"space" doc:"Space id"`
	Q     string `query:"q" doc:"Substring to match"`
}

// TextNode is a node matched by text search.
type TextNode struct {
	ID               int64  `json:"id"`
	Label            string `json:"label"`
	Description      string `json:"description,omitempty"`
	ExternalEntityID string `json:"external_entity_id,omitempty"`
}

// TextEdge is an edge matched by text search.
type TextEdge struct {
	ID            int64  `json:"id"`
	Source        int64  `json:"source"`
	Target        int64  `json:"target"`
	RelationLabel string `json:"relation_label"`
}

type textSearchOutput struct {
	Body struct {
		Nodes []TextNode `json:"nodes"`
		Edges []TextEdge `json:"edges"`
	}
}

type instanceTypesOutput struct {
	Body *ontology.Summary
}

// --- Handlers ---

func (s *Server) handleHealth(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	return &healthOutput{Body: health.Run(ctx, s.cfg.HealthTimeout, s.services.checks)}, nil
}

func (s *Server) handleRuleQuery(ctx context.Context, input *ruleQueryInput) (*ruleQueryOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "rule-query", err)
	}

	res, err := s.services.search.RuleQuery(ctx, search.RuleQuery{
		SpaceID: spaceID,
		Rules:   input.Body.Rules,
		Logic:   search.Logic(input.Body.Logic),
	})
	if err != nil {
		return nil, s.apiError(ctx, "rule-query", err)
	}

	out := &ruleQueryOutput{}
	out.Body.Nodes = make([]RuleNode, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		out.Body.Nodes = append(out.Body.Nodes, RuleNode(n))
	}
	out.Body.Edges = make([]RuleEdge, 0, len(res.Edges))
	for _, e := range res.Edges {
		out.Body.Edges = append(out.Body.Edges, RuleEdge{ID: e.ID, Source: e.Source, Target: e.Target, Label: e.RelationLabel})
	}
	return out, nil
}

func (s *Server) handleSubgraph(ctx context.Context, input *subgraphInput) (*subgraphOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "subgraph-search", err)
	}

	res, err := s.services.search.Search(ctx, search.Query{
		SpaceID:              spaceID,
		NodeSelectors:        input.Body.NodeSelectors,
		EdgeSelectors:        input.Body.EdgeSelectors,
		PropertyFilters:      input.Body.PropertyFilters,
		PropertyValueFilters: input.Body.PropertyValueFilters,
		Depth:                input.Body.Depth,
	})
	if err != nil {
		return nil, s.apiError(ctx, "subgraph-search", err)
	}
	return &subgraphOutput{Body: res}, nil
}

func (s *Server) handleListProperties(ctx context.Context, input *spaceInput) (*listPropertiesOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "list-properties", err)
	}

	props, err := s.services.search.ListProperties(ctx, spaceID)
	if err != nil {
		return nil, s.apiError(ctx, "list-properties", err)
	}

	out := &listPropertiesOutput{Body: make([]Property, 0, len(props))}
	for _, p := range props {
		out.Body = append(out.Body, Property{PropertyID: p.PropertyID, PropertyLabel: p.PropertyLabel, Source: string(p.Source)})
	}
	return out, nil
}

func (s *Server) handleListPropertyValues(ctx context.Context, input *propertyValuesInput) (*propertyValuesOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "list-property-values", err)
	}

	values, err := s.services.search.ListPropertyValues(ctx, spaceID, input.PropertyID, input.Q)
	if err != nil {
		return nil, s.apiError(ctx, "list-property-values", err)
	}

	out := &propertyValuesOutput{Body: make([]PropertyValue, 0, len(values))}
	for _, v := range values {
		out.Body = append(out.Body, PropertyValue(v))
	}
	return out, nil
}

func (s *Server) handleTextSearch(ctx context.Context, input *textSearchInput) (*textSearchOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "text-search", err)
	}

	res, err := s.services.search.TextSearch(ctx, spaceID, input.Q)
	if err != nil {
		return nil, s.apiError(ctx, "text-search", err)
	}

	out := &textSearchOutput{}
	out.Body.Nodes = make([]TextNode, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		out.Body.Nodes = append(out.Body.Nodes, textNode(n))
	}
	out.Body.Edges = make([]TextEdge, 0, len(res.Edges))
	for _, e := range res.Edges {
		out.Body.Edges = append(out.Body.Edges, TextEdge{ID: e.ID, Source: e.SourceID, Target: e.TargetID, RelationLabel: e.RelationLabel})
	}
	return out, nil
}

func (s *Server) handleInstanceTypes(ctx context.Context, input *spaceInput) (*instanceTypesOutput, error) {
	spaceID, err := parseSpaceID(input.Space)
	if err != nil {
		return nil, s.apiError(ctx, "instance-types", err)
	}

	summary, err := s.services.search.InstanceTypes(ctx, spaceID)
	if err != nil {
		return nil, s.apiError(ctx, "instance-types", err)
	}
	return &instanceTypesOutput{Body: summary}, nil
}

func textNode(n *store.Node) TextNode {
	return TextNode{ID: n.ID, Label: n.Label, Description: n.Description, ExternalEntityID: n.ExternalEntityID}
}
