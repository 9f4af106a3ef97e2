// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package server

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

var entityIDPattern = regexp.MustCompile(`^[QqPpLl][0-9]+$`)

func (s *Server) registerWikidataRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "wikidata-search",
		Method:      http.MethodGet,
		Path:        "/wikidata-search",
		Summary:     "Search Wikidata items",
		Tags:        []string{"wikidata"},
	}, s.handleWikidataSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "wikidata-property-search",
		Method:      http.MethodGet,
		Path:        "/wikidata-property-search",
		Summary:     "Search Wikidata properties",
		Tags:        []string{"wikidata"},
	}, s.handleWikidataPropertySearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "wikidata-entity-properties",
		Method:      http.MethodGet,
		Path:        "/wikidata-entity-properties/{entity_id}",
		Summary:     "Normalised claims of a Wikidata entity",
		Description: "X-Cache reports whether the claims came from the in-process cache.",
		Tags:        []string{"wikidata"},
	}, s.handleEntityProperties)
}

type wikidataSearchInput struct {
	Q string `query:"q" doc:"Search text"`
}

type wikidataSearchOutput struct {
	Body []wikidata.SearchResult
}

type entityPropertiesInput struct {
	EntityID string `path:"entity_id" doc:"Entity id, e.g. Q42"`
}

// EntityProperty is one claim of an entity as served to clients.
type EntityProperty struct {
	StatementID   string `json:"statement_id"`
	Property      string `json:"property"`
	PropertyLabel string `json:"property_label"`
	Value         string `json:"value"`
	ValueID       string `json:"value_id,omitempty"`
	Display       string `json:"display"`
}

type entityPropertiesOutput struct {
	Cache string `header:"X-Cache" enum:"HIT,MISS"`
	Body  []EntityProperty
}

func (s *Server) handleWikidataSearch(ctx context.Context, input *wikidataSearchInput) (*wikidataSearchOutput, error) {
	return &wikidataSearchOutput{Body: nonNil(s.services.wikidata.SearchEntities(ctx, input.Q))}, nil
}

func (s *Server) handleWikidataPropertySearch(ctx context.Context, input *wikidataSearchInput) (*wikidataSearchOutput, error) {
	return &wikidataSearchOutput{Body: nonNil(s.services.wikidata.SearchProperties(ctx, input.Q))}, nil
}

func nonNil(results []wikidata.SearchResult) []wikidata.SearchResult {
	if results == nil {
		return []wikidata.SearchResult{}
	}
	return results
}

func (s *Server) handleEntityProperties(ctx context.Context, input *entityPropertiesInput) (*entityPropertiesOutput, error) {
	id := strings.TrimSpace(input.EntityID)
	if !entityIDPattern.MatchString(id) {
		return nil, s.apiError(ctx, "wikidata-entity-properties",
			sgerr.Errorf(sgerr.CodeServerRequestInvalid, "invalid Wikidata entity id %q", input.EntityID))
	}

	claims, status := s.services.wikidata.EntityClaimsWithStatus(ctx, id)

	out := &entityPropertiesOutput{Cache: string(status), Body: make([]EntityProperty, 0, len(claims))}
	for _, c := range claims {
		out.Body = append(out.Body, EntityProperty{
			StatementID:   c.StatementID,
			Property:      c.PropertyID,
			PropertyLabel: c.PropertyLabel,
			Value:         c.ValueText,
			ValueID:       c.ValueID,
			Display:       c.DisplayText,
		})
	}
	return out, nil
}
