// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package server

import (
	"context"

	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/search"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
	"github.com/spacegraph-dev/spacegraph/pkg/health"
)

// SearchService answers the per-space search routes. *search.Engine
// implements it.
type SearchService interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
	RuleQuery(ctx context.Context, q search.RuleQuery) (*search.RuleResult, error)
	ListProperties(ctx context.Context, spaceID int64) ([]store.PropertySummary, error)
	ListPropertyValues(ctx context.Context, spaceID int64, propertyID, query string) ([]store.PropertyValue, error)
	TextSearch(ctx context.Context, spaceID int64, query string) (*search.TextResult, error)
	InstanceTypes(ctx context.Context, spaceID int64) (*ontology.Summary, error)
}

// WikidataService proxies Wikidata lookups. *wikidata.Client implements it.
type WikidataService interface {
	EntityClaimsWithStatus(ctx context.Context, entityID string) ([]wikidata.Claim, wikidata.CacheStatus)
	SearchEntities(ctx context.Context, q string) []wikidata.SearchResult
	SearchProperties(ctx context.Context, q string) []wikidata.SearchResult
}

var (
	_ SearchService   = (*search.Engine)(nil)
	_ WikidataService = (*wikidata.Client)(nil)
)

// Services holds dependencies injected into route handlers. Use
// NewServices to ensure the required ones are present.
type Services struct {
	search   SearchService
	wikidata WikidataService
	checks   map[string]health.Check
}

// NewServices validates and bundles the route dependencies. checks feed
// GET /health and may be nil.
func NewServices(searchSvc SearchService, wikidataSvc WikidataService, checks map[string]health.Check) (*Services, error) {
	if searchSvc == nil {
		return nil, sgerr.New(sgerr.CodeServerConfigInvalid, "search service is required")
	}
	if wikidataSvc == nil {
		return nil, sgerr.New(sgerr.CodeServerConfigInvalid, "wikidata service is required")
	}
	if checks == nil {
		checks = map[string]health.Check{}
	}
	return &Services{search: searchSvc, wikidata: wikidataSvc, checks: checks}, nil
}
