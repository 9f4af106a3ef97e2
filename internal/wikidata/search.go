// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package wikidata

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const entityPageURL = "https://www.wikidata.org/wiki/"

// SearchResult is one match from wbsearchentities.
type SearchResult struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type searchDocument struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
		ConceptURI  string `json:"concepturi"`
	} `json:"search"`
}

// SearchEntities finds items matching q. Failures yield an empty slice.
func (c *Client) SearchEntities(ctx context.Context, q string) []SearchResult {
	return c.search(ctx, q, "item")
}

// SearchProperties finds properties matching q. Failures yield an empty slice.
func (c *Client) SearchProperties(ctx context.Context, q string) []SearchResult {
	return c.search(ctx, q, "property")
}

func (c *Client) search(ctx context.Context, q, kind string) []SearchResult {
	q = strings.TrimSpace(q)
	if q == "" {
		return []SearchResult{}
	}
	params := url.Values{
		"action":   {"wbsearchentities"},
		"search":   {q},
		"language": {c.cfg.Language},
		"type":     {kind},
		"limit":    {strconv.Itoa(searchLimit)},
		"format":   {"json"},
	}
	body, err := c.get(ctx, c.cfg.APIURL+"?"+params.Encode())
	if err != nil {
		c.logger.Warn("wikidata search failed", "type", kind, "query", q, "error", err)
		return []SearchResult{}
	}

	var doc searchDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		c.logger.Warn("wikidata search failed", "type", kind, "query", q,
			"error", sgerr.Errorf(sgerr.CodeWikidataResponseInvalid, "decoding search: %w", err))
		return []SearchResult{}
	}

	out := make([]SearchResult, 0, len(doc.Search))
	for _, r := range doc.Search {
		link := r.ConceptURI
		if link == "" {
			link = entityPageURL + r.ID
		}
		out = append(out, SearchResult{ID: r.ID, Label: r.Label, Description: r.Description, URL: link})
	}
	return out
}
