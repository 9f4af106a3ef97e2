// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package wikidata fetches entity claims and labels from the public Wikidata
// endpoints and caches them in-process.
package wikidata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const (
	DefaultEntityDataURL = "https://www.wikidata.org/wiki/Special:EntityData"
	DefaultAPIURL        = "https://www.wikidata.org/w/api.php"
	DefaultTimeout       = 5 * time.Second
	DefaultMaxProperties = 50
	DefaultClaimsTTL     = 24 * time.Hour
	DefaultLabelsTTL     = 7 * 24 * time.Hour
	DefaultMaxBodyBytes  = 32 << 20

	labelBatchSize = 50
	searchLimit    = 10
	userAgent      = "spacegraph/1.0 (https://github.com/spacegraph-dev/spacegraph)"
)

// CacheStatus reports whether a claims lookup was served from the cache.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// Config holds the client endpoints and limits. Zero values take defaults.
// MaxBodyBytes caps a single upstream response body.
type Config struct {
	EntityDataURL string
	APIURL        string
	Language      string
	Timeout       time.Duration
	MaxProperties int
	ClaimsTTL     time.Duration
	LabelsTTL     time.Duration
	MaxBodyBytes  int64
}

func (c Config) withDefaults() Config {
	if c.EntityDataURL == "" {
		c.EntityDataURL = DefaultEntityDataURL
	}
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxProperties <= 0 {
		c.MaxProperties = DefaultMaxProperties
	}
	if c.ClaimsTTL <= 0 {
		c.ClaimsTTL = DefaultClaimsTTL
	}
	if c.LabelsTTL <= 0 {
		c.LabelsTTL = DefaultLabelsTTL
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	c.EntityDataURL = strings.TrimRight(c.EntityDataURL, "/")
	return c
}

// Claim is one normalised statement of an entity.
type Claim struct {
	StatementID   string          `json:"statement_id"`
	PropertyID    string          `json:"property_id"`
	PropertyLabel string          `json:"property_label"`
	RawValue      json.RawMessage `json:"raw_value,omitempty"`
	ValueID       string          `json:"value_id,omitempty"`
	ValueText     string          `json:"value_text,omitempty"`
	DisplayText   string          `json:"display_text"`
}

// Property converts the claim into a relational property row.
func (c Claim) Property() *store.Property {
	return &store.Property{
		StatementID:   c.StatementID,
		PropertyID:    c.PropertyID,
		PropertyLabel: c.PropertyLabel,
		RawValue:      c.RawValue,
		ValueText:     c.ValueText,
		ValueID:       c.ValueID,
		DisplayText:   c.DisplayText,
	}
}

// Properties converts claims into property rows.
func Properties(claims []Claim) []*store.Property {
	out := make([]*store.Property, 0, len(claims))
	for _, c := range claims {
		out = append(out, c.Property())
	}
	return out
}

// Client talks to Wikidata. Safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	claims *ttlCache[[]Claim]
	labels *ttlCache[string]
	group  singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for upstream calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithClock replaces the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.claims.now = now
		c.labels.now = now
	}
}

// New creates a client. A nil logger falls back to slog.Default.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		claims: newTTLCache[[]Claim](cfg.ClaimsTTL, time.Now),
		labels: newTTLCache[string](cfg.LabelsTTL, time.Now),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EntityClaims returns the claims of entityID. Upstream failures yield an
// empty slice.
func (c *Client) EntityClaims(ctx context.Context, entityID string) []Claim {
	claims, _ := c.EntityClaimsWithStatus(ctx, entityID)
	return claims
}

// EntityClaimsWithStatus is EntityClaims plus whether the cache served it.
func (c *Client) EntityClaimsWithStatus(ctx context.Context, entityID string) ([]Claim, CacheStatus) {
	claims, status, err := c.LookupClaims(ctx, entityID)
	if err != nil {
		c.logger.Warn("wikidata claims lookup failed", "entity_id", entityID, "error", err)
		return []Claim{}, CacheMiss
	}
	return claims, status
}

// LookupClaims returns the claims of entityID and reports upstream
// failures. An entity Wikidata does not know has no claims and no error.
// Concurrent misses for the same entity share one upstream fetch, which is
// not cancelled when one of the waiting callers gives up.
func (c *Client) LookupClaims(ctx context.Context, entityID string) ([]Claim, CacheStatus, error) {
	entityID = strings.ToUpper(strings.TrimSpace(entityID))
	if entityID == "" {
		return []Claim{}, CacheMiss, nil
	}
	if claims, ok := c.claims.get(entityID); ok {
		return claims, CacheHit, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("claims:"+entityID, func() (any, error) {
		if claims, ok := c.claims.get(entityID); ok {
			return claims, nil
		}
		claims, err := c.fetchClaims(fetchCtx, entityID)
		if err != nil {
			return nil, err
		}
		c.claims.set(entityID, claims)
		return claims, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return []Claim{}, CacheMiss, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return []Claim{}, CacheMiss, res.Err
	}
	claims, ok := res.Val.([]Claim)
	if !ok {
		return []Claim{}, CacheMiss, sgerr.New(sgerr.CodeWikidataResponseInvalid, "unexpected claims type",
			sgerr.FieldEntityID(entityID), sgerr.Field("type", fmt.Sprintf("%T", res.Val)))
	}
	return claims, CacheMiss, nil
}

type entityDocument struct {
	Entities map[string]struct {
		ID     string          `json:"id"`
		Claims json.RawMessage `json:"claims"`
	} `json:"entities"`
}

type propertyStatements struct {
	propertyID string
	statements []statement
}

func (c *Client) fetchClaims(ctx context.Context, entityID string) ([]Claim, error) {
	endpoint := c.cfg.EntityDataURL + "/" + url.PathEscape(entityID) + ".json"
	body, err := c.get(ctx, endpoint)
	if sgerr.HasCode(err, sgerr.CodeWikidataEntityNotFound) {
		return []Claim{}, nil
	}
	if err != nil {
		return nil, err
	}

	var doc entityDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeWikidataResponseInvalid, "decoding entity %s: %w", entityID, err)
	}
	entity, ok := doc.Entities[entityID]
	if !ok {
		// Redirected entities are keyed by their target id.
		for _, e := range doc.Entities {
			entity, ok = e, true
			break
		}
	}
	if !ok {
		return nil, sgerr.New(sgerr.CodeWikidataResponseInvalid, "entity missing from response",
			sgerr.FieldEntityID(entityID))
	}

	groups, err := orderedStatements(entity.Claims)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeWikidataResponseInvalid, "decoding claims of %s: %w", entityID, err)
	}
	if len(groups) > c.cfg.MaxProperties {
		groups = groups[:c.cfg.MaxProperties]
	}

	claims := make([]Claim, 0, len(groups))
	refs := make([]normalized, 0, len(groups))
	labelIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		labelIDs = append(labelIDs, g.propertyID)
		for _, st := range g.statements {
			n := normalize(g.propertyID, st.MainSnak)
			claims = append(claims, Claim{
				StatementID: st.ID,
				PropertyID:  g.propertyID,
				RawValue:    st.MainSnak.DataValue,
				ValueID:     n.ValueID,
				ValueText:   n.ValueText,
				DisplayText: n.DisplayText,
			})
			refs = append(refs, n)
			if n.EntityRef != "" {
				labelIDs = append(labelIDs, n.EntityRef)
			}
		}
	}

	labels, err := c.Labels(ctx, labelIDs)
	if err != nil {
		return nil, err
	}
	for i := range claims {
		claims[i].PropertyLabel = labelOr(labels, claims[i].PropertyID)
		if ref := refs[i].EntityRef; ref != "" {
			claims[i].ValueText = labelOr(labels, ref)
			claims[i].DisplayText = claims[i].ValueText
		}
	}
	return claims, nil
}

// orderedStatements decodes a claims object keeping property document order.
func orderedStatements(raw json.RawMessage) ([]propertyStatements, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("[]")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("claims: expected object, got %v", tok)
	}

	var out []propertyStatements
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		pid, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("claims: expected property key, got %v", tok)
		}
		var sts []statement
		if err := dec.Decode(&sts); err != nil {
			return nil, fmt.Errorf("claims %s: %w", pid, err)
		}
		out = append(out, propertyStatements{propertyID: pid, statements: sts})
	}
	return out, nil
}

func labelOr(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok && l != "" {
		return l
	}
	return id
}

type labelsDocument struct {
	Entities map[string]struct {
		Labels map[string]struct {
			Value string `json:"value"`
		} `json:"labels"`
	} `json:"entities"`
}

// Labels resolves ids to labels. Labels are cached per id; uncached ids
// are requested in batches of 50.
func (c *Client) Labels(ctx context.Context, ids []string) (map[string]string, error) {
	uniq := dedupe(ids)
	out := make(map[string]string, len(uniq))
	missing := make([]string, 0, len(uniq))
	for _, id := range uniq {
		if l, ok := c.labels.get(id); ok {
			if l != "" {
				out[id] = l
			}
			continue
		}
		missing = append(missing, id)
	}

	for start := 0; start < len(missing); start += labelBatchSize {
		end := min(start+labelBatchSize, len(missing))
		labels, err := c.labelBatch(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		for k, v := range labels {
			out[k] = v
		}
	}
	return out, nil
}

// labelBatch fetches one batch and caches every id in it, including ids
// that have no label in the configured language.
func (c *Client) labelBatch(ctx context.Context, batch []string) (map[string]string, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("labels:"+strings.Join(batch, ","), func() (any, error) {
		params := url.Values{
			"action":    {"wbgetentities"},
			"ids":       {strings.Join(batch, "|")},
			"props":     {"labels"},
			"languages": {c.cfg.Language},
			"format":    {"json"},
		}
		body, err := c.get(fetchCtx, c.cfg.APIURL+"?"+params.Encode())
		if err != nil {
			return nil, err
		}
		var doc labelsDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeWikidataResponseInvalid, "decoding labels: %w", err)
		}
		labels := make(map[string]string, len(doc.Entities))
		for id, e := range doc.Entities {
			if l, ok := e.Labels[c.cfg.Language]; ok && l.Value != "" {
				labels[id] = l.Value
			}
		}
		for _, id := range batch {
			c.labels.set(id, labels[id])
		}
		return labels, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	labels, ok := res.Val.(map[string]string)
	if !ok {
		return nil, sgerr.New(sgerr.CodeWikidataResponseInvalid, "unexpected label batch type",
			sgerr.Field("type", fmt.Sprintf("%T", res.Val)))
	}
	return labels, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeWikidataUpstreamFailure, "building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeWikidataUpstreamFailure, "requesting %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, sgerr.New(sgerr.CodeWikidataEntityNotFound, "entity not found upstream", sgerr.Field("url", endpoint))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, sgerr.New(sgerr.CodeWikidataUpstreamFailure, "unexpected upstream status",
			sgerr.Field("status", resp.StatusCode), sgerr.Field("url", endpoint))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeWikidataUpstreamFailure, "reading response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, sgerr.New(sgerr.CodeWikidataResponseInvalid, "upstream response too large",
			sgerr.Field("limit_bytes", c.cfg.MaxBodyBytes), sgerr.Field("url", endpoint))
	}
	return body, nil
}
