// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package wikidata_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

const bohrClaims = `{
  "entities": {
    "Q7085": {
      "id": "Q7085",
      "claims": {
        "P31": [{"id": "Q7085$a", "mainsnak": {"snaktype": "value", "property": "P31",
          "datavalue": {"type": "wikibase-entityid", "value": {"entity-type": "item", "id": "Q5", "numeric-id": 5}}}}],
        "P569": [{"id": "Q7085$b", "mainsnak": {"snaktype": "value", "property": "P569",
          "datavalue": {"type": "time", "value": {"time": "+1885-10-07T00:00:00Z", "precision": 11}}}}],
        "P345": [{"id": "Q7085$c", "mainsnak": {"snaktype": "value", "property": "P345",
          "datavalue": {"type": "string", "value": "nm0092088"}}}],
        "P1559": [{"id": "Q7085$d", "mainsnak": {"snaktype": "value", "property": "P1559",
          "datavalue": {"type": "monolingualtext", "value": {"text": "Niels Bohr", "language": "da"}}}}],
        "P2067": [{"id": "Q7085$e", "mainsnak": {"snaktype": "value", "property": "P2067",
          "datavalue": {"type": "quantity", "value": {"amount": "+70", "unit": "http://www.wikidata.org/entity/Q11570"}}}}],
        "P625": [{"id": "Q7085$f", "mainsnak": {"snaktype": "value", "property": "P625",
          "datavalue": {"type": "globecoordinate", "value": {"latitude": 55.6, "longitude": 12.5}}}}],
        "P20": [{"id": "Q7085$g", "mainsnak": {"snaktype": "somevalue", "property": "P20"}}],
        "P1196": [{"id": "Q7085$h", "mainsnak": {"snaktype": "novalue", "property": "P1196"}}]
      }
    }
  }
}`

var knownLabels = map[string]string{
	"P31":   "instance of",
	"P569":  "date of birth",
	"P345":  "IMDb ID",
	"P1559": "name in native language",
	"P2067": "mass",
	"P625":  "coordinate location",
	"P20":   "place of death",
	"P1196": "manner of death",
	"Q5":    "human",
}

type fakeWikidata struct {
	entityCalls atomic.Int32
	labelCalls  atomic.Int32
	searchCalls atomic.Int32
	failEntity  atomic.Bool
	entityGate  chan struct{}
	labelIDs    sync.Map
}

func (f *fakeWikidata) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/entity/", func(w http.ResponseWriter, r *http.Request) {
		f.entityCalls.Add(1)
		if f.entityGate != nil {
			<-f.entityGate
		}
		if f.failEntity.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Path != "/entity/Q7085.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(bohrClaims))
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "wbgetentities":
			f.labelCalls.Add(1)
			entities := map[string]any{}
			for _, id := range strings.Split(q.Get("ids"), "|") {
				f.labelIDs.Store(id, true)
				label, ok := knownLabels[id]
				if !ok {
					label = "label " + id
				}
				entities[id] = map[string]any{"labels": map[string]any{"en": map[string]string{"language": "en", "value": label}}}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"entities": entities})
		case "wbsearchentities":
			f.searchCalls.Add(1)
			if q.Get("type") == "property" {
				_, _ = w.Write([]byte(`{"search":[{"id":"P569","label":"date of birth","description":"date on which the subject was born"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"search":[{"id":"Q7085","label":"Niels Bohr","description":"Danish physicist","concepturi":"http://www.wikidata.org/entity/Q7085"}]}`))
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}
	})
	return mux
}

func newClient(t *testing.T, f *fakeWikidata, cfg wikidata.Config, opts ...wikidata.Option) *wikidata.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	cfg.EntityDataURL = srv.URL + "/entity"
	cfg.APIURL = srv.URL + "/api"
	return wikidata.New(cfg, nil, opts...)
}

func claimByProperty(claims []wikidata.Claim, pid string) (wikidata.Claim, bool) {
	for _, c := range claims {
		if c.PropertyID == pid {
			return c, true
		}
	}
	return wikidata.Claim{}, false
}

func TestClient_EntityClaimsNormalisesValues(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})

	claims := c.EntityClaims(context.Background(), "Q7085")
	require.Len(t, claims, 8)

	order := make([]string, 0, len(claims))
	for _, cl := range claims {
		order = append(order, cl.PropertyID)
	}
	assert.Equal(t, []string{"P31", "P569", "P345", "P1559", "P2067", "P625", "P20", "P1196"}, order)

	tests := []struct {
		pid         string
		label       string
		valueID     string
		valueText   string
		displayText string
	}{
		{"P31", "instance of", "Q5", "human", "human"},
		{"P569", "date of birth", "P569:1885-10-07T00:00:00Z", "1885-10-07T00:00:00Z", "1885-10-07"},
		{"P345", "IMDb ID", "", "nm0092088", "nm0092088"},
		{"P1559", "name in native language", "", "Niels Bohr", "Niels Bohr"},
		{"P2067", "mass", "", "70 Q11570", "70 Q11570"},
		{"P625", "coordinate location", "", "55.6,12.5", "55.6,12.5"},
		{"P20", "place of death", "", "unknown value", "unknown value"},
		{"P1196", "manner of death", "", "no value", "no value"},
	}
	for _, tt := range tests {
		t.Run(tt.pid, func(t *testing.T) {
			cl, ok := claimByProperty(claims, tt.pid)
			require.True(t, ok)
			assert.Equal(t, tt.label, cl.PropertyLabel)
			assert.Equal(t, tt.valueID, cl.ValueID)
			assert.Equal(t, tt.valueText, cl.ValueText)
			assert.Equal(t, tt.displayText, cl.DisplayText)
		})
	}

	p31, _ := claimByProperty(claims, "P31")
	assert.Equal(t, "Q7085$a", p31.StatementID)
	assert.JSONEq(t, `{"type": "wikibase-entityid", "value": {"entity-type": "item", "id": "Q5", "numeric-id": 5}}`, string(p31.RawValue))

	prop := p31.Property()
	assert.Equal(t, "P31", prop.PropertyID)
	assert.Equal(t, "Q5", prop.ValueID)
	assert.Equal(t, "Q7085$a", prop.StatementID)
}

func TestClient_MaxPropertiesBoundsDocumentOrder(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{MaxProperties: 2})

	claims := c.EntityClaims(context.Background(), "Q7085")
	require.Len(t, claims, 2)
	assert.Equal(t, "P31", claims[0].PropertyID)
	assert.Equal(t, "P569", claims[1].PropertyID)

	_, asked := f.labelIDs.Load("P345")
	assert.False(t, asked, "labels are only requested for kept properties")
}

func TestClient_CacheHitAndExpiry(t *testing.T) {
	f := &fakeWikidata{}
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := newClient(t, f, wikidata.Config{ClaimsTTL: time.Hour, LabelsTTL: 48 * time.Hour}, wikidata.WithClock(clock))
	ctx := context.Background()

	claims, status := c.EntityClaimsWithStatus(ctx, "Q7085")
	assert.Equal(t, wikidata.CacheMiss, status)
	require.NotEmpty(t, claims)

	again, status := c.EntityClaimsWithStatus(ctx, "q7085")
	assert.Equal(t, wikidata.CacheHit, status)
	assert.Equal(t, claims, again)
	assert.EqualValues(t, 1, f.entityCalls.Load())
	assert.EqualValues(t, 1, f.labelCalls.Load())

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	_, status = c.EntityClaimsWithStatus(ctx, "Q7085")
	assert.Equal(t, wikidata.CacheMiss, status)
	assert.EqualValues(t, 2, f.entityCalls.Load())
	assert.EqualValues(t, 1, f.labelCalls.Load(), "label batch outlives the claims TTL")
}

func TestClient_FailureReturnsEmptyAndIsNotCached(t *testing.T) {
	f := &fakeWikidata{}
	f.failEntity.Store(true)
	c := newClient(t, f, wikidata.Config{})
	ctx := context.Background()

	claims, status := c.EntityClaimsWithStatus(ctx, "Q7085")
	assert.NotNil(t, claims)
	assert.Empty(t, claims)
	assert.Equal(t, wikidata.CacheMiss, status)

	f.failEntity.Store(false)
	claims, status = c.EntityClaimsWithStatus(ctx, "Q7085")
	assert.Len(t, claims, 8)
	assert.Equal(t, wikidata.CacheMiss, status)
	assert.EqualValues(t, 2, f.entityCalls.Load())
}

func TestClient_LookupClaimsReportsFailures(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})
	ctx := context.Background()

	claims, _, err := c.LookupClaims(ctx, "Q1")
	require.NoError(t, err, "an entity unknown upstream is not a failure")
	assert.Empty(t, claims)

	f.failEntity.Store(true)
	claims, status, err := c.LookupClaims(ctx, "Q7085")
	require.Error(t, err)
	assert.True(t, sgerr.IsUpstreamFailure(err))
	assert.Empty(t, claims)
	assert.Equal(t, wikidata.CacheMiss, status)
}

func TestClient_ResponseSizeIsBounded(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{MaxBodyBytes: 64})

	_, _, err := c.LookupClaims(context.Background(), "Q7085")
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeWikidataResponseInvalid))
}

func TestClient_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := &fakeWikidata{entityGate: make(chan struct{})}
	c := newClient(t, f, wikidata.Config{})

	cancelled, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.LookupClaims(cancelled, "Q7085")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.entityCalls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	second := make(chan []wikidata.Claim, 1)
	go func() {
		claims, _, _ := c.LookupClaims(context.Background(), "Q7085")
		second <- claims
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.entityGate)
	assert.Len(t, <-second, 8)
	assert.EqualValues(t, 1, f.entityCalls.Load())
}

func TestClient_LabelsAreCachedPerID(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})
	ctx := context.Background()

	_, err := c.Labels(ctx, []string{"P31", "Q5"})
	require.NoError(t, err)
	require.EqualValues(t, 1, f.labelCalls.Load())

	labels, err := c.Labels(ctx, []string{"P31"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"P31": "instance of"}, labels)
	assert.EqualValues(t, 1, f.labelCalls.Load())

	labels, err = c.Labels(ctx, []string{"Q5", "P569"})
	require.NoError(t, err)
	assert.Equal(t, "human", labels["Q5"])
	assert.Equal(t, "date of birth", labels["P569"])
	assert.EqualValues(t, 2, f.labelCalls.Load())
	_, asked := f.labelIDs.Load("P569")
	assert.True(t, asked)
}

func TestClient_UnknownEntityIsEmpty(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})

	assert.Empty(t, c.EntityClaims(context.Background(), "Q1"))
	assert.Empty(t, c.EntityClaims(context.Background(), "  "))
}

func TestClient_ConcurrentMissesShareOneFetch(t *testing.T) {
	f := &fakeWikidata{entityGate: make(chan struct{})}
	c := newClient(t, f, wikidata.Config{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]wikidata.Claim, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.EntityClaims(context.Background(), "Q7085")
		}(i)
	}

	require.Eventually(t, func() bool { return f.entityCalls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.entityGate)
	wg.Wait()

	assert.EqualValues(t, 1, f.entityCalls.Load())
	for i := range results {
		assert.Len(t, results[i], 8)
	}
}

func TestClient_LabelsBatchesOfFifty(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})
	ctx := context.Background()

	ids := make([]string, 0, 120)
	for i := range 120 {
		ids = append(ids, fmt.Sprintf("P%d", i+1))
	}
	labels, err := c.Labels(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, labels, 120)
	assert.Equal(t, "instance of", labels["P31"])
	assert.EqualValues(t, 3, f.labelCalls.Load())

	_, err = c.Labels(ctx, append(ids, "P1"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, f.labelCalls.Load())
}

func TestClient_Search(t *testing.T) {
	f := &fakeWikidata{}
	c := newClient(t, f, wikidata.Config{})
	ctx := context.Background()

	items := c.SearchEntities(ctx, "bohr")
	require.Len(t, items, 1)
	assert.Equal(t, wikidata.SearchResult{
		ID:          "Q7085",
		Label:       "Niels Bohr",
		Description: "Danish physicist",
		URL:         "http://www.wikidata.org/entity/Q7085",
	}, items[0])

	props := c.SearchProperties(ctx, "birth")
	require.Len(t, props, 1)
	assert.Equal(t, "P569", props[0].ID)
	assert.Equal(t, "https://www.wikidata.org/wiki/P569", props[0].URL)

	assert.Empty(t, c.SearchEntities(ctx, ""))
	assert.EqualValues(t, 2, f.searchCalls.Load())
}

func TestClient_SearchUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := wikidata.New(wikidata.Config{APIURL: srv.URL, EntityDataURL: srv.URL}, nil)
	res := c.SearchEntities(context.Background(), "bohr")
	assert.NotNil(t, res)
	assert.Empty(t, res)
}
