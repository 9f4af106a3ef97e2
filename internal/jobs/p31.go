// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package jobs holds one-shot management jobs.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
)

// DefaultDelay spaces successive Wikidata requests.
const DefaultDelay = time.Second

// ClaimSource returns the claims of a Wikidata entity. An entity unknown
// upstream yields no claims and no error.
type ClaimSource interface {
	LookupClaims(ctx context.Context, entityID string) ([]wikidata.Claim, wikidata.CacheStatus, error)
}

// PropertyWriter stores node properties and mirrors them.
type PropertyWriter interface {
	ReplaceNodeProperties(ctx context.Context, nodeID int64, props []*store.Property) error
}

// P31Options controls a backfill run.
type P31Options struct {
	DryRun bool
	// Limit caps the number of nodes visited; zero means all.
	Limit int
	// Delay is the minimum gap between successive request starts.
	Delay time.Duration
	// Concurrency bounds in-flight requests; values below one mean one.
	Concurrency int
}

// P31Summary counts backfill outcomes. SuccessCount counts nodes that were
// updated (or would be, in a dry run).
type P31Summary struct {
	Processed        int  `json:"processed"`
	SuccessCount     int  `json:"success_count"`
	P31FoundCount    int  `json:"p31_found_count"`
	P31NotFoundCount int  `json:"p31_not_found_count"`
	ErrorCount       int  `json:"error_count"`
	DryRun           bool `json:"dry_run"`
}

// P31Backfill fetches instance-of claims for imported nodes that have none.
type P31Backfill struct {
	nodes  store.NodeStore
	writer PropertyWriter
	claims ClaimSource
	logger *slog.Logger
}

// NewP31Backfill creates the job. A nil logger falls back to slog.Default.
func NewP31Backfill(nodes store.NodeStore, writer PropertyWriter, claims ClaimSource, logger *slog.Logger) *P31Backfill {
	if logger == nil {
		logger = slog.Default()
	}
	return &P31Backfill{nodes: nodes, writer: writer, claims: claims, logger: logger}
}

// Run visits every live node with an external entity id and no P31
// property. Nodes already carrying P31 are never revisited and property
// writes upsert by statement id, so reruns are idempotent.
func (j *P31Backfill) Run(ctx context.Context, opts P31Options) (*P31Summary, error) {
	pending, err := j.nodes.ListNodesWithoutProperty(ctx, ontology.InstanceOf, opts.Limit)
	if err != nil {
		return nil, err
	}
	j.logger.Info("p31 backfill starting", "nodes", len(pending), "dry_run", opts.DryRun, "concurrency", max(opts.Concurrency, 1))

	var (
		mu      sync.Mutex
		summary = &P31Summary{DryRun: opts.DryRun}
	)
	record := func(fn func(s *P31Summary)) {
		mu.Lock()
		defer mu.Unlock()
		fn(summary)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))

	var last time.Time
	for _, node := range pending {
		if !last.IsZero() && opts.Delay > 0 {
			if err := sleepUntil(gctx, last.Add(opts.Delay)); err != nil {
				break
			}
		}
		last = time.Now()

		g.Go(func() error {
			j.visit(gctx, node, opts.DryRun, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	j.logger.Info("p31 backfill finished",
		"success_count", summary.SuccessCount,
		"p31_found_count", summary.P31FoundCount,
		"p31_not_found_count", summary.P31NotFoundCount,
		"error_count", summary.ErrorCount,
	)
	return summary, nil
}

func (j *P31Backfill) visit(ctx context.Context, node *store.Node, dryRun bool, record func(func(*P31Summary))) {
	claims, _, err := j.claims.LookupClaims(ctx, node.ExternalEntityID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		record(func(s *P31Summary) {
			s.Processed++
			s.ErrorCount++
		})
		j.logger.Warn("fetching claims failed", "node_id", node.ID, "entity_id", node.ExternalEntityID, "error", err)
		return
	}

	var props []*store.Property
	for _, c := range claims {
		if c.PropertyID == ontology.InstanceOf {
			props = append(props, c.Property())
		}
	}

	if len(props) == 0 {
		record(func(s *P31Summary) {
			s.Processed++
			s.P31NotFoundCount++
		})
		j.logger.Debug("no p31 claims", "node_id", node.ID, "entity_id", node.ExternalEntityID)
		return
	}

	if !dryRun {
		if err := j.writer.ReplaceNodeProperties(ctx, node.ID, props); err != nil {
			record(func(s *P31Summary) {
				s.Processed++
				s.P31FoundCount++
				s.ErrorCount++
			})
			j.logger.Warn("storing p31 claims failed", "node_id", node.ID, "entity_id", node.ExternalEntityID, "error", err)
			return
		}
	}
	record(func(s *P31Summary) {
		s.Processed++
		s.P31FoundCount++
		s.SuccessCount++
	})
	j.logger.Debug("p31 claims stored", "node_id", node.ID, "entity_id", node.ExternalEntityID, "claims", len(props), "dry_run", dryRun)
}

func sleepUntil(ctx context.Context, at time.Time) error {
	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
