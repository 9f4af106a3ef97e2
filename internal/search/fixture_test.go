// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package search_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	"github.com/spacegraph-dev/spacegraph/internal/projection/memory"
	"github.com/spacegraph-dev/spacegraph/internal/search"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/store/sqlite"
)

type physics struct {
	gs     *sqlite.GraphStore
	pgs    *memory.Store
	engine *search.Engine
	space  int64

	bohr, qm, classical, copenhagen, heisenberg int64

	bohrField, heisenbergField, birthplace, related int64
}

func instanceOf(stmt, qid, label string) *store.Property {
	return &store.Property{StatementID: stmt, PropertyID: "P31", PropertyLabel: "instance of", ValueID: qid, ValueText: label}
}

func newPhysics(t *testing.T, cfg search.Config) *physics {
	t.Helper()
	ctx := context.Background()
	gs, err := sqlite.NewGraphStore(filepath.Join(t.TempDir(), "search.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	pgs := memory.New()
	w := mirror.NewWriter(gs, pgs, nil)

	f := &physics{gs: gs, pgs: pgs, engine: search.NewEngine(gs, pgs, nil, cfg, nil)}
	f.space, err = w.CreateSpace(ctx, &store.Space{Title: "Physics", CreatedBy: "tester"})
	require.NoError(t, err)

	node := func(label, desc string, props ...*store.Property) int64 {
		id, err := w.CreateNode(ctx, &store.Node{SpaceID: f.space, Label: label, Description: desc}, props)
		require.NoError(t, err)
		return id
	}
	edge := func(src, dst int64, label string, props ...*store.Property) int64 {
		id, err := w.CreateEdge(ctx, &store.Edge{SpaceID: f.space, SourceID: src, TargetID: dst, RelationLabel: label}, props)
		require.NoError(t, err)
		return id
	}

	f.bohr = node("Niels Bohr", "Danish physicist",
		instanceOf("Q7085$1", "Q5", "human"),
		&store.Property{StatementID: "Q7085$2", PropertyID: "P569", PropertyLabel: "date of birth",
			ValueID: "P569:1885-10-07T00:00:00Z", ValueText: "1885-10-07T00:00:00Z"},
	)
	f.qm = node("Quantum Mechanics", "fundamental physical theory", instanceOf("Q944$1", "Q1936384", "branch of physics"))
	f.classical = node("Classical Physics", "")
	f.copenhagen = node("Copenhagen", "capital of Denmark", instanceOf("Q1748$1", "Q515", "city"))
	f.heisenberg = node("Werner Heisenberg", "German physicist", instanceOf("Q40904$1", "Q5", "human"))

	f.bohrField = edge(f.bohr, f.qm, "field of work",
		&store.Property{StatementID: "Q7085$3", PropertyID: "P101", PropertyLabel: "field of work", ValueID: "Q944", ValueText: "quantum mechanics"})
	f.heisenbergField = edge(f.heisenberg, f.qm, "field of work")
	f.birthplace = edge(f.bohr, f.copenhagen, "place of birth")
	f.related = edge(f.qm, f.classical, "!!!")
	return f
}

func nodeIDs(res *search.Result) []int64 {
	ids := []int64{}
	for _, n := range res.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func edgeIDs(res *search.Result) []int64 {
	ids := []int64{}
	for _, e := range res.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func depth(d int) *int { return &d }
