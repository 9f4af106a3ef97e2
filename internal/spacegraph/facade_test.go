// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package spacegraph_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	"github.com/spacegraph-dev/spacegraph/internal/projection/memory"
	"github.com/spacegraph-dev/spacegraph/internal/spacegraph"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/store/sqlite"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type env struct {
	gs     *sqlite.GraphStore
	pgs    *memory.Store
	writer *mirror.Writer
	rec    *mirror.Reconciler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gs, err := sqlite.NewGraphStore(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	pgs := memory.New()
	return &env{gs: gs, pgs: pgs, writer: mirror.NewWriter(gs, pgs, nil), rec: mirror.NewReconciler(gs, pgs, nil)}
}

func (e *env) facade(t *testing.T, title string) *spacegraph.Facade {
	t.Helper()
	id, err := e.writer.CreateSpace(context.Background(), &store.Space{Title: title, CreatedBy: "tester"})
	require.NoError(t, err)
	f := spacegraph.New(id, e.gs, e.writer, e.rec, nil)
	require.NoError(t, f.Load(context.Background()))
	return f
}

// line adds nodes a-b-c-d in a path plus an isolated pair e-f.
func line(t *testing.T, f *spacegraph.Facade) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	ids := map[string]int64{}
	for _, l := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		n, err := f.AddNode(ctx, l, "", "tester")
		require.NoError(t, err)
		ids[l] = n.ID
	}
	for _, pair := range [][2]string{{"a", "b"}, {"c", "b"}, {"c", "d"}, {"e", "f"}} {
		_, err := f.AddEdge(ctx, ids[pair[0]], ids[pair[1]], "next")
		require.NoError(t, err)
	}
	return ids
}

func TestFacade_ShortestPath(t *testing.T) {
	e := newEnv(t)
	f := e.facade(t, "paths")
	ids := line(t, f)

	path, err := f.ShortestPath(ids["a"], ids["d"])
	require.NoError(t, err)
	assert.Equal(t, []int64{ids["a"], ids["b"], ids["c"], ids["d"]}, path, "edges are undirected")

	path, err = f.ShortestPath(ids["a"], ids["a"])
	require.NoError(t, err)
	assert.Equal(t, []int64{ids["a"]}, path)

	_, err = f.ShortestPath(ids["a"], ids["e"])
	require.Error(t, err)
	assert.True(t, sgerr.IsNotConnected(err))
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGraphNotConnected))

	_, err = f.ShortestPath(ids["a"], 9999)
	assert.True(t, sgerr.IsNotFound(err))
}

func TestFacade_ConnectedComponentsAndStats(t *testing.T) {
	e := newEnv(t)
	f := e.facade(t, "components")
	ids := line(t, f)

	assert.Equal(t, [][]int64{
		{ids["a"], ids["b"], ids["c"], ids["d"]},
		{ids["e"], ids["f"]},
		{ids["g"]},
	}, f.ConnectedComponents())
	assert.Equal(t, spacegraph.Stats{Nodes: 7, Edges: 4, Components: 3}, f.Stats())

	t.Run("reload matches incremental state", func(t *testing.T) {
		fresh := spacegraph.New(f.SpaceID(), e.gs, e.writer, e.rec, nil)
		require.NoError(t, fresh.Load(context.Background()))
		assert.Equal(t, f.ConnectedComponents(), fresh.ConnectedComponents())
		assert.Equal(t, f.Stats(), fresh.Stats())
	})

	t.Run("mirrored to projection", func(t *testing.T) {
		projected, err := e.pgs.NodeIDs(context.Background(), f.SpaceID())
		require.NoError(t, err)
		assert.Len(t, projected, 7)
	})
}

func TestFacade_LoadUnknownSpace(t *testing.T) {
	e := newEnv(t)
	f := spacegraph.New(404, e.gs, e.writer, e.rec, nil)
	err := f.Load(context.Background())
	require.Error(t, err)
	assert.True(t, sgerr.IsNotFound(err))
}

func graphState(t *testing.T, gs store.GraphStore, spaceID int64) ([]int64, []int64) {
	t.Helper()
	contents, err := gs.Snapshots().LoadSpace(context.Background(), spaceID)
	require.NoError(t, err)
	var nodes, edges []int64
	for _, n := range contents.Nodes {
		nodes = append(nodes, n.ID)
	}
	for _, e := range contents.Edges {
		edges = append(edges, e.ID)
	}
	return nodes, edges
}

func TestFacade_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	f := e.facade(t, "history")
	ids := line(t, f)
	require.NoError(t, e.writer.ReplaceNodeProperties(ctx, ids["a"], []*store.Property{
		{StatementID: "Qa$1", PropertyID: "P31", PropertyLabel: "instance of", ValueID: "Q5", ValueText: "human",
			RawValue: json.RawMessage(`{"type":"wikibase-entityid","value":{"id":"Q5"}}`)},
	}))

	wantNodes, wantEdges := graphState(t, e.gs, f.SpaceID())

	snap, err := f.CreateSnapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.CreatedBy)

	var payload struct {
		Nodes []struct {
			ID         int64 `json:"id"`
			Properties []struct {
				PropertyID string `json:"property_id"`
				ValueID    string `json:"value_id"`
			} `json:"properties"`
		} `json:"nodes"`
		Edges []struct {
			ID int64 `json:"id"`
		} `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(snap.Payload, &payload))
	assert.Len(t, payload.Nodes, 7)
	assert.Len(t, payload.Edges, 4)
	require.Len(t, payload.Nodes[0].Properties, 1)
	assert.Equal(t, "Q5", payload.Nodes[0].Properties[0].ValueID)

	// Diverge: add, relabel and delete.
	extra, err := f.AddNode(ctx, "h", "", "tester")
	require.NoError(t, err)
	_, err = f.AddEdge(ctx, extra.ID, ids["g"], "joins")
	require.NoError(t, err)
	require.NoError(t, e.writer.DeleteNode(ctx, ids["b"]))

	require.NoError(t, f.RevertToSnapshot(ctx, snap.ID))

	gotNodes, gotEdges := graphState(t, e.gs, f.SpaceID())
	assert.Equal(t, wantNodes, gotNodes)
	assert.Equal(t, wantEdges, gotEdges)
	assert.Equal(t, spacegraph.Stats{Nodes: 7, Edges: 4, Components: 3}, f.Stats())

	props, err := e.gs.Properties().NodeProperties(ctx, ids["a"])
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Q5", props[0].ValueID)
	assert.JSONEq(t, `{"type":"wikibase-entityid","value":{"id":"Q5"}}`, string(props[0].RawValue))

	t.Run("projection reconciled", func(t *testing.T) {
		projected, err := e.pgs.NodeIDs(ctx, f.SpaceID())
		require.NoError(t, err)
		assert.Equal(t, wantNodes, projected)
		projectedEdges, err := e.pgs.EdgeIDs(ctx, f.SpaceID())
		require.NoError(t, err)
		assert.Equal(t, wantEdges, projectedEdges)
	})

	t.Run("snapshot unchanged and listed", func(t *testing.T) {
		again, err := e.gs.Snapshots().GetSnapshot(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, snap.Payload, again.Payload)

		snaps, err := f.ListSnapshots(ctx)
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, snap.ID, snaps[0].ID)
	})
}

func TestFacade_RevertErrors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.facade(t, "a")
	b := e.facade(t, "b")

	snap, err := a.CreateSnapshot(ctx, "alice")
	require.NoError(t, err)

	err = b.RevertToSnapshot(ctx, snap.ID)
	require.Error(t, err)
	assert.True(t, sgerr.IsInvalidInput(err))

	err = a.RevertToSnapshot(ctx, 5555)
	assert.True(t, sgerr.IsNotFound(err))

	bad := &store.Snapshot{SpaceID: a.SpaceID(), CreatedBy: "mallory", Payload: []byte(`{"nodes": "nope"}`)}
	require.NoError(t, e.gs.Snapshots().CreateSnapshot(ctx, bad))
	err = a.RevertToSnapshot(ctx, bad.ID)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeGraphSnapshotInvalid))
}
