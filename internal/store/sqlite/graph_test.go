// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/store/sqlite"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStore_Spaces(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "spaces")

	space := &store.Space{Title: "Physics", Description: "Fields and particles", CreatedBy: "ada"}
	require.NoError(t, gs.Spaces().CreateSpace(ctx, space))
	assert.Positive(t, space.ID)

	got, err := gs.Spaces().GetSpace(ctx, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics", got.Title)
	assert.Equal(t, "ada", got.CreatedBy)
	assert.False(t, got.CreatedAt.IsZero())

	spaces, err := gs.Spaces().ListSpaces(ctx, store.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, spaces, 1)

	_, err = gs.Spaces().GetSpace(ctx, 999)
	assert.True(t, sgerr.IsNotFound(err))

	err = gs.Spaces().CreateSpace(ctx, &store.Space{})
	assert.True(t, sgerr.IsInvalidInput(err))
}

func TestGraphStore_DeleteSpaceCascades(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "cascade-space")
	space, nodes := seedSpace(t, gs, "Cities", "Paris", "Lyon")

	edge := &store.Edge{SpaceID: space.ID, SourceID: nodes[0].ID, TargetID: nodes[1].ID, RelationLabel: "near"}
	require.NoError(t, gs.Edges().CreateEdge(ctx, edge, nil))

	require.NoError(t, gs.Spaces().DeleteSpace(ctx, space.ID))

	_, err := gs.Nodes().GetNode(ctx, nodes[0].ID)
	assert.True(t, sgerr.IsNotFound(err))
	_, err = gs.Edges().GetEdge(ctx, edge.ID)
	assert.True(t, sgerr.IsNotFound(err))

	err = gs.Spaces().DeleteSpace(ctx, space.ID)
	assert.True(t, sgerr.IsNotFound(err))
}

func TestGraphStore_NodesAndProperties(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "nodes")
	space, _ := seedSpace(t, gs, "People")

	node := &store.Node{SpaceID: space.ID, Label: "Douglas Adams", Description: "English writer", ExternalEntityID: "Q42"}
	props := []*store.Property{
		{StatementID: "Q42$1", PropertyID: "P31", PropertyLabel: "instance of", ValueID: "Q5", ValueText: "human",
			RawValue: json.RawMessage(`{"id":"Q5"}`)},
		{PropertyID: "note", PropertyLabel: "note", ValueText: "user authored"},
	}
	require.NoError(t, gs.Nodes().CreateNode(ctx, node, props))

	got, err := gs.Nodes().GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "English writer", got.Description)
	assert.Equal(t, "Q42", got.ExternalEntityID)

	stored, err := gs.Properties().NodeProperties(ctx, node.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Q42$1", stored[0].StatementID)
	assert.JSONEq(t, `{"id":"Q5"}`, string(stored[0].RawValue))
	assert.Empty(t, stored[1].StatementID)

	t.Run("upsert replaces by statement id", func(t *testing.T) {
		err := gs.Properties().UpsertNodeProperties(ctx, node.ID, []*store.Property{
			{StatementID: "Q42$1", PropertyID: "P31", PropertyLabel: "instance of", ValueID: "Q5", ValueText: "human being"},
		})
		require.NoError(t, err)

		stored, err := gs.Properties().NodeProperties(ctx, node.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "human being", stored[0].ValueText)
	})

	t.Run("by space filters property id", func(t *testing.T) {
		byNode, err := gs.Properties().NodePropertiesBySpace(ctx, space.ID, "P31")
		require.NoError(t, err)
		require.Len(t, byNode[node.ID], 1)
		assert.Equal(t, "Q5", byNode[node.ID][0].ValueID)
	})

	t.Run("delete property", func(t *testing.T) {
		require.NoError(t, gs.Properties().DeleteNodeProperty(ctx, node.ID, stored[1].ID))
		err := gs.Properties().DeleteNodeProperty(ctx, node.ID, stored[1].ID)
		assert.True(t, sgerr.IsNotFound(err))
	})

	t.Run("update node", func(t *testing.T) {
		got.Label = "Douglas Noel Adams"
		got.Archived = true
		require.NoError(t, gs.Nodes().UpdateNode(ctx, got))

		listed, err := gs.Nodes().ListNodes(ctx, space.ID, store.NodeListOpts{})
		require.NoError(t, err)
		assert.Empty(t, listed)

		listed, err = gs.Nodes().ListNodes(ctx, space.ID, store.NodeListOpts{IncludeArchived: true})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Douglas Noel Adams", listed[0].Label)
	})
}

func TestGraphStore_CreateNodeUnknownSpace(t *testing.T) {
	gs := openGraphStore(t, "nodes-unknown")
	err := gs.Nodes().CreateNode(context.Background(), &store.Node{SpaceID: 77, Label: "orphan"}, nil)
	assert.True(t, sgerr.IsNotFound(err))
}

func TestGraphStore_Edges(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "edges")
	space, nodes := seedSpace(t, gs, "Books", "Douglas Adams", "Hitchhiker's Guide")
	other, otherNodes := seedSpace(t, gs, "Other", "Elsewhere")

	edge := &store.Edge{SpaceID: space.ID, SourceID: nodes[1].ID, TargetID: nodes[0].ID, RelationLabel: "author", ExternalPropertyID: "P50"}
	require.NoError(t, gs.Edges().CreateEdge(ctx, edge, []*store.Property{
		{StatementID: "Q25169$1", PropertyID: "P50", PropertyLabel: "author", ValueID: "Q42", ValueText: "Douglas Adams"},
	}))

	props, err := gs.Properties().EdgeProperties(ctx, edge.ID)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Q42", props[0].ValueID)

	t.Run("cross space endpoints conflict", func(t *testing.T) {
		bad := &store.Edge{SpaceID: space.ID, SourceID: nodes[0].ID, TargetID: otherNodes[0].ID}
		err := gs.Edges().CreateEdge(ctx, bad, nil)
		assert.True(t, sgerr.IsConflict(err))

		bad = &store.Edge{SpaceID: other.ID, SourceID: nodes[0].ID, TargetID: otherNodes[0].ID}
		err = gs.Edges().CreateEdge(ctx, bad, nil)
		assert.True(t, sgerr.IsConflict(err))
	})

	t.Run("missing endpoint not found", func(t *testing.T) {
		err := gs.Edges().CreateEdge(ctx, &store.Edge{SpaceID: space.ID, SourceID: nodes[0].ID, TargetID: 9999}, nil)
		assert.True(t, sgerr.IsNotFound(err))
	})

	t.Run("update relation label", func(t *testing.T) {
		edge.RelationLabel = "written by"
		require.NoError(t, gs.Edges().UpdateEdge(ctx, edge))
		got, err := gs.Edges().GetEdge(ctx, edge.ID)
		require.NoError(t, err)
		assert.Equal(t, "written by", got.RelationLabel)
	})

	t.Run("delete node cascades edges", func(t *testing.T) {
		removed, err := gs.Nodes().DeleteNode(ctx, nodes[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{edge.ID}, removed)

		_, err = gs.Edges().GetEdge(ctx, edge.ID)
		assert.True(t, sgerr.IsNotFound(err))

		edges, err := gs.Edges().ListEdges(ctx, space.ID)
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func TestGraphStore_Queries(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "queries")
	space, nodes := seedSpace(t, gs, "Science", "Quantum Mechanics", "Classical Physics", "Niels Bohr")

	require.NoError(t, gs.Properties().UpsertNodeProperties(ctx, nodes[2].ID, []*store.Property{
		{StatementID: "Q7085$1", PropertyID: "P31", PropertyLabel: "instance of", ValueID: "Q5", ValueText: "human"},
		{StatementID: "Q7085$2", PropertyID: "P569", PropertyLabel: "date of birth", ValueID: "P569:1885-10-07T00:00:00Z", ValueText: "1885-10-07T00:00:00Z"},
	}))
	require.NoError(t, gs.Properties().UpsertNodeProperties(ctx, nodes[0].ID, []*store.Property{
		{StatementID: "Q944$1", PropertyID: "P31", PropertyLabel: "instance of", ValueID: "Q1936384", ValueText: "branch of physics"},
	}))
	edge := &store.Edge{SpaceID: space.ID, SourceID: nodes[2].ID, TargetID: nodes[0].ID, RelationLabel: "field of work"}
	require.NoError(t, gs.Edges().CreateEdge(ctx, edge, []*store.Property{
		{StatementID: "Q7085$3", PropertyID: "P101", PropertyLabel: "field of work", ValueID: "Q944", ValueText: "quantum mechanics"},
	}))

	q := gs.Queries()

	ids, err := q.NodeIDsWithProperty(ctx, space.ID, []string{"P569"})
	require.NoError(t, err)
	assert.Equal(t, []int64{nodes[2].ID}, ids)

	ids, err = q.NodeIDsWithValue(ctx, space.ID, []string{"human", "branch of physics"})
	require.NoError(t, err)
	assert.Equal(t, []int64{nodes[0].ID, nodes[2].ID}, ids)

	ids, err = q.NodeIDsWithValue(ctx, space.ID, []string{"P569:1885-10-07T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, []int64{nodes[2].ID}, ids)

	t.Run("match rule with and without value", func(t *testing.T) {
		m, err := q.MatchRule(ctx, space.ID, "P31", "Q5")
		require.NoError(t, err)
		assert.Equal(t, []int64{nodes[2].ID}, m.NodeIDs)
		assert.Empty(t, m.EdgeIDs)

		m, err = q.MatchRule(ctx, space.ID, "P31", "")
		require.NoError(t, err)
		assert.Equal(t, []int64{nodes[0].ID, nodes[2].ID}, m.NodeIDs)

		m, err = q.MatchRule(ctx, space.ID, "P101", "Q944")
		require.NoError(t, err)
		assert.Empty(t, m.NodeIDs)
		assert.Equal(t, []int64{edge.ID}, m.EdgeIDs)
		assert.Equal(t, [2]int64{nodes[2].ID, nodes[0].ID}, m.EdgeEndpoints[edge.ID])
	})

	t.Run("distinct properties", func(t *testing.T) {
		ps, err := q.DistinctProperties(ctx, space.ID)
		require.NoError(t, err)
		assert.Equal(t, []store.PropertySummary{
			{PropertyID: "P101", PropertyLabel: "field of work", Source: store.PropertySourceEdge},
			{PropertyID: "P31", PropertyLabel: "instance of", Source: store.PropertySourceNode},
			{PropertyID: "P569", PropertyLabel: "date of birth", Source: store.PropertySourceNode},
		}, ps)
	})

	t.Run("distinct values with filter", func(t *testing.T) {
		vs, err := q.DistinctPropertyValues(ctx, space.ID, "P31", "")
		require.NoError(t, err)
		assert.Len(t, vs, 2)

		vs, err = q.DistinctPropertyValues(ctx, space.ID, "P31", "HUM")
		require.NoError(t, err)
		assert.Equal(t, []store.PropertyValue{{ValueID: "Q5", ValueText: "human"}}, vs)
	})

	t.Run("text search is case insensitive", func(t *testing.T) {
		ns, es, err := q.SearchText(ctx, space.ID, "quantum")
		require.NoError(t, err)
		require.Len(t, ns, 1)
		assert.Equal(t, "Quantum Mechanics", ns[0].Label)
		assert.Empty(t, es)

		_, es, err = q.SearchText(ctx, space.ID, "FIELD")
		require.NoError(t, err)
		assert.Len(t, es, 1)

		ns, es, err = q.SearchText(ctx, space.ID, "  ")
		require.NoError(t, err)
		assert.Empty(t, ns)
		assert.Empty(t, es)
	})

	t.Run("text search escapes wildcards", func(t *testing.T) {
		ns, _, err := q.SearchText(ctx, space.ID, "%")
		require.NoError(t, err)
		assert.Empty(t, ns)
	})

	t.Run("edges among", func(t *testing.T) {
		es, err := q.EdgesAmong(ctx, space.ID, []int64{nodes[0].ID, nodes[2].ID})
		require.NoError(t, err)
		assert.Len(t, es, 1)

		es, err = q.EdgesAmong(ctx, space.ID, []int64{nodes[0].ID})
		require.NoError(t, err)
		assert.Empty(t, es)
	})

	t.Run("id lists beyond the sqlite variable limit", func(t *testing.T) {
		many := make([]int64, 0, 40000)
		for i := range 40000 {
			many = append(many, int64(1000000+i))
		}
		many = append(many, nodes[0].ID, nodes[2].ID)

		es, err := q.EdgesAmong(ctx, space.ID, many)
		require.NoError(t, err)
		assert.Len(t, es, 1)

		ns, err := q.NodesByIDs(ctx, space.ID, many)
		require.NoError(t, err)
		assert.Len(t, ns, 2)
	})
}

func TestGraphStore_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "restore")
	space, nodes := seedSpace(t, gs, "Snap", "A", "B", "C")

	edge := &store.Edge{SpaceID: space.ID, SourceID: nodes[0].ID, TargetID: nodes[1].ID, RelationLabel: "links"}
	require.NoError(t, gs.Edges().CreateEdge(ctx, edge, nil))
	require.NoError(t, gs.Properties().UpsertNodeProperties(ctx, nodes[0].ID, []*store.Property{
		{StatementID: "s1", PropertyID: "P31", ValueID: "Q5"},
	}))

	contents, err := gs.Snapshots().LoadSpace(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, contents.Nodes, 3)
	require.Len(t, contents.Edges, 1)
	require.Len(t, contents.NodeProperties[nodes[0].ID], 1)

	// Mutate the live graph.
	_, err = gs.Nodes().DeleteNode(ctx, nodes[1].ID)
	require.NoError(t, err)
	require.NoError(t, gs.Nodes().CreateNode(ctx, &store.Node{SpaceID: space.ID, Label: "D"}, nil))

	require.NoError(t, gs.Snapshots().RestoreSpace(ctx, space.ID, contents))

	restored, err := gs.Snapshots().LoadSpace(ctx, space.ID)
	require.NoError(t, err)
	var ids []int64
	for _, n := range restored.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []int64{nodes[0].ID, nodes[1].ID, nodes[2].ID}, ids)
	require.Len(t, restored.Edges, 1)
	assert.Equal(t, edge.ID, restored.Edges[0].ID)
	require.Len(t, restored.NodeProperties[nodes[0].ID], 1)
	assert.Equal(t, "Q5", restored.NodeProperties[nodes[0].ID][0].ValueID)
}

func TestGraphStore_SnapshotRows(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "snapshots")
	space, _ := seedSpace(t, gs, "Snap")

	snap := &store.Snapshot{SpaceID: space.ID, CreatedBy: "ada", Payload: []byte(`{"nodes":[],"edges":[]}`)}
	require.NoError(t, gs.Snapshots().CreateSnapshot(ctx, snap))

	got, err := gs.Snapshots().GetSnapshot(ctx, snap.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(got.Payload))

	list, err := gs.Snapshots().ListSnapshots(ctx, space.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = gs.Snapshots().GetSnapshot(ctx, 404)
	assert.True(t, sgerr.IsNotFound(err))

	err = gs.Snapshots().CreateSnapshot(ctx, &store.Snapshot{SpaceID: space.ID})
	assert.True(t, sgerr.IsInvalidInput(err))
}

func TestGraphStore_Repairs(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "repairs")

	r := &store.ProjectionRepair{Operation: store.RepairUpsert, Entity: store.RepairNode, EntityID: 3, SpaceID: 1, Reason: "connection refused"}
	require.NoError(t, gs.Repairs().RecordRepair(ctx, r))
	assert.NotEmpty(t, r.ID)

	pending, err := gs.Repairs().PendingRepairs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, store.RepairNode, pending[0].Entity)
	assert.Equal(t, int64(3), pending[0].EntityID)

	require.NoError(t, gs.Repairs().ResolveRepair(ctx, r.ID))
	pending, err = gs.Repairs().PendingRepairs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.True(t, sgerr.IsConflict(gs.Repairs().ResolveRepair(ctx, r.ID)))

	err = gs.Repairs().RecordRepair(ctx, &store.ProjectionRepair{Operation: "merge", Entity: store.RepairNode})
	assert.True(t, sgerr.IsInvalidInput(err))
}

func TestGraphStore_Counts(t *testing.T) {
	ctx := context.Background()
	gs := openGraphStore(t, "counts")
	space, nodes := seedSpace(t, gs, "Count", "A", "B", "C")
	seedSpace(t, gs, "Empty")

	require.NoError(t, gs.Edges().CreateEdge(ctx, &store.Edge{SpaceID: space.ID, SourceID: nodes[0].ID, TargetID: nodes[1].ID}, nil))
	require.NoError(t, gs.Edges().CreateEdge(ctx, &store.Edge{SpaceID: space.ID, SourceID: nodes[1].ID, TargetID: nodes[2].ID}, nil))

	nodes[2].Archived = true
	require.NoError(t, gs.Nodes().UpdateNode(ctx, nodes[2]))

	c, err := gs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{Spaces: 2, Nodes: 2, Edges: 1}, c)
}

func TestNewGraphStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t, "reopen")

	gs, err := sqlite.NewGraphStore(path)
	require.NoError(t, err)
	space := &store.Space{Title: "Physics"}
	require.NoError(t, gs.Spaces().CreateSpace(ctx, space))
	node := &store.Node{SpaceID: space.ID, Label: "Niels Bohr", Description: "Danish physicist"}
	require.NoError(t, gs.Nodes().CreateNode(ctx, node, nil))
	require.NoError(t, gs.Close())

	reopened, err := sqlite.NewGraphStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Nodes().GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Danish physicist", got.Description)
}
