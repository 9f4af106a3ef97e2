// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package mirror_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func TestReconciler_MigrateTwoSpaces(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	seedGraph(t, gs, "alpha", 20, 35)
	seedGraph(t, gs, "beta", 17, 23)

	r := mirror.NewReconciler(gs, pgs, nil)
	report, err := r.Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Spaces)
	assert.Equal(t, 37, report.Nodes)
	assert.Equal(t, 58, report.Edges)
	assert.Zero(t, report.Errors)
	assert.Empty(t, report.Discrepancies)

	counts, err := pgs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, projection.Counts{Spaces: 2, Nodes: 37, Edges: 58, InSpace: 37}, counts)

	v, err := r.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.Equal(t, []mirror.EntityCount{
		{Entity: "Space", RS: 2, PGS: 2},
		{Entity: "Node", RS: 37, PGS: 37},
		{Entity: "Edge", RS: 58, PGS: 58},
		{Entity: "IN_SPACE", RS: 37, PGS: 37},
	}, v.Counts)

	t.Run("second run is idempotent", func(t *testing.T) {
		again, err := r.Migrate(ctx, mirror.MigrateOptions{})
		require.NoError(t, err)
		assert.Equal(t, report.Nodes, again.Nodes)
		assert.Equal(t, report.Edges, again.Edges)
		assert.Zero(t, again.Removed)

		after, err := pgs.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, counts, after)
	})
}

func TestReconciler_MigrateConverges(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	space, nodes, _ := seedGraph(t, gs, "alpha", 6, 8)

	r := mirror.NewReconciler(gs, pgs, nil)
	_, err := r.Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)

	// Relational deletes that never reached the projection.
	_, err = gs.Nodes().DeleteNode(ctx, nodes[0].ID)
	require.NoError(t, err)
	require.NoError(t, pgs.UpsertSpace(ctx, &store.Space{ID: 999, Title: "orphan"}))
	require.NoError(t, pgs.UpsertNode(ctx, &store.Node{ID: 9999, SpaceID: 999, Label: "stale"}, nil))

	v, err := r.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, v.OK())

	report, err := r.Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)
	assert.Positive(t, report.Removed)
	assert.Empty(t, report.Discrepancies)

	ids, err := pgs.NodeIDs(ctx, space.ID)
	require.NoError(t, err)
	assert.NotContains(t, ids, nodes[0].ID)
	spaces, err := pgs.SpaceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{space.ID}, spaces)
}

func TestReconciler_MigrateClear(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	seedGraph(t, gs, "alpha", 4, 3)
	require.NoError(t, pgs.UpsertNode(ctx, &store.Node{ID: 500, SpaceID: 77, Label: "junk"}, nil))

	report, err := mirror.NewReconciler(gs, pgs, nil).Migrate(ctx, mirror.MigrateOptions{Clear: true})
	require.NoError(t, err)
	assert.Zero(t, report.Removed)
	assert.Empty(t, report.Discrepancies)

	counts, err := pgs.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, projection.Counts{Spaces: 1, Nodes: 4, Edges: 3, InSpace: 4}, counts)
}

func TestReconciler_ArchivedNodesAreNotProjected(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	_, nodes, _ := seedGraph(t, gs, "alpha", 5, 6)

	nodes[1].Archived = true
	require.NoError(t, gs.Nodes().UpdateNode(ctx, nodes[1]))

	report, err := mirror.NewReconciler(gs, pgs, nil).Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Nodes)
	assert.Empty(t, report.Discrepancies)

	_, ok := pgs.NodeAttrs(nodes[1].ID)
	assert.False(t, ok)
}

func TestReconciler_WriteFailuresAreCountedAndRepairsKept(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	space, _, _ := seedGraph(t, gs, "alpha", 3, 2)

	w := mirror.NewWriter(gs, pgs, nil)
	pgs.SetWriteError(errors.New("bolt: connection refused"))
	_, err := w.CreateNode(ctx, &store.Node{SpaceID: space.ID, Label: "late"}, nil)
	require.NoError(t, err)

	r := mirror.NewReconciler(gs, pgs, nil)
	report, err := r.Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)
	assert.Positive(t, report.Errors)
	assert.Zero(t, report.Resolved)

	pending, err := gs.Repairs().PendingRepairs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	pgs.SetWriteError(nil)
	report, err = r.Migrate(ctx, mirror.MigrateOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Errors)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 4, report.Nodes)

	pending, err = gs.Repairs().PendingRepairs(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconciler_ReconcileSpace(t *testing.T) {
	ctx := context.Background()
	gs, pgs := openStores(t)
	space, nodes, edges := seedGraph(t, gs, "alpha", 4, 4)
	other, _, _ := seedGraph(t, gs, "beta", 2, 1)

	r := mirror.NewReconciler(gs, pgs, nil)
	require.NoError(t, r.ReconcileSpace(ctx, space.ID))

	ids, err := pgs.NodeIDs(ctx, space.ID)
	require.NoError(t, err)
	assert.Len(t, ids, len(nodes))
	eids, err := pgs.EdgeIDs(ctx, space.ID)
	require.NoError(t, err)
	assert.Len(t, eids, len(edges))

	untouched, err := pgs.NodeIDs(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, untouched)

	err = r.ReconcileSpace(ctx, 4242)
	require.Error(t, err)
	assert.True(t, sgerr.IsNotFound(err))
}
