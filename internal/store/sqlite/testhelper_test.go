// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and returns cleanup func.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "spacegraph-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// openGraphStore opens a fresh graph store in a temp directory.
func openGraphStore(t *testing.T, name string) *sqlite.GraphStore {
	t.Helper()
	gs, err := sqlite.NewGraphStore(testDBPath(t, name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gs.Close() })
	return gs
}

// seedSpace creates a space with the given node labels and returns the space
// and the created nodes in order.
func seedSpace(t *testing.T, gs *sqlite.GraphStore, title string, labels ...string) (*store.Space, []*store.Node) {
	t.Helper()
	ctx := context.Background()

	space := &store.Space{Title: title, CreatedBy: "tester"}
	require.NoError(t, gs.Spaces().CreateSpace(ctx, space))

	nodes := make([]*store.Node, 0, len(labels))
	for _, label := range labels {
		n := &store.Node{SpaceID: space.ID, Label: label, CreatedBy: "tester"}
		require.NoError(t, gs.Nodes().CreateNode(ctx, n, nil))
		nodes = append(nodes, n)
	}
	return space, nodes
}
