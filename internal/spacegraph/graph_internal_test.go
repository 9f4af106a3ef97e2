// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package spacegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjacency_ComponentsOrdering(t *testing.T) {
	g := make(adjacency)
	for _, id := range []int64{9, 1, 2, 5, 6, 7} {
		g.addNode(id)
	}
	g.addEdge(5, 6)
	g.addEdge(1, 2)
	g.addEdge(7, 7)

	assert.Equal(t, [][]int64{{1, 2}, {5, 6}, {7}, {9}}, g.components())
}

func TestAdjacency_BFSPrefersLowIDs(t *testing.T) {
	g := make(adjacency)
	// Two shortest routes from 1 to 4: via 2 and via 3.
	g.addEdge(1, 3)
	g.addEdge(1, 2)
	g.addEdge(2, 4)
	g.addEdge(3, 4)
	assert.Equal(t, []int64{1, 2, 4}, g.bfs(1, 4))
	assert.Nil(t, g.bfs(1, 99))
}
