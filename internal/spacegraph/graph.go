// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package spacegraph

import (
	"cmp"
	"slices"
)

// adjacency is an undirected simple graph over node ids.
type adjacency map[int64]map[int64]struct{}

func (a adjacency) addNode(id int64) {
	if _, ok := a[id]; !ok {
		a[id] = make(map[int64]struct{})
	}
}

// addEdge links u and v. Self loops and parallel edges collapse.
func (a adjacency) addEdge(u, v int64) {
	if u == v {
		return
	}
	a.addNode(u)
	a.addNode(v)
	a[u][v] = struct{}{}
	a[v][u] = struct{}{}
}

func (a adjacency) neighbours(id int64) []int64 {
	out := make([]int64, 0, len(a[id]))
	for n := range a[id] {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// bfs returns the shortest path from src to dst, or nil when unreachable.
// Neighbours are visited in ascending id order so the path is stable.
func (a adjacency) bfs(src, dst int64) []int64 {
	if src == dst {
		return []int64{src}
	}
	prev := map[int64]int64{src: src}
	queue := []int64{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.neighbours(cur) {
			if _, seen := prev[n]; seen {
				continue
			}
			prev[n] = cur
			if n == dst {
				return walkBack(prev, src, dst)
			}
			queue = append(queue, n)
		}
	}
	return nil
}

func walkBack(prev map[int64]int64, src, dst int64) []int64 {
	path := []int64{dst}
	for cur := dst; cur != src; {
		cur = prev[cur]
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// unionFind uses path compression and union by rank.
type unionFind struct {
	parent map[int64]int64
	rank   map[int64]int
}

func newUnionFind(ids []int64) *unionFind {
	uf := &unionFind{
		parent: make(map[int64]int64, len(ids)),
		rank:   make(map[int64]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id int64) int64 {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

func (uf *unionFind) union(a, b int64) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// components returns member-sorted components, largest first, ties broken
// by smallest member id.
func (a adjacency) components() [][]int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	uf := newUnionFind(ids)
	for u, ns := range a {
		for v := range ns {
			uf.union(u, v)
		}
	}

	groups := make(map[int64][]int64)
	for _, id := range ids {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}
	out := make([][]int64, 0, len(groups))
	for _, members := range groups {
		slices.Sort(members)
		out = append(out, members)
	}
	slices.SortFunc(out, func(x, y []int64) int {
		if c := cmp.Compare(len(y), len(x)); c != 0 {
			return c
		}
		return cmp.Compare(x[0], y[0])
	})
	return out
}
