// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package ontology

import (
	"cmp"
	"slices"

	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// GroupCount is one row of a space's instance-type summary.
type GroupCount struct {
	GroupID    string `json:"group_id"`
	GroupLabel string `json:"group_label"`
	Count      int    `json:"count"`
}

// Summary aggregates classifications across a space.
type Summary struct {
	InstanceGroups []GroupCount       `json:"instance_groups"`
	NodesByGroup   map[string][]int64 `json:"nodes_by_group"`
}

// Summarize classifies every node in propsByNode. Unclassified nodes are
// left out. Groups are sorted by count descending, then by priority.
func (t *Table) Summarize(nodeIDs []int64, propsByNode map[int64][]*store.Property) *Summary {
	s := &Summary{
		InstanceGroups: []GroupCount{},
		NodesByGroup:   make(map[string][]int64),
	}
	for _, id := range nodeIDs {
		c := t.ClassifyProperties(propsByNode[id])
		if c == nil {
			continue
		}
		s.NodesByGroup[c.GroupID] = append(s.NodesByGroup[c.GroupID], id)
	}

	for _, g := range t.groups {
		ids, ok := s.NodesByGroup[g.ID]
		if !ok {
			continue
		}
		slices.Sort(ids)
		s.InstanceGroups = append(s.InstanceGroups, GroupCount{GroupID: g.ID, GroupLabel: g.Label, Count: len(ids)})
	}

	priority := make(map[string]int, len(t.groups))
	for _, g := range t.groups {
		priority[g.ID] = g.Priority
	}
	slices.SortStableFunc(s.InstanceGroups, func(a, b GroupCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(priority[b.GroupID], priority[a.GroupID])
	})
	return s
}
