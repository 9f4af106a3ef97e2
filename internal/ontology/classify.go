// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package ontology

import (
	"encoding/json"
	"strconv"

	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// InstanceOf is the Wikidata "instance of" property.
const InstanceOf = "P31"

// Classification is the result of classifying a node.
type Classification struct {
	GroupID       string   `json:"group_id"`
	GroupLabel    string   `json:"group_label"`
	SpecificTypes []string `json:"specific_types"`
}

// Classify returns the highest priority group matched by any of typeIDs, or
// nil when none matches. SpecificTypes holds the non-empty input ids in
// order.
func (t *Table) Classify(typeIDs []string) *Classification {
	best := -1
	var specific []string
	for _, id := range typeIDs {
		if id == "" {
			continue
		}
		specific = append(specific, id)
		gi, ok := t.index[id]
		if !ok {
			continue
		}
		if best < 0 || t.groups[gi].Priority > t.groups[best].Priority ||
			(t.groups[gi].Priority == t.groups[best].Priority && gi < best) {
			best = gi
		}
	}
	if best < 0 {
		return nil
	}
	g := t.groups[best]
	return &Classification{GroupID: g.ID, GroupLabel: g.Label, SpecificTypes: specific}
}

// ClassifyProperties classifies a node from its properties.
func (t *Table) ClassifyProperties(props []*store.Property) *Classification {
	return t.Classify(InstanceOfIDs(props))
}

// InstanceOfIDs collects the value ids of P31 properties in order. A
// property without a value id falls back to the id carried by its raw value.
func InstanceOfIDs(props []*store.Property) []string {
	var ids []string
	for _, p := range props {
		if p.PropertyID != InstanceOf {
			continue
		}
		id := p.ValueID
		if id == "" {
			id = rawValueID(p.RawValue)
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// rawValueID extracts an entity id from legacy raw values: {"id": "Q5"},
// {"value": "Q5"}, {"value": {"id": "Q5"}} or {"value": {"numeric-id": 5}}.
func rawValueID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return idFrom(v, 0)
}

func idFrom(v any, depth int) string {
	m, ok := v.(map[string]any)
	if !ok || depth > 2 {
		return ""
	}
	if id, ok := m["id"].(string); ok && id != "" {
		return id
	}
	switch val := m["value"].(type) {
	case string:
		return val
	case map[string]any:
		return idFrom(val, depth+1)
	}
	if n, ok := m["numeric-id"].(float64); ok && n > 0 {
		return "Q" + strconv.FormatInt(int64(n), 10)
	}
	return ""
}
