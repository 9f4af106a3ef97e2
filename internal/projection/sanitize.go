// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package projection

import (
	"strings"

	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// DefaultRelType replaces relation labels that sanitise to nothing.
const DefaultRelType = "RELATED_TO"

// reservedKeys are node attributes owned by the projection itself.
var reservedKeys = map[string]bool{
	"pg_id":              true,
	"space_id":           true,
	"label":              true,
	"description":        true,
	"external_entity_id": true,
}

// Sanitize keeps ASCII letters, digits and underscores and strips
// everything else.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// RelType returns the relationship type for a relation label.
func RelType(relationLabel string) string {
	if t := Sanitize(relationLabel); t != "" {
		return t
	}
	return DefaultRelType
}

// Quote wraps an identifier in backticks, doubling embedded backticks.
func Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// AttributeKey returns the node attribute key for a property label, or ""
// when the label has no usable characters.
func AttributeKey(propertyLabel string) string {
	key := Sanitize(propertyLabel)
	if key == "" {
		return ""
	}
	if reservedKeys[key] {
		return "prop_" + key
	}
	return key
}

// NodeAttributes flattens properties into node attributes keyed by
// AttributeKey. A key seen more than once maps to the list of its values in
// property order.
func NodeAttributes(props []*store.Property) map[string]any {
	values := make(map[string][]string)
	var order []string
	for _, p := range props {
		key := AttributeKey(p.PropertyLabel)
		if key == "" || p.ValueText == "" {
			continue
		}
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = append(values[key], p.ValueText)
	}

	attrs := make(map[string]any, len(order))
	for _, key := range order {
		if vs := values[key]; len(vs) == 1 {
			attrs[key] = vs[0]
		} else {
			attrs[key] = vs
		}
	}
	return attrs
}
