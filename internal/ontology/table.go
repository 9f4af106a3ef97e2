// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package ontology classifies nodes into coarse instance-type groups from
// their P31 (instance of) claims using a priority-ranked table.
package ontology

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Group is one bucket of the classification table.
type Group struct {
	ID       string   `yaml:"id"`
	Label    string   `yaml:"label,omitempty"`
	Priority int      `yaml:"priority"`
	Types    []string `yaml:"types"`
}

// Table is an immutable classification table with a reverse index from
// type id to group.
type Table struct {
	groups []Group
	index  map[string]int
}

var defaultGroups = []Group{
	{ID: "HUMAN", Priority: 100, Types: []string{"Q5"}},
	{ID: "COUNTRY", Priority: 90, Types: []string{"Q6256", "Q3624078", "Q3024240", "Q7275", "Q1763527"}},
	{ID: "CITY", Priority: 85, Types: []string{"Q515", "Q1637706", "Q1549591", "Q5119", "Q200250", "Q1093829", "Q7930989"}},
	{ID: "ADMINISTRATIVE", Priority: 80, Types: []string{"Q56061", "Q10864048", "Q13220204", "Q15042037", "Q35657", "Q28575", "Q34876"}},
	{ID: "SETTLEMENT", Priority: 75, Types: []string{"Q486972", "Q532", "Q3957", "Q5084", "Q2983893"}},
	{ID: "ORGANIZATION", Priority: 70, Types: []string{"Q43229", "Q4830453", "Q783794", "Q3918", "Q7278", "Q163740", "Q31855"}},
	{ID: "BUILDING", Priority: 65, Types: []string{"Q41176", "Q811979", "Q16970", "Q33506", "Q12518", "Q23413"}},
	{ID: "GEOGRAPHIC_FEATURE", Priority: 60, Types: []string{"Q8502", "Q4022", "Q23397", "Q23442", "Q165", "Q46831", "Q39594"}},
	{ID: "WORK", Priority: 55, Types: []string{"Q7725634", "Q11424", "Q571", "Q482994", "Q7366", "Q838948", "Q47461344", "Q3305213"}},
	{ID: "SPECIES", Priority: 50, Types: []string{"Q16521", "Q7432"}},
}

var defaultTable = mustTable(defaultGroups)

func mustTable(groups []Group) *Table {
	t, err := NewTable(groups)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable returns the canonical table.
func DefaultTable() *Table { return defaultTable }

// NewTable validates groups and builds the reverse index. When a type id is
// listed under several groups the higher priority group wins; on equal
// priority the group listed first wins.
func NewTable(groups []Group) (*Table, error) {
	if len(groups) == 0 {
		return nil, sgerr.New(sgerr.CodeOntologyTableInvalid, "ontology table has no groups")
	}

	t := &Table{
		groups: make([]Group, len(groups)),
		index:  make(map[string]int),
	}
	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		if g.ID == "" {
			return nil, sgerr.Errorf(sgerr.CodeOntologyTableInvalid, "group %d has no id", i)
		}
		if seen[g.ID] {
			return nil, sgerr.Errorf(sgerr.CodeOntologyTableInvalid, "duplicate group id %q", g.ID)
		}
		seen[g.ID] = true

		if g.Label == "" {
			g.Label = GroupLabel(g.ID)
		}
		g.Types = append([]string(nil), g.Types...)
		t.groups[i] = g

		for _, typ := range g.Types {
			if typ == "" {
				return nil, sgerr.Errorf(sgerr.CodeOntologyTableInvalid, "group %q has an empty type id", g.ID)
			}
			if prev, ok := t.index[typ]; ok && t.groups[prev].Priority >= g.Priority {
				continue
			}
			t.index[typ] = i
		}
	}
	return t, nil
}

type tableFile struct {
	Groups []Group `yaml:"groups"`
}

// LoadTable parses a YAML document of the form
//
//	groups:
//	  - id: HUMAN
//	    priority: 100
//	    types: [Q5]
func LoadTable(r io.Reader) (*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeOntologyTableInvalid, "parsing ontology table: %w", err)
	}
	return NewTable(f.Groups)
}

// Groups returns a copy of the table's groups in table order.
func (t *Table) Groups() []Group {
	out := make([]Group, len(t.groups))
	copy(out, t.groups)
	return out
}

// Group returns the group with the given id.
func (t *Table) Group(id string) (Group, bool) {
	for _, g := range t.groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// GroupLabel turns a group id into its display label: underscores become
// spaces and each word is title-cased.
func GroupLabel(id string) string {
	words := strings.Split(strings.ToLower(id), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
