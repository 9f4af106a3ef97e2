// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package neo4j

import (
	"context"
	"fmt"
	"maps"

	bolt "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// clearBatch bounds the number of nodes removed per statement by Clear.
const clearBatch = 10000

func (s *Store) UpsertSpace(ctx context.Context, space *store.Space) error {
	return s.write(ctx, "upserting space", map[string]any{
		"id":    space.ID,
		"title": space.Title,
	}, `MERGE (s:Space {pg_id: $id}) SET s.title = $title`)
}

func (s *Store) DeleteSpace(ctx context.Context, spaceID int64) error {
	return s.write(ctx, "deleting space", map[string]any{"id": spaceID},
		`MATCH (n:Node {space_id: $id}) DETACH DELETE n`,
		`MATCH (s:Space {pg_id: $id}) DETACH DELETE s`,
	)
}

func (s *Store) UpsertNode(ctx context.Context, node *store.Node, props []*store.Property) error {
	if node.Archived {
		return s.DeleteNode(ctx, node.ID)
	}

	attrs := projection.NodeAttributes(props)
	values := make(map[string]any, len(attrs)+5)
	maps.Copy(values, attrs)
	values["pg_id"] = node.ID
	values["space_id"] = node.SpaceID
	values["label"] = node.Label
	values["description"] = node.Description
	values["external_entity_id"] = node.ExternalEntityID

	const q = `MERGE (s:Space {pg_id: $space_id})
MERGE (n:Node {pg_id: $id})
SET n = $props
WITH n, s
OPTIONAL MATCH (n)-[old:IN_SPACE]->(other:Space)
WHERE other.pg_id <> $space_id
DELETE old
WITH DISTINCT n, s
MERGE (n)-[:IN_SPACE]->(s)`

	return s.write(ctx, "upserting node", map[string]any{
		"id":       node.ID,
		"space_id": node.SpaceID,
		"props":    values,
	}, q)
}

func (s *Store) DeleteNode(ctx context.Context, nodeID int64) error {
	return s.write(ctx, "deleting node", map[string]any{"id": nodeID},
		`MATCH (n:Node {pg_id: $id}) DETACH DELETE n`)
}

func (s *Store) UpsertEdge(ctx context.Context, edge *store.Edge) error {
	relType := projection.RelType(edge.RelationLabel)
	params := map[string]any{
		"id":                   edge.ID,
		"source":               edge.SourceID,
		"target":               edge.TargetID,
		"type":                 relType,
		"label":                edge.RelationLabel,
		"space_id":             edge.SpaceID,
		"external_property_id": edge.ExternalPropertyID,
	}

	// A relationship cannot change type or endpoints, so a stale one is
	// replaced.
	const dropStale = `MATCH ()-[old {pg_id: $id}]->()
WHERE type(old) <> 'IN_SPACE'
	AND (type(old) <> $type OR startNode(old).pg_id <> $source OR endNode(old).pg_id <> $target)
DELETE old`
	merge := fmt.Sprintf(`MATCH (a:Node {pg_id: $source}), (b:Node {pg_id: $target})
MERGE (a)-[r:%s {pg_id: $id}]->(b)
SET r.label = $label, r.space_id = $space_id, r.external_property_id = $external_property_id`, projection.Quote(relType))

	return s.write(ctx, "upserting edge", params, dropStale, merge)
}

func (s *Store) DeleteEdge(ctx context.Context, edgeID int64) error {
	return s.write(ctx, "deleting edge", map[string]any{"id": edgeID},
		`MATCH ()-[r {pg_id: $id}]->() WHERE type(r) <> 'IN_SPACE' DELETE r`)
}

func (s *Store) Clear(ctx context.Context) error {
	const q = `MATCH (n) WHERE n:Node OR n:Space
WITH n LIMIT $batch
DETACH DELETE n
RETURN count(*) AS deleted`

	for {
		session, err := s.session(ctx, bolt.AccessModeWrite)
		if err != nil {
			return err
		}
		result, err := session.Run(ctx, q, map[string]any{"batch": clearBatch})
		var deleted int64
		if err == nil {
			var record *bolt.Record
			record, err = result.Single(ctx)
			if err == nil {
				deleted = getInt64(record, "deleted")
			}
		}
		_ = session.Close(ctx)
		if err != nil {
			return classify(err, sgerr.CodeProjectionWriteFailure, "clearing graph store")
		}
		if deleted == 0 {
			return nil
		}
		s.logger.Debug("cleared graph batch", "deleted", deleted)
	}
}

func (s *Store) Counts(ctx context.Context) (projection.Counts, error) {
	var c projection.Counts
	queries := []struct {
		q   string
		dst *int
	}{
		{`MATCH (s:Space) RETURN count(s) AS n`, &c.Spaces},
		{`MATCH (n:Node) RETURN count(n) AS n`, &c.Nodes},
		{`MATCH (:Node)-[r]->(:Node) WHERE type(r) <> 'IN_SPACE' RETURN count(r) AS n`, &c.Edges},
		{`MATCH (:Node)-[r:IN_SPACE]->(:Space) RETURN count(r) AS n`, &c.InSpace},
	}
	for _, cq := range queries {
		err := s.read(ctx, "counting projection", cq.q, nil, func(r *bolt.Record) error {
			*cq.dst = int(getInt64(r, "n"))
			return nil
		})
		if err != nil {
			return projection.Counts{}, err
		}
	}
	return c, nil
}

func (s *Store) ids(ctx context.Context, what, q string, params map[string]any) ([]int64, error) {
	var ids []int64
	err := s.read(ctx, what, q, params, func(r *bolt.Record) error {
		ids = append(ids, getInt64(r, "id"))
		return nil
	})
	return ids, err
}

func (s *Store) SpaceIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, "listing projected spaces", `MATCH (s:Space) RETURN s.pg_id AS id ORDER BY id`, nil)
}

func (s *Store) NodeIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	return s.ids(ctx, "listing projected nodes",
		`MATCH (n:Node {space_id: $space}) RETURN n.pg_id AS id ORDER BY id`,
		map[string]any{"space": spaceID})
}

func (s *Store) EdgeIDs(ctx context.Context, spaceID int64) ([]int64, error) {
	return s.ids(ctx, "listing projected edges",
		`MATCH (:Node {space_id: $space})-[r]->(:Node) WHERE type(r) <> 'IN_SPACE' RETURN r.pg_id AS id ORDER BY id`,
		map[string]any{"space": spaceID})
}

func (s *Store) ExistingNodes(ctx context.Context, spaceID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.ids(ctx, "resolving seed nodes",
		`MATCH (n:Node {space_id: $space}) WHERE n.pg_id IN $ids RETURN n.pg_id AS id ORDER BY id`,
		map[string]any{"space": spaceID, "ids": ids})
}

func (s *Store) FindNodesByText(ctx context.Context, spaceID int64, texts []string) ([]int64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.ids(ctx, "matching node text",
		`MATCH (n:Node {space_id: $space})
WHERE any(t IN $texts WHERE n.label CONTAINS t OR coalesce(n.description, '') CONTAINS t)
RETURN n.pg_id AS id ORDER BY id`,
		map[string]any{"space": spaceID, "texts": texts})
}

func (s *Store) FindEdges(ctx context.Context, spaceID int64, selectors []string) ([]projection.EdgeRef, error) {
	if len(selectors) == 0 {
		return nil, nil
	}
	const q = `MATCH (a:Node {space_id: $space})-[r]->(b:Node)
WHERE type(r) <> 'IN_SPACE'
	AND any(sel IN $selectors WHERE type(r) CONTAINS sel OR coalesce(r.label, '') CONTAINS sel)
RETURN r.pg_id AS id, a.pg_id AS source, b.pg_id AS target ORDER BY id`

	var refs []projection.EdgeRef
	err := s.read(ctx, "matching edge selectors", q, map[string]any{"space": spaceID, "selectors": selectors}, func(r *bolt.Record) error {
		refs = append(refs, projection.EdgeRef{
			ID:     getInt64(r, "id"),
			Source: getInt64(r, "source"),
			Target: getInt64(r, "target"),
		})
		return nil
	})
	return refs, err
}

// expandQuery builds the bounded path query. Variable-length bounds cannot
// be parameters, so depth is formatted into the statement.
func expandQuery(depth int) string {
	return fmt.Sprintf(`MATCH p = (s:Node {space_id: $space})-[rels*0..%d]-(m:Node {space_id: $space})
WHERE s.pg_id IN $seeds
	AND none(r IN rels WHERE type(r) = 'IN_SPACE')
	AND all(i IN range(0, size(nodes(p)) - 2) WHERE NOT nodes(p)[i] IN nodes(p)[i+1..])
RETURN [n IN nodes(p) | {id: n.pg_id, label: n.label, description: n.description}] AS ns,
	[r IN relationships(p) | {id: r.pg_id, source: startNode(r).pg_id, target: endNode(r).pg_id, type: type(r), label: r.label}] AS rs
LIMIT $limit`, depth)
}

func (s *Store) Expand(ctx context.Context, spaceID int64, seeds []int64, depth, maxPaths int) (*projection.Subgraph, error) {
	if maxPaths <= 0 {
		maxPaths = projection.DefaultMaxPaths
	}
	if depth < 0 {
		depth = 0
	}

	nodes := make(map[int64]projection.Node)
	edges := make(map[int64]projection.Edge)
	paths := 0
	partial := false

	params := map[string]any{"space": spaceID, "seeds": seeds, "limit": maxPaths + 1}
	err := s.read(ctx, "expanding subgraph", expandQuery(depth), params, func(r *bolt.Record) error {
		if paths >= maxPaths {
			partial = true
			return nil
		}
		paths++

		ns, _ := r.Get("ns")
		for _, raw := range asList(ns) {
			m := asMap(raw)
			n := projection.Node{ID: toInt64(m["id"]), Label: toString(m["label"]), Description: toString(m["description"])}
			nodes[n.ID] = n
		}
		rs, _ := r.Get("rs")
		for _, raw := range asList(rs) {
			m := asMap(raw)
			e := projection.Edge{
				ID:     toInt64(m["id"]),
				Source: toInt64(m["source"]),
				Target: toInt64(m["target"]),
				Type:   toString(m["type"]),
				Label:  toString(m["label"]),
			}
			edges[e.ID] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return projection.Collect(nodes, edges, partial), nil
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
