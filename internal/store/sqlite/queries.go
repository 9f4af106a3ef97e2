// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type queryStore struct {
	db *sql.DB
}

// liveEndpoints restricts edges aliased e to those whose endpoints are not
// archived.
const liveEndpoints = `JOIN nodes src ON src.id = e.source_id AND src.archived = 0
JOIN nodes dst ON dst.id = e.target_id AND dst.archived = 0`

// inList matches a column against a JSON array bound as one parameter, so
// id lists of any length stay under SQLite's variable limit.
const inList = ` IN (SELECT value FROM json_each(?))`

func (s *queryStore) NodeIDsWithProperty(ctx context.Context, spaceID int64, propertyIDs []string) ([]int64, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	q := `SELECT DISTINCT p.node_id FROM node_properties p
JOIN nodes n ON n.id = p.node_id
WHERE n.space_id = ? AND n.archived = 0 AND p.property_id` + inList + `
ORDER BY p.node_id`
	list, err := jsonList(propertyIDs)
	if err != nil {
		return nil, err
	}
	return s.ids(ctx, q, spaceID, list)
}

func (s *queryStore) NodeIDsWithValue(ctx context.Context, spaceID int64, values []string) ([]int64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	q := `SELECT DISTINCT p.node_id FROM node_properties p
JOIN nodes n ON n.id = p.node_id
WHERE n.space_id = ? AND n.archived = 0 AND (p.value_text` + inList + ` OR p.value_id` + inList + `)
ORDER BY p.node_id`
	list, err := jsonList(values)
	if err != nil {
		return nil, err
	}
	return s.ids(ctx, q, spaceID, list, list)
}

func (s *queryStore) MatchRule(ctx context.Context, spaceID int64, propertyID, valueID string) (*store.RuleMatch, error) {
	nodeQ := `SELECT DISTINCT p.node_id FROM node_properties p
JOIN nodes n ON n.id = p.node_id
WHERE n.space_id = ? AND n.archived = 0 AND p.property_id = ?`
	edgeQ := `SELECT DISTINCT e.id, e.source_id, e.target_id FROM edge_properties p
JOIN edges e ON e.id = p.edge_id
` + liveEndpoints + `
WHERE e.space_id = ? AND p.property_id = ?`
	args := []any{spaceID, propertyID}
	if valueID != "" {
		nodeQ += ` AND p.value_id = ?`
		edgeQ += ` AND p.value_id = ?`
		args = append(args, valueID)
	}

	nodeIDs, err := s.ids(ctx, nodeQ+` ORDER BY p.node_id`, args...)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, edgeQ+` ORDER BY e.id`, args...)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "matching edge rule %s: %w", propertyID, err)
	}
	defer func() { _ = rows.Close() }()

	match := &store.RuleMatch{NodeIDs: nodeIDs, EdgeEndpoints: make(map[int64][2]int64)}
	for rows.Next() {
		var id, source, target int64
		if err := rows.Scan(&id, &source, &target); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning edge rule match: %w", err)
		}
		match.EdgeIDs = append(match.EdgeIDs, id)
		match.EdgeEndpoints[id] = [2]int64{source, target}
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating edge rule matches: %w", err)
	}
	return match, nil
}

func (s *queryStore) DistinctProperties(ctx context.Context, spaceID int64) ([]store.PropertySummary, error) {
	q := `SELECT property_id, property_label, source FROM (
	SELECT p.property_id, MAX(p.property_label) AS property_label, 'node' AS source
	FROM node_properties p JOIN nodes n ON n.id = p.node_id
	WHERE n.space_id = ? AND n.archived = 0
	GROUP BY p.property_id
	UNION ALL
	SELECT p.property_id, MAX(p.property_label), 'edge'
	FROM edge_properties p JOIN edges e ON e.id = p.edge_id
	` + liveEndpoints + `
	WHERE e.space_id = ?
	GROUP BY p.property_id
) ORDER BY property_id, source DESC`

	rows, err := s.db.QueryContext(ctx, q, spaceID, spaceID)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing properties of space %d: %w", spaceID, err)
	}
	defer func() { _ = rows.Close() }()

	summaries := []store.PropertySummary{}
	for rows.Next() {
		var (
			ps     store.PropertySummary
			source string
		)
		if err := rows.Scan(&ps.PropertyID, &ps.PropertyLabel, &source); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning property summary: %w", err)
		}
		ps.Source = store.PropertySource(source)
		summaries = append(summaries, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating property summaries: %w", err)
	}
	return summaries, nil
}

func (s *queryStore) DistinctPropertyValues(ctx context.Context, spaceID int64, propertyID, query string) ([]store.PropertyValue, error) {
	filter := ""
	args := []any{spaceID, propertyID}
	if query != "" {
		filter = ` AND (LOWER(p.value_text) LIKE ? ESCAPE '\' OR LOWER(p.value_id) LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		args = append(args, pattern, pattern)
	}
	all := append(append([]any{}, args...), args...)

	q := `SELECT p.value_id, p.value_text FROM node_properties p JOIN nodes n ON n.id = p.node_id
WHERE n.space_id = ? AND n.archived = 0 AND p.property_id = ?` + filter + `
UNION
SELECT p.value_id, p.value_text FROM edge_properties p JOIN edges e ON e.id = p.edge_id
` + liveEndpoints + `
WHERE e.space_id = ? AND p.property_id = ?` + filter + `
ORDER BY 2, 1`

	rows, err := s.db.QueryContext(ctx, q, all...)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing values of %s: %w", propertyID, err)
	}
	defer func() { _ = rows.Close() }()

	values := []store.PropertyValue{}
	for rows.Next() {
		var v store.PropertyValue
		if err := rows.Scan(&v.ValueID, &v.ValueText); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning property value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating property values: %w", err)
	}
	return values, nil
}

func (s *queryStore) SearchText(ctx context.Context, spaceID int64, query string) ([]*store.Node, []*store.Edge, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	nodeQ := `SELECT ` + nodeColumns + ` FROM nodes n
WHERE n.space_id = ? AND n.archived = 0
	AND (LOWER(n.label) LIKE ? ESCAPE '\' OR LOWER(n.description) LIKE ? ESCAPE '\')
ORDER BY n.id`
	rows, err := s.db.QueryContext(ctx, nodeQ, spaceID, pattern, pattern)
	if err != nil {
		return nil, nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "searching nodes: %w", err)
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, nil, err
	}

	edgeQ := `SELECT ` + edgeColumns + ` FROM edges e
` + liveEndpoints + `
WHERE e.space_id = ? AND LOWER(e.relation_label) LIKE ? ESCAPE '\'
ORDER BY e.id`
	rows, err = s.db.QueryContext(ctx, edgeQ, spaceID, pattern)
	if err != nil {
		return nil, nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "searching edges: %w", err)
	}
	edges, err := collectEdges(rows)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// NodesByIDs skips archived nodes.
func (s *queryStore) NodesByIDs(ctx context.Context, spaceID int64, ids []int64) ([]*store.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := jsonList(ids)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + nodeColumns + ` FROM nodes n
WHERE n.space_id = ? AND n.archived = 0 AND n.id` + inList + ` ORDER BY n.id`
	rows, err := s.db.QueryContext(ctx, q, spaceID, list)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "loading nodes by id: %w", err)
	}
	return collectNodes(rows)
}

// EdgesByIDs skips edges touching an archived node.
func (s *queryStore) EdgesByIDs(ctx context.Context, spaceID int64, ids []int64) ([]*store.Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	list, err := jsonList(ids)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + edgeColumns + ` FROM edges e
` + liveEndpoints + `
WHERE e.space_id = ? AND e.id` + inList + ` ORDER BY e.id`
	rows, err := s.db.QueryContext(ctx, q, spaceID, list)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "loading edges by id: %w", err)
	}
	return collectEdges(rows)
}

func (s *queryStore) EdgesAmong(ctx context.Context, spaceID int64, nodeIDs []int64) ([]*store.Edge, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	list, err := jsonList(nodeIDs)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + edgeColumns + ` FROM edges e
` + liveEndpoints + `
WHERE e.space_id = ? AND e.source_id` + inList + ` AND e.target_id` + inList + `
ORDER BY e.id`
	rows, err := s.db.QueryContext(ctx, q, spaceID, list, list)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "loading edges among nodes: %w", err)
	}
	return collectEdges(rows)
}

func (s *queryStore) ids(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "querying node ids: %w", err)
	}
	ids, err := scanInt64s(rows)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning node ids: %w", err)
	}
	return ids, nil
}
