// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type nodeStore struct {
	db *sql.DB
}

const nodeColumns = `n.id, n.space_id, n.label, n.description, n.external_entity_id, n.created_by, n.created_at, n.archived`

func (s *nodeStore) CreateNode(ctx context.Context, node *store.Node, props []*store.Property) error {
	if err := node.Validate(); err != nil {
		return err
	}
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for node: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireSpace(ctx, tx, node.SpaceID); err != nil {
		return err
	}
	if err := insertNode(ctx, tx, node); err != nil {
		return err
	}
	if err := upsertProperties(ctx, tx, store.OwnerNode, node.ID, props); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing node: %w", err)
	}
	return nil
}

// insertNode inserts node, keeping node.ID when it is already set.
func insertNode(ctx context.Context, q querier, node *store.Node) error {
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}

	var id any
	if node.ID > 0 {
		id = node.ID
	}
	const stmt = `INSERT INTO nodes (id, space_id, label, description, external_entity_id, created_by, created_at, archived)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, id, node.SpaceID, node.Label, node.Description, node.ExternalEntityID,
		node.CreatedBy, formatTime(node.CreatedAt), boolToInt(node.Archived))
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "inserting node: %w", err)
	}
	if node.ID <= 0 {
		newID, err := res.LastInsertId()
		if err != nil {
			return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "reading node id: %w", err)
		}
		node.ID = newID
	}
	return nil
}

func (s *nodeStore) GetNode(ctx context.Context, id int64) (*store.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes n WHERE n.id = ?`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sgerr.New(sgerr.CodeStoreNodeNotFound, "node not found", sgerr.FieldNodeID(id))
	}
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "getting node %d: %w", id, err)
	}
	return node, nil
}

func (s *nodeStore) UpdateNode(ctx context.Context, node *store.Node) error {
	if err := node.Validate(); err != nil {
		return err
	}

	const q = `UPDATE nodes SET label = ?, description = ?, external_entity_id = ?, archived = ?
WHERE id = ? AND space_id = ?`
	res, err := s.db.ExecContext(ctx, q, node.Label, node.Description, node.ExternalEntityID, boolToInt(node.Archived), node.ID, node.SpaceID)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "updating node %d: %w", node.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStoreNodeNotFound, "node not found", sgerr.FieldNodeID(node.ID))
	}
	return nil
}

func (s *nodeStore) DeleteNode(ctx context.Context, id int64) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for node delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM edges WHERE source_id = ? OR target_id = ? ORDER BY id`, id, id)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing edges of node %d: %w", id, err)
	}
	edgeIDs, err := scanInt64s(rows)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning edges of node %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "deleting node %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, sgerr.New(sgerr.CodeStoreNodeNotFound, "node not found", sgerr.FieldNodeID(id))
	}

	if err := tx.Commit(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing node delete: %w", err)
	}
	return edgeIDs, nil
}

func (s *nodeStore) ListNodes(ctx context.Context, spaceID int64, opts store.NodeListOpts) ([]*store.Node, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT ` + nodeColumns + ` FROM nodes n WHERE n.space_id = ?`
	if !opts.IncludeArchived {
		q += ` AND n.archived = 0`
	}
	q += ` ORDER BY n.id LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, q, spaceID, limit, opts.Offset)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing nodes of space %d: %w", spaceID, err)
	}
	return collectNodes(rows)
}

func (s *nodeStore) ListNodesWithoutProperty(ctx context.Context, propertyID string, limit int) ([]*store.Node, error) {
	if limit <= 0 {
		limit = -1
	}
	const q = `SELECT ` + nodeColumns + ` FROM nodes n
WHERE n.archived = 0 AND n.external_entity_id != ''
	AND NOT EXISTS (SELECT 1 FROM node_properties p WHERE p.node_id = n.id AND p.property_id = ?)
ORDER BY n.id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, propertyID, limit)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing nodes without %s: %w", propertyID, err)
	}
	return collectNodes(rows)
}

func collectNodes(rows *sql.Rows) ([]*store.Node, error) {
	defer func() { _ = rows.Close() }()

	var nodes []*store.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating nodes: %w", err)
	}
	return nodes, nil
}

func scanNode(r rowScanner) (*store.Node, error) {
	var (
		node      store.Node
		createdAt string
		archived  int
	)
	if err := r.Scan(&node.ID, &node.SpaceID, &node.Label, &node.Description, &node.ExternalEntityID,
		&node.CreatedBy, &createdAt, &archived); err != nil {
		return nil, err
	}
	node.CreatedAt = parseTime(createdAt)
	node.Archived = archived != 0
	return &node, nil
}
