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

type edgeStore struct {
	db *sql.DB
}

const edgeColumns = `e.id, e.space_id, e.source_id, e.target_id, e.relation_label, e.external_property_id, e.created_at`

func (s *edgeStore) CreateEdge(ctx context.Context, edge *store.Edge, props []*store.Property) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for edge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireEndpoints(ctx, tx, edge); err != nil {
		return err
	}
	if err := insertEdge(ctx, tx, edge); err != nil {
		return err
	}
	if err := upsertProperties(ctx, tx, store.OwnerEdge, edge.ID, props); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing edge: %w", err)
	}
	return nil
}

// requireEndpoints checks that both endpoints exist and belong to the edge's space.
func requireEndpoints(ctx context.Context, q querier, edge *store.Edge) error {
	for _, nodeID := range []int64{edge.SourceID, edge.TargetID} {
		var spaceID int64
		err := q.QueryRowContext(ctx, `SELECT space_id FROM nodes WHERE id = ?`, nodeID).Scan(&spaceID)
		if errors.Is(err, sql.ErrNoRows) {
			return sgerr.New(sgerr.CodeStoreNodeNotFound, "edge endpoint not found", sgerr.FieldNodeID(nodeID))
		}
		if err != nil {
			return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "checking edge endpoint %d: %w", nodeID, err)
		}
		if spaceID != edge.SpaceID {
			return sgerr.New(sgerr.CodeStoreConflict, "edge endpoint belongs to another space",
				sgerr.FieldNodeID(nodeID), sgerr.FieldSpaceID(edge.SpaceID))
		}
	}
	return nil
}

// insertEdge inserts edge, keeping edge.ID when it is already set.
func insertEdge(ctx context.Context, q querier, edge *store.Edge) error {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	var id any
	if edge.ID > 0 {
		id = edge.ID
	}
	const stmt = `INSERT INTO edges (id, space_id, source_id, target_id, relation_label, external_property_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, stmt, id, edge.SpaceID, edge.SourceID, edge.TargetID, edge.RelationLabel,
		edge.ExternalPropertyID, formatTime(edge.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return sgerr.Errorf(sgerr.CodeStoreConflict, "inserting edge: %w", err)
		}
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "inserting edge: %w", err)
	}
	if edge.ID <= 0 {
		newID, err := res.LastInsertId()
		if err != nil {
			return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "reading edge id: %w", err)
		}
		edge.ID = newID
	}
	return nil
}

func (s *edgeStore) GetEdge(ctx context.Context, id int64) (*store.Edge, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges e WHERE e.id = ?`, id)
	edge, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sgerr.New(sgerr.CodeStoreEdgeNotFound, "edge not found", sgerr.FieldEdgeID(id))
	}
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "getting edge %d: %w", id, err)
	}
	return edge, nil
}

func (s *edgeStore) UpdateEdge(ctx context.Context, edge *store.Edge) error {
	if err := edge.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for edge update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireEndpoints(ctx, tx, edge); err != nil {
		return err
	}

	const q = `UPDATE edges SET source_id = ?, target_id = ?, relation_label = ?, external_property_id = ?
WHERE id = ? AND space_id = ?`
	res, err := tx.ExecContext(ctx, q, edge.SourceID, edge.TargetID, edge.RelationLabel, edge.ExternalPropertyID, edge.ID, edge.SpaceID)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "updating edge %d: %w", edge.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStoreEdgeNotFound, "edge not found", sgerr.FieldEdgeID(edge.ID))
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing edge update: %w", err)
	}
	return nil
}

func (s *edgeStore) DeleteEdge(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "deleting edge %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStoreEdgeNotFound, "edge not found", sgerr.FieldEdgeID(id))
	}
	return nil
}

func (s *edgeStore) ListEdges(ctx context.Context, spaceID int64) ([]*store.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges e WHERE e.space_id = ? ORDER BY e.id`, spaceID)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing edges of space %d: %w", spaceID, err)
	}
	return collectEdges(rows)
}

func collectEdges(rows *sql.Rows) ([]*store.Edge, error) {
	defer func() { _ = rows.Close() }()

	var edges []*store.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating edges: %w", err)
	}
	return edges, nil
}

func scanEdge(r rowScanner) (*store.Edge, error) {
	var (
		edge      store.Edge
		createdAt string
	)
	if err := r.Scan(&edge.ID, &edge.SpaceID, &edge.SourceID, &edge.TargetID, &edge.RelationLabel,
		&edge.ExternalPropertyID, &createdAt); err != nil {
		return nil, err
	}
	edge.CreatedAt = parseTime(createdAt)
	return &edge, nil
}
