// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type propertyStore struct {
	db *sql.DB
}

// propertyTable returns the table and owner column for an owner kind.
func propertyTable(kind store.OwnerKind) (table, ownerCol string) {
	if kind == store.OwnerEdge {
		return "edge_properties", "edge_id"
	}
	return "node_properties", "node_id"
}

func selectProperties(kind store.OwnerKind) string {
	table, ownerCol := propertyTable(kind)
	return `SELECT id, ` + ownerCol + `, statement_id, property_id, property_label, raw_value, value_text, value_id, display_text FROM ` + table
}

// upsertProperties writes props for an owner. Properties with a statement id
// replace the existing row for (owner, statement_id); properties without one
// are always inserted.
func upsertProperties(ctx context.Context, q querier, kind store.OwnerKind, ownerID int64, props []*store.Property) error {
	if len(props) == 0 {
		return nil
	}
	table, ownerCol := propertyTable(kind)
	stmt := `INSERT INTO ` + table + ` (id, ` + ownerCol + `, statement_id, property_id, property_label, raw_value, value_text, value_id, display_text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(` + ownerCol + `, statement_id) DO UPDATE SET
	property_id = excluded.property_id,
	property_label = excluded.property_label,
	raw_value = excluded.raw_value,
	value_text = excluded.value_text,
	value_id = excluded.value_id,
	display_text = excluded.display_text`

	for _, p := range props {
		var id any
		if p.ID > 0 {
			id = p.ID
		}
		var raw sql.NullString
		if len(p.RawValue) > 0 {
			raw = sql.NullString{String: string(p.RawValue), Valid: true}
		}
		res, err := q.ExecContext(ctx, stmt, id, ownerID, nullString(p.StatementID), p.PropertyID, p.PropertyLabel,
			raw, p.ValueText, p.ValueID, p.DisplayText)
		if err != nil {
			return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "upserting %s property %s: %w", kind, p.PropertyID, err)
		}
		p.OwnerID = ownerID
		if p.ID <= 0 {
			if newID, err := res.LastInsertId(); err == nil {
				p.ID = newID
			}
		}
	}
	return nil
}

func queryProperties(ctx context.Context, q querier, kind store.OwnerKind, where string, args ...any) ([]*store.Property, error) {
	rows, err := q.QueryContext(ctx, selectProperties(kind)+` `+where, args...)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "querying %s properties: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var props []*store.Property
	for rows.Next() {
		var (
			p         store.Property
			statement sql.NullString
			raw       sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &statement, &p.PropertyID, &p.PropertyLabel, &raw,
			&p.ValueText, &p.ValueID, &p.DisplayText); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning %s property: %w", kind, err)
		}
		p.StatementID = statement.String
		if raw.Valid {
			p.RawValue = json.RawMessage(raw.String)
		}
		props = append(props, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating %s properties: %w", kind, err)
	}
	return props, nil
}

func (s *propertyStore) NodeProperties(ctx context.Context, nodeID int64) ([]*store.Property, error) {
	return queryProperties(ctx, s.db, store.OwnerNode, `WHERE node_id = ? ORDER BY id`, nodeID)
}

func (s *propertyStore) NodePropertiesBySpace(ctx context.Context, spaceID int64, propertyID string) (map[int64][]*store.Property, error) {
	where := `WHERE node_id IN (SELECT id FROM nodes WHERE space_id = ?)`
	args := []any{spaceID}
	if propertyID != "" {
		where += ` AND property_id = ?`
		args = append(args, propertyID)
	}
	props, err := queryProperties(ctx, s.db, store.OwnerNode, where+` ORDER BY node_id, id`, args...)
	if err != nil {
		return nil, err
	}
	return groupByOwner(props), nil
}

func (s *propertyStore) UpsertNodeProperties(ctx context.Context, nodeID int64, props []*store.Property) error {
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for node properties: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`, nodeID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return sgerr.New(sgerr.CodeStoreNodeNotFound, "node not found", sgerr.FieldNodeID(nodeID))
		}
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "checking node %d: %w", nodeID, err)
	}
	if err := upsertProperties(ctx, tx, store.OwnerNode, nodeID, props); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing node properties: %w", err)
	}
	return nil
}

func (s *propertyStore) DeleteNodeProperty(ctx context.Context, nodeID, propertyRowID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM node_properties WHERE id = ? AND node_id = ?`, propertyRowID, nodeID)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "deleting node property %d: %w", propertyRowID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStorePropertyNotFound, "node property not found",
			sgerr.FieldNodeID(nodeID), sgerr.Field("property_row_id", propertyRowID))
	}
	return nil
}

func (s *propertyStore) EdgeProperties(ctx context.Context, edgeID int64) ([]*store.Property, error) {
	return queryProperties(ctx, s.db, store.OwnerEdge, `WHERE edge_id = ? ORDER BY id`, edgeID)
}

func (s *propertyStore) UpsertEdgeProperties(ctx context.Context, edgeID int64, props []*store.Property) error {
	for _, p := range props {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for edge properties: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsertProperties(ctx, tx, store.OwnerEdge, edgeID, props); err != nil {
		if isConstraintViolation(err) {
			return sgerr.Errorf(sgerr.CodeStoreEdgeNotFound, "edge %d: %w", edgeID, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing edge properties: %w", err)
	}
	return nil
}

func groupByOwner(props []*store.Property) map[int64][]*store.Property {
	out := make(map[int64][]*store.Property)
	for _, p := range props {
		out[p.OwnerID] = append(out[p.OwnerID], p)
	}
	return out
}
