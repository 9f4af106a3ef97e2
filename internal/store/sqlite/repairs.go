// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type repairStore struct {
	db *sql.DB
}

func (s *repairStore) RecordRepair(ctx context.Context, repair *store.ProjectionRepair) error {
	if !repair.Operation.Valid() {
		return sgerr.Errorf(sgerr.CodeStoreInvalidInput, "repair: unknown operation %q", repair.Operation)
	}
	if !repair.Entity.Valid() {
		return sgerr.Errorf(sgerr.CodeStoreInvalidInput, "repair: unknown entity %q", repair.Entity)
	}
	if repair.ID == "" {
		repair.ID = uuid.NewString()
	}
	if repair.CreatedAt.IsZero() {
		repair.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO projection_repairs (id, operation, entity, entity_id, space_id, reason, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, repair.ID, string(repair.Operation), string(repair.Entity), repair.EntityID,
		repair.SpaceID, repair.Reason, formatTime(repair.CreatedAt))
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "recording repair for %s %d: %w", repair.Entity, repair.EntityID, err)
	}
	return nil
}

func (s *repairStore) PendingRepairs(ctx context.Context, limit int) ([]*store.ProjectionRepair, error) {
	if limit <= 0 {
		limit = -1
	}
	const q = `SELECT id, operation, entity, entity_id, space_id, reason, created_at FROM projection_repairs
WHERE resolved_at IS NULL ORDER BY created_at, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing pending repairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repairs []*store.ProjectionRepair
	for rows.Next() {
		var (
			r         store.ProjectionRepair
			op        string
			entity    string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &op, &entity, &r.EntityID, &r.SpaceID, &r.Reason, &createdAt); err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning repair: %w", err)
		}
		r.Operation = store.RepairOp(op)
		r.Entity = store.RepairEntity(entity)
		r.CreatedAt = parseTime(createdAt)
		repairs = append(repairs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating repairs: %w", err)
	}
	return repairs, nil
}

func (s *repairStore) ResolveRepair(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projection_repairs SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		formatTime(time.Now().UTC()), id)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "resolving repair %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStoreConflict, "repair not pending", sgerr.Field("repair_id", id))
	}
	return nil
}
