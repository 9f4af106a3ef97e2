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

type spaceStore struct {
	db *sql.DB
}

const spaceColumns = `id, title, description, created_by, created_at, archived`

func (s *spaceStore) CreateSpace(ctx context.Context, space *store.Space) error {
	if err := space.Validate(); err != nil {
		return err
	}
	if space.CreatedAt.IsZero() {
		space.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO spaces (title, description, created_by, created_at, archived) VALUES (?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, space.Title, space.Description, space.CreatedBy, formatTime(space.CreatedAt), boolToInt(space.Archived))
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "inserting space: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "reading space id: %w", err)
	}
	space.ID = id
	return nil
}

func (s *spaceStore) GetSpace(ctx context.Context, id int64) (*store.Space, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+spaceColumns+` FROM spaces WHERE id = ?`, id)
	space, err := scanSpace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sgerr.New(sgerr.CodeStoreSpaceNotFound, "space not found", sgerr.FieldSpaceID(id))
	}
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "getting space %d: %w", id, err)
	}
	return space, nil
}

func (s *spaceStore) ListSpaces(ctx context.Context, opts store.ListOpts) ([]*store.Space, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+spaceColumns+` FROM spaces ORDER BY id LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing spaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var spaces []*store.Space
	for rows.Next() {
		space, err := scanSpace(rows)
		if err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning space: %w", err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating spaces: %w", err)
	}
	return spaces, nil
}

func (s *spaceStore) DeleteSpace(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM spaces WHERE id = ?`, id)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "deleting space %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sgerr.New(sgerr.CodeStoreSpaceNotFound, "space not found", sgerr.FieldSpaceID(id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpace(r rowScanner) (*store.Space, error) {
	var (
		space     store.Space
		createdAt string
		archived  int
	)
	if err := r.Scan(&space.ID, &space.Title, &space.Description, &space.CreatedBy, &createdAt, &archived); err != nil {
		return nil, err
	}
	space.CreatedAt = parseTime(createdAt)
	space.Archived = archived != 0
	return &space, nil
}

// requireSpace returns a not-found error when the space does not exist.
func requireSpace(ctx context.Context, q querier, id int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM spaces WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sgerr.New(sgerr.CodeStoreSpaceNotFound, "space not found", sgerr.FieldSpaceID(id))
	}
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "checking space %d: %w", id, err)
	}
	return nil
}
