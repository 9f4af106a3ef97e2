// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

type snapshotStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func (s *snapshotStore) CreateSnapshot(ctx context.Context, snap *store.Snapshot) error {
	if snap.SpaceID <= 0 {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "snapshot: SpaceID is required")
	}
	if len(snap.Payload) == 0 {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "snapshot: Payload is required")
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO snapshots (space_id, created_by, created_at, payload) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q, snap.SpaceID, snap.CreatedBy, formatTime(snap.CreatedAt), snap.Payload)
	if err != nil {
		if isConstraintViolation(err) {
			return sgerr.New(sgerr.CodeStoreSpaceNotFound, "space not found", sgerr.FieldSpaceID(snap.SpaceID))
		}
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "inserting snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "reading snapshot id: %w", err)
	}
	snap.ID = id
	return nil
}

func (s *snapshotStore) GetSnapshot(ctx context.Context, id int64) (*store.Snapshot, error) {
	const q = `SELECT id, space_id, created_by, created_at, payload FROM snapshots WHERE id = ?`
	snap, err := scanSnapshot(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sgerr.New(sgerr.CodeStoreSnapshotNotFound, "snapshot not found", sgerr.Field("snapshot_id", id))
	}
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "getting snapshot %d: %w", id, err)
	}
	return snap, nil
}

func (s *snapshotStore) ListSnapshots(ctx context.Context, spaceID int64) ([]*store.Snapshot, error) {
	const q = `SELECT id, space_id, created_by, created_at, payload FROM snapshots WHERE space_id = ? ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, spaceID)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "listing snapshots of space %d: %w", spaceID, err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []*store.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "scanning snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "iterating snapshots: %w", err)
	}
	return snaps, nil
}

func scanSnapshot(r rowScanner) (*store.Snapshot, error) {
	var (
		snap      store.Snapshot
		createdAt string
	)
	if err := r.Scan(&snap.ID, &snap.SpaceID, &snap.CreatedBy, &createdAt, &snap.Payload); err != nil {
		return nil, err
	}
	snap.CreatedAt = parseTime(createdAt)
	return &snap, nil
}

func (s *snapshotStore) LoadSpace(ctx context.Context, spaceID int64) (*store.SpaceContents, error) {
	if err := requireSpace(ctx, s.db, spaceID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes n WHERE n.space_id = ? ORDER BY n.id`, spaceID)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "loading nodes of space %d: %w", spaceID, err)
	}
	nodes, err := collectNodes(rows)
	if err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges e WHERE e.space_id = ? ORDER BY e.id`, spaceID)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "loading edges of space %d: %w", spaceID, err)
	}
	edges, err := collectEdges(rows)
	if err != nil {
		return nil, err
	}

	nodeProps, err := queryProperties(ctx, s.db, store.OwnerNode,
		`WHERE node_id IN (SELECT id FROM nodes WHERE space_id = ?) ORDER BY node_id, id`, spaceID)
	if err != nil {
		return nil, err
	}
	edgeProps, err := queryProperties(ctx, s.db, store.OwnerEdge,
		`WHERE edge_id IN (SELECT id FROM edges WHERE space_id = ?) ORDER BY edge_id, id`, spaceID)
	if err != nil {
		return nil, err
	}

	return &store.SpaceContents{
		Nodes:          nodes,
		Edges:          edges,
		NodeProperties: groupByOwner(nodeProps),
		EdgeProperties: groupByOwner(edgeProps),
	}, nil
}

func (s *snapshotStore) RestoreSpace(ctx context.Context, spaceID int64, contents *store.SpaceContents) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "beginning tx for restore: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireSpace(ctx, tx, spaceID); err != nil {
		return err
	}

	// Edges and properties cascade from nodes.
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE space_id = ?`, spaceID); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "clearing space %d: %w", spaceID, err)
	}

	for _, n := range contents.Nodes {
		node := *n
		node.SpaceID = spaceID
		if err := insertNode(ctx, tx, &node); err != nil {
			return err
		}
		if err := upsertProperties(ctx, tx, store.OwnerNode, node.ID, freshProperties(contents.NodeProperties[n.ID])); err != nil {
			return err
		}
	}

	for _, e := range contents.Edges {
		edge := *e
		edge.SpaceID = spaceID
		if err := requireEndpoints(ctx, tx, &edge); err != nil {
			return err
		}
		if err := insertEdge(ctx, tx, &edge); err != nil {
			return err
		}
		if err := upsertProperties(ctx, tx, store.OwnerEdge, edge.ID, freshProperties(contents.EdgeProperties[e.ID])); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return sgerr.Errorf(sgerr.CodeStoreDatabaseFailure, "committing restore of space %d: %w", spaceID, err)
	}

	s.logger.Info("space restored",
		"space_id", spaceID,
		"nodes", len(contents.Nodes),
		"edges", len(contents.Edges),
	)
	return nil
}

// freshProperties copies props with their row ids cleared so restore
// allocates new property rows.
func freshProperties(props []*store.Property) []*store.Property {
	out := make([]*store.Property, 0, len(props))
	for _, p := range props {
		cp := *p
		cp.ID = 0
		out = append(out, &cp)
	}
	return out
}
