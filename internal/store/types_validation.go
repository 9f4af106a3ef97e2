// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package store

import (
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Validate checks that the Space has all required fields set correctly.
func (s Space) Validate() error {
	if s.Title == "" {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "space: Title is required")
	}
	return nil
}

// Validate checks that the Node has all required fields set correctly.
func (n Node) Validate() error {
	if n.SpaceID <= 0 {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "node: SpaceID is required")
	}
	if n.Label == "" {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "node: Label is required")
	}
	return nil
}

// Validate checks that the Edge has all required fields set correctly.
func (e Edge) Validate() error {
	if e.SpaceID <= 0 {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "edge: SpaceID is required")
	}
	if e.SourceID <= 0 || e.TargetID <= 0 {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "edge: SourceID and TargetID are required")
	}
	return nil
}

// Validate checks that the Property has all required fields set correctly.
func (p Property) Validate() error {
	if p.PropertyID == "" {
		return sgerr.New(sgerr.CodeStoreInvalidInput, "property: PropertyID is required")
	}
	return nil
}

// Valid reports whether the operation is a known repair operation.
func (o RepairOp) Valid() bool {
	switch o {
	case RepairUpsert, RepairDelete:
		return true
	default:
		return false
	}
}

// Valid reports whether the entity is a known repair entity.
func (e RepairEntity) Valid() bool {
	switch e {
	case RepairSpace, RepairNode, RepairEdge:
		return true
	default:
		return false
	}
}
