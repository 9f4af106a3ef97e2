// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStoreErrors_Classification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"space not found", sgerr.New(sgerr.CodeStoreSpaceNotFound, "space 1"), sgerr.IsNotFound},
		{"node not found", sgerr.New(sgerr.CodeStoreNodeNotFound, "node 1"), sgerr.IsNotFound},
		{"edge not found", sgerr.New(sgerr.CodeStoreEdgeNotFound, "edge 1"), sgerr.IsNotFound},
		{"snapshot not found", sgerr.New(sgerr.CodeStoreSnapshotNotFound, "snapshot 1"), sgerr.IsNotFound},
		{"conflict", sgerr.New(sgerr.CodeStoreConflict, "cross-space edge"), sgerr.IsConflict},
		{"invalid input", sgerr.New(sgerr.CodeStoreInvalidInput, "label required"), sgerr.IsInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped))
		})
	}
}

func TestStoreErrors_SentinelsWrapped(t *testing.T) {
	err := sgerr.Errorf(sgerr.CodeStoreNodeNotFound, "node 42: %w", store.ErrNotFound)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.False(t, errors.Is(err, store.ErrConflict))
	assert.True(t, sgerr.IsNotFound(err))
}
