// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package neo4j_test

import (
	"context"
	"testing"
	"time"

	"github.com/spacegraph-dev/spacegraph/internal/projection/neo4j"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UnreachableIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s := neo4j.New(neo4j.Config{
		URI:            "bolt://127.0.0.1:1",
		User:           "neo4j",
		Password:       "secret",
		ConnectTimeout: 500 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_, err := s.Expand(ctx, 1, []int64{1}, 1, 0)
	require.Error(t, err)
	assert.True(t, sgerr.IsUnavailable(err))

	// Failed creation is not memoised: the next call tries again.
	err = s.UpsertNode(ctx, &store.Node{ID: 1, SpaceID: 1, Label: "x"}, nil)
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeProjectionUnavailable))
}

func TestStore_InvalidURIIsUnavailable(t *testing.T) {
	s := neo4j.New(neo4j.Config{URI: "http://not-bolt"}, nil)
	_, err := s.Driver(context.Background())
	require.Error(t, err)
	assert.True(t, sgerr.IsUnavailable(err))
}

func TestStore_CloseWithoutDriver(t *testing.T) {
	s := neo4j.New(neo4j.Config{URI: "bolt://127.0.0.1:1"}, nil)
	assert.NoError(t, s.Close(context.Background()))
}
