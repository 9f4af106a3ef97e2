// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package sqlite

import (
	"github.com/spacegraph-dev/spacegraph/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newGraphStore)
}

func newGraphStore(path string) (store.GraphStore, error) {
	return NewGraphStore(path)
}
