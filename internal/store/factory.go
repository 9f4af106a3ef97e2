// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package store

import (
	"sync"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// GraphStoreFactory creates the relational store given a database path.
type GraphStoreFactory func(path string) (GraphStore, error)

var (
	graphFactories = map[string]GraphStoreFactory{}
	factoriesMu    sync.RWMutex
)

// RegisterBackend registers the factory function for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, gs GraphStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	graphFactories[name] = gs
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewGraphStore creates the relational store configured by cfg.
func NewGraphStore(cfg *StorageConfig) (GraphStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := graphFactories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, sgerr.Errorf(sgerr.CodeStoreBackendUnsupported, "unsupported storage backend: %q", backend)
	}

	return factory(cfg.Path)
}
