// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package neo4j projects the relational graph into a Bolt-speaking property
// graph store (Neo4j or NornicDB). The driver is created lazily on first use
// and shared by every call; sessions are opened per call.
package neo4j

import (
	"context"
	"log/slog"
	"sync"
	"time"

	bolt "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/spacegraph-dev/spacegraph/internal/projection"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Compile-time interface check.
var _ projection.Store = (*Store)(nil)

// Config holds the connection settings for the graph database.
type Config struct {
	URI                   string
	User                  string
	Password              string
	Database              string
	ConnectTimeout        time.Duration
	MaxConnectionLifetime time.Duration
}

// Store implements projection.Store over Bolt.
type Store struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	driver bolt.DriverWithContext
}

// New returns a Store that connects on first use.
func New(cfg Config, logger *slog.Logger) *Store {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MaxConnectionLifetime <= 0 {
		cfg.MaxConnectionLifetime = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{cfg: cfg, logger: logger}
}

// Driver returns the shared driver, creating it on first use. A failed
// creation is returned as a ProjectionUnavailable error and retried on the
// next call.
func (s *Store) Driver(ctx context.Context) (bolt.DriverWithContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver != nil {
		return s.driver, nil
	}

	d, err := bolt.NewDriverWithContext(s.cfg.URI, bolt.BasicAuth(s.cfg.User, s.cfg.Password, ""), func(c *bolt.Config) {
		c.ConnectionAcquisitionTimeout = s.cfg.ConnectTimeout
		c.SocketConnectTimeout = s.cfg.ConnectTimeout
		c.MaxConnectionLifetime = s.cfg.MaxConnectionLifetime
	})
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeProjectionUnavailable, "creating graph driver for %s: %w", s.cfg.URI, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()
	if err := d.VerifyConnectivity(verifyCtx); err != nil {
		_ = d.Close(ctx)
		return nil, sgerr.Errorf(sgerr.CodeProjectionUnavailable, "connecting to graph store %s: %w", s.cfg.URI, err)
	}

	s.ensureSchema(ctx, d)
	s.driver = d
	s.logger.Info("graph store connected", "uri", s.cfg.URI)
	return d, nil
}

// ensureSchema creates the pg_id uniqueness constraints. Stores that do not
// support constraints still work, only slower.
func (s *Store) ensureSchema(ctx context.Context, d bolt.DriverWithContext) {
	session := d.NewSession(ctx, bolt.SessionConfig{AccessMode: bolt.AccessModeWrite, DatabaseName: s.cfg.Database})
	defer session.Close(ctx)

	for _, q := range []string{
		`CREATE CONSTRAINT space_pg_id IF NOT EXISTS FOR (s:Space) REQUIRE s.pg_id IS UNIQUE`,
		`CREATE CONSTRAINT node_pg_id IF NOT EXISTS FOR (n:Node) REQUIRE n.pg_id IS UNIQUE`,
		`CREATE INDEX node_space_id IF NOT EXISTS FOR (n:Node) ON (n.space_id)`,
	} {
		result, err := session.Run(ctx, q, nil)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			s.logger.Warn("graph schema statement failed", "query", q, "error", err)
		}
	}
}

// Close closes the driver if it was created.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// session opens a session on the shared driver.
func (s *Store) session(ctx context.Context, mode bolt.AccessMode) (bolt.SessionWithContext, error) {
	d, err := s.Driver(ctx)
	if err != nil {
		return nil, err
	}
	return d.NewSession(ctx, bolt.SessionConfig{AccessMode: mode, DatabaseName: s.cfg.Database}), nil
}

// write runs each statement in order in one write session.
func (s *Store) write(ctx context.Context, what string, params map[string]any, queries ...string) error {
	session, err := s.session(ctx, bolt.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	for _, q := range queries {
		result, err := session.Run(ctx, q, params)
		if err == nil {
			_, err = result.Consume(ctx)
		}
		if err != nil {
			return classify(err, sgerr.CodeProjectionWriteFailure, what)
		}
	}
	return nil
}

// read runs q and calls fn for every record.
func (s *Store) read(ctx context.Context, what, q string, params map[string]any, fn func(*bolt.Record) error) error {
	session, err := s.session(ctx, bolt.AccessModeRead)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, q, params)
	if err != nil {
		return classify(err, sgerr.CodeProjectionQueryFailure, what)
	}
	for result.Next(ctx) {
		if err := fn(result.Record()); err != nil {
			return err
		}
	}
	if err := result.Err(); err != nil {
		return classify(err, sgerr.CodeProjectionQueryFailure, what)
	}
	return nil
}

// classify maps connectivity failures to ProjectionUnavailable and
// everything else to code.
func classify(err error, code sgerr.Code, what string) error {
	if bolt.IsConnectivityError(err) {
		return sgerr.Errorf(sgerr.CodeProjectionUnavailable, "%s: %w", what, err)
	}
	return sgerr.Errorf(code, "%s: %w", what, err)
}

func getInt64(record *bolt.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	return toInt64(val)
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func toString(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
