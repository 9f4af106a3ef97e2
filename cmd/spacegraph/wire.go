// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spacegraph-dev/spacegraph/internal/config"
	"github.com/spacegraph-dev/spacegraph/internal/jobs"
	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	"github.com/spacegraph-dev/spacegraph/internal/ontology"
	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/projection/memory"
	"github.com/spacegraph-dev/spacegraph/internal/projection/neo4j"
	"github.com/spacegraph-dev/spacegraph/internal/search"
	"github.com/spacegraph-dev/spacegraph/internal/secrets"
	"github.com/spacegraph-dev/spacegraph/internal/server"
	"github.com/spacegraph-dev/spacegraph/internal/spacegraph"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	_ "github.com/spacegraph-dev/spacegraph/internal/store/sqlite" // register sqlite backend
	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
	"github.com/spacegraph-dev/spacegraph/pkg/health"
)

// App holds the wired subsystems of one CLI invocation.
type App struct {
	Config     *config.Config
	Graph      store.GraphStore
	Projection projection.Store
	Writer     *mirror.Writer
	Reconciler *mirror.Reconciler
	Wikidata   *wikidata.Client
	Search     *search.Engine
	Ontology   *ontology.Table
	Logger     *slog.Logger
}

// Wire opens both stores and builds the services on top of them. The
// property graph driver connects lazily, so Wire succeeds while the graph
// database is down.
func Wire(cfg *config.Config, logger *slog.Logger) (*App, error) {
	table, err := loadOntology(cfg.Ontology.GroupsFile)
	if err != nil {
		return nil, err
	}

	pgs, err := newProjection(cfg.Graph, logger)
	if err != nil {
		return nil, err
	}

	gs, err := store.NewGraphStore(&store.StorageConfig{Backend: cfg.Storage.Backend, Path: cfg.Storage.Path})
	if err != nil {
		_ = pgs.Close(context.Background())
		return nil, sgerr.Wrapf(err, sgerr.CodeCLISetupFailure, "opening relational store")
	}

	wd := wikidata.New(wikidata.Config{
		EntityDataURL: cfg.Wikidata.EntityDataURL,
		APIURL:        cfg.Wikidata.APIURL,
		Language:      cfg.Wikidata.Language,
		Timeout:       cfg.Wikidata.Timeout,
		MaxProperties: cfg.Wikidata.MaxProperties,
		ClaimsTTL:     cfg.Wikidata.ClaimsTTL,
		LabelsTTL:     cfg.Wikidata.LabelsTTL,
	}, logger)

	return &App{
		Config:     cfg,
		Graph:      gs,
		Projection: pgs,
		Writer:     mirror.NewWriter(gs, pgs, logger),
		Reconciler: mirror.NewReconciler(gs, pgs, logger),
		Wikidata:   wd,
		Search: search.NewEngine(gs, pgs, table, search.Config{
			MaxDepth: cfg.Search.MaxDepth,
			MaxPaths: cfg.Search.MaxPaths,
		}, logger),
		Ontology: table,
		Logger:   logger,
	}, nil
}

func newProjection(cfg config.GraphConfig, logger *slog.Logger) (projection.Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("using in-memory property graph; projection is lost on exit")
		return memory.New(), nil
	case "", "neo4j":
		if secrets.IsKeyringURI(cfg.Password) {
			return nil, sgerr.Errorf(sgerr.CodeCLISetupFailure,
				"graph password %s is not in the keyring; run `spacegraph secret set graph-password`", cfg.Password)
		}
		return neo4j.New(neo4j.Config{
			URI:                   cfg.URI,
			User:                  cfg.User,
			Password:              cfg.Password,
			Database:              cfg.Database,
			ConnectTimeout:        cfg.ConnectTimeout,
			MaxConnectionLifetime: cfg.MaxConnectionLifetime,
		}, logger), nil
	default:
		return nil, sgerr.Errorf(sgerr.CodeCLISetupFailure, "unsupported graph backend %q", cfg.Backend)
	}
}

func loadOntology(path string) (*ontology.Table, error) {
	if path == "" {
		return ontology.DefaultTable(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeCLISetupFailure, "opening ontology groups file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ontology.LoadTable(f)
}

// HealthChecks checks both stores for GET /health.
func (a *App) HealthChecks() map[string]health.Check {
	return map[string]health.Check{
		"relational": func(ctx context.Context) error {
			_, err := a.Graph.Counts(ctx)
			return err
		},
		"graph": func(ctx context.Context) error {
			_, err := a.Projection.Counts(ctx)
			return err
		},
	}
}

// Server builds the HTTP server over the app's services.
func (a *App) Server() (*server.Server, error) {
	services, err := server.NewServices(a.Search, a.Wikidata, a.HealthChecks())
	if err != nil {
		return nil, sgerr.Wrapf(err, sgerr.CodeCLISetupFailure, "creating services")
	}
	srv, err := server.New(server.Config{
		ListenAddr:  a.Config.Networking.Listen,
		CORSOrigins: a.Config.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: a.Config.Networking.RateLimitRPS,
			Burst:             a.Config.Networking.RateLimitBurst,
		},
	}, services, a.Logger)
	if err != nil {
		return nil, sgerr.Wrapf(err, sgerr.CodeCLISetupFailure, "creating server")
	}
	return srv, nil
}

// P31Backfill builds the instance-of backfill job.
func (a *App) P31Backfill() *jobs.P31Backfill {
	return jobs.NewP31Backfill(a.Graph.Nodes(), a.Writer, a.Wikidata, a.Logger)
}

// Facade returns the graph facade of one space.
func (a *App) Facade(spaceID int64) *spacegraph.Facade {
	return spacegraph.New(spaceID, a.Graph, a.Writer, a.Reconciler, a.Logger)
}

// Close releases both stores.
func (a *App) Close() error {
	var errs []error
	if err := a.Projection.Close(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if err := a.Graph.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withApp loads the config, wires the app, runs fn and closes the app.
func (s *cliState) withApp(fn func(*App) error) error {
	cfg, err := s.config()
	if err != nil {
		return err
	}
	app, err := Wire(cfg, s.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			s.logger.Warn("closing stores", "error", err)
		}
	}()
	return fn(app)
}
