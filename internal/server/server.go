// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package server exposes search, instance-type and Wikidata lookups over
// HTTP with a huma API mounted on chi.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// DefaultHealthTimeout bounds each dependency check of GET /health.
const DefaultHealthTimeout = 2 * time.Second

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr    string
	CORSOrigins   []string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	HealthTimeout time.Duration
	RateLimit     RateLimitConfig
}

// Server wraps a chi router with huma API and HTTP server.
type Server struct {
	router   chi.Router
	api      huma.API
	cfg      Config
	services *Services
	limiter  *rateLimiter
	logger   *slog.Logger
}

// New creates a Server with every route registered.
func New(cfg Config, services *Services, logger *slog.Logger) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, sgerr.New(sgerr.CodeServerConfigInvalid, "listen address is required")
	}
	if services == nil {
		return nil, sgerr.New(sgerr.CodeServerConfigInvalid, "services are required")
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = DefaultHealthTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	limiter := newRateLimiter(cfg.RateLimit, logger)

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(limiter.middleware)

	humaConfig := huma.DefaultConfig("Spacegraph", "0.1.0")
	humaConfig.Info.Description = "Subgraph search and Wikidata lookups over space knowledge graphs"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router:   r,
		api:      api,
		cfg:      cfg,
		services: services,
		limiter:  limiter,
		logger:   logger,
	}

	srv.registerHealthRoute()
	srv.registerSearchRoutes()
	srv.registerWikidataRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, e.g. to dump its OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return sgerr.Errorf(sgerr.CodeServerStartFailure, "listening on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return sgerr.Errorf(sgerr.CodeServerStartFailure, "serving: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return sgerr.Errorf(sgerr.CodeServerInternalFailure, "shutting down: %w", err)
	}

	return <-errCh
}

// Close stops background goroutines.
func (s *Server) Close() error {
	s.limiter.stop()
	return nil
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Cache"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
