// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spacegraph-dev/spacegraph/internal/search"
	"github.com/spacegraph-dev/spacegraph/internal/server"
	"github.com/spacegraph-dev/spacegraph/internal/wikidata"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec creates a server with all routes registered and extracts the
// OpenAPI spec that huma generates from the Go type annotations. The
// services have no stores behind them; handlers are never invoked.
func generateSpec() ([]byte, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := server.NewServices(
		search.NewEngine(nil, nil, nil, search.Config{}, logger),
		wikidata.New(wikidata.Config{}, logger),
		nil,
	)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeCLISetupFailure, "creating services: %w", err)
	}

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, svc, logger)
	if err != nil {
		return nil, sgerr.Errorf(sgerr.CodeCLISetupFailure, "creating server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
