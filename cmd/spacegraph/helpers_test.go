// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/spacegraph-dev/spacegraph/internal/store"
	"github.com/spacegraph-dev/spacegraph/internal/store/sqlite"
)

func init() {
	keyring.MockInit()
}

// fixture is a seeded relational store plus a config file that points at it
// with the in-memory property graph.
type fixture struct {
	cfgPath string
	dbPath  string
	space   int64

	bohr, qm, copenhagen int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dbPath := filepath.Join(dir, "spacegraph.db")

	// Wikidata answers 404 for everything, so claim lookups come back empty.
	wd := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(wd.Close)

	ctx := context.Background()
	gs, err := sqlite.NewGraphStore(dbPath)
	require.NoError(t, err)

	f := &fixture{dbPath: dbPath}
	space := &store.Space{Title: "Physics", CreatedBy: "tester"}
	require.NoError(t, gs.Spaces().CreateSpace(ctx, space))
	f.space = space.ID

	node := func(label, entity string) int64 {
		n := &store.Node{SpaceID: f.space, Label: label, ExternalEntityID: entity, CreatedBy: "tester"}
		require.NoError(t, gs.Nodes().CreateNode(ctx, n, nil))
		return n.ID
	}
	f.bohr = node("Niels Bohr", "Q7085")
	f.qm = node("Quantum Mechanics", "")
	f.copenhagen = node("Copenhagen", "")
	require.NoError(t, gs.Edges().CreateEdge(ctx, &store.Edge{
		SpaceID: f.space, SourceID: f.bohr, TargetID: f.qm, RelationLabel: "field of work",
	}, nil))
	require.NoError(t, gs.Close())

	f.cfgPath = filepath.Join(dir, "spacegraph.yaml")
	cfg := fmt.Sprintf(`networking:
  listen: "127.0.0.1:8000"
storage:
  backend: sqlite
  path: %q
graph:
  backend: memory
wikidata:
  entity_data_url: %q
  api_url: %q
  request_delay: 0s
`, dbPath, wd.URL, wd.URL+"/w/api.php")
	require.NoError(t, os.WriteFile(f.cfgPath, []byte(cfg), 0o600))
	return f
}

// run executes the root command with args and returns its stdout.
func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--config", f.cfgPath}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(io.Discard)
	root.SetIn(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// answerPrompts makes every prompt return answer.
func answerPrompts(t *testing.T, answer string) {
	t.Helper()
	orig := runPrompt
	runPrompt = func(io.Reader, io.Writer, promptModel) (string, error) { return answer, nil }
	t.Cleanup(func() { runPrompt = orig })
}
