// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

package main

import (
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

func TestMigrateCommand(t *testing.T) {
	f := newFixture(t)

	t.Run("verify only reports mismatch", func(t *testing.T) {
		// Each invocation starts with an empty in-memory projection.
		out, err := f.run(t, "migrate-to-pgs", "--verify-only")
		require.Error(t, err)
		assert.True(t, sgerr.HasCode(err, sgerr.CodeJobFailure))
		assert.Contains(t, out, "Node")
		assert.Contains(t, out, "rs=3 pgs=0")
		assert.Contains(t, err.Error(), "Node rs=3 pgs=0")
	})

	t.Run("full migration", func(t *testing.T) {
		out, err := f.run(t, "migrate-to-pgs")
		require.NoError(t, err)
		assert.Contains(t, out, "Migration")
		assert.Regexp(t, `nodes\s+3`, out)
		assert.Regexp(t, `edges\s+1`, out)
	})

	t.Run("clear aborted", func(t *testing.T) {
		answerPrompts(t, "nope")
		_, err := f.run(t, "migrate-to-pgs", "--clear")
		require.Error(t, err)
		assert.True(t, sgerr.HasCode(err, sgerr.CodeCLIAborted))
	})

	t.Run("clear confirmed", func(t *testing.T) {
		answerPrompts(t, "clear")
		_, err := f.run(t, "migrate-to-pgs", "--clear")
		require.NoError(t, err)
	})

	t.Run("clear with yes skips prompt", func(t *testing.T) {
		answerPrompts(t, "")
		_, err := f.run(t, "migrate-to-pgs", "--clear", "--yes")
		require.NoError(t, err)
	})

	t.Run("repairs only", func(t *testing.T) {
		out, err := f.run(t, "migrate-to-pgs", "--repairs-only")
		require.NoError(t, err)
		assert.Regexp(t, `replayed\s+0`, out)
	})

	t.Run("exclusive flags", func(t *testing.T) {
		_, err := f.run(t, "migrate-to-pgs", "--verify-only", "--repairs-only")
		require.Error(t, err)
	})
}

func TestP31Command(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "fetch-missing-p31", "--delay", "0")
	require.NoError(t, err)
	// Only Niels Bohr carries an entity id; Wikidata has no claims for it.
	assert.Regexp(t, `processed\s+1`, out)
	assert.Regexp(t, `success_count\s+0`, out)
	assert.Regexp(t, `p31_found_count\s+0`, out)
	assert.Regexp(t, `p31_not_found_count\s+1`, out)
	assert.Regexp(t, `error_count\s+0`, out)

	out, err = f.run(t, "fetch-missing-p31", "--dry-run", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")

	_, err = f.run(t, "fetch-missing-p31", "--concurrency", "0")
	require.Error(t, err)
	assert.True(t, sgerr.HasCode(err, sgerr.CodeCLIInputInvalid))
}

func TestGraphCommands(t *testing.T) {
	f := newFixture(t)
	space := strconv.FormatInt(f.space, 10)

	t.Run("path", func(t *testing.T) {
		out, err := f.run(t, "graph", "path", "--space", space, fmt.Sprint(f.bohr), fmt.Sprint(f.qm))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d -> %d\n", f.bohr, f.qm), out)
	})

	t.Run("not connected", func(t *testing.T) {
		_, err := f.run(t, "graph", "path", "--space", space, fmt.Sprint(f.bohr), fmt.Sprint(f.copenhagen))
		require.Error(t, err)
		assert.True(t, sgerr.IsNotConnected(err))
	})

	t.Run("bad id", func(t *testing.T) {
		_, err := f.run(t, "graph", "path", "--space", space, "bohr", "1")
		require.Error(t, err)
		assert.True(t, sgerr.HasCode(err, sgerr.CodeCLIInputInvalid))
	})

	t.Run("components", func(t *testing.T) {
		out, err := f.run(t, "graph", "components", "--space", space)
		require.NoError(t, err)
		assert.Regexp(t, `components\s+2`, out)
		assert.Contains(t, out, fmt.Sprintf("%d %d", f.bohr, f.qm))
	})

	t.Run("unknown space", func(t *testing.T) {
		_, err := f.run(t, "graph", "components", "--space", "999")
		require.Error(t, err)
		assert.True(t, sgerr.IsNotFound(err))
	})

	t.Run("space is required", func(t *testing.T) {
		_, err := f.run(t, "graph", "components")
		require.Error(t, err)
	})
}

func TestGraphEditCommands(t *testing.T) {
	f := newFixture(t)
	space := strconv.FormatInt(f.space, 10)
	idIn := func(t *testing.T, pattern, out string) string {
		t.Helper()
		m := regexp.MustCompile(pattern).FindStringSubmatch(out)
		require.Len(t, m, 2, out)
		return m[1]
	}

	out, err := f.run(t, "graph", "add-node", "--space", space, "--entity", "q40904", "Werner Heisenberg")
	require.NoError(t, err)
	heisenberg := idIn(t, `Created node (\d+) in space`, out)

	out, err = f.run(t, "graph", "add-edge", "--space", space, "--label", "field of work", heisenberg, fmt.Sprint(f.qm))
	require.NoError(t, err)
	edge := idIn(t, `Created edge (\d+)`, out)

	out, err = f.run(t, "graph", "path", "--space", space, heisenberg, fmt.Sprint(f.bohr))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s -> %d -> %d\n", heisenberg, f.qm, f.bohr), out)

	t.Run("archive hides the node until restored", func(t *testing.T) {
		_, err := f.run(t, "graph", "archive-node", "--space", space, fmt.Sprint(f.copenhagen))
		require.NoError(t, err)
		out, err := f.run(t, "graph", "components", "--space", space)
		require.NoError(t, err)
		assert.Regexp(t, `components\s+1`, out)

		out, err = f.run(t, "graph", "archive-node", "--space", space, "--restore", fmt.Sprint(f.copenhagen))
		require.NoError(t, err)
		assert.Contains(t, out, "Restored node")
		out, err = f.run(t, "graph", "components", "--space", space)
		require.NoError(t, err)
		assert.Regexp(t, `components\s+2`, out)
	})

	t.Run("remove edge then node", func(t *testing.T) {
		_, err := f.run(t, "graph", "remove-edge", "--space", space, edge)
		require.NoError(t, err)
		_, err = f.run(t, "graph", "path", "--space", space, heisenberg, fmt.Sprint(f.bohr))
		assert.True(t, sgerr.IsNotConnected(err))

		_, err = f.run(t, "graph", "remove-node", "--space", space, heisenberg)
		require.NoError(t, err)
		_, err = f.run(t, "graph", "path", "--space", space, heisenberg, fmt.Sprint(f.bohr))
		assert.True(t, sgerr.IsNotFound(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name  string
			args  []string
			check func(error) bool
		}{
			{"blank label", []string{"add-node", "--space", space, "  "}, func(err error) bool { return sgerr.HasCode(err, sgerr.CodeCLIInputInvalid) }},
			{"unknown space", []string{"add-node", "--space", "999", "X"}, sgerr.IsNotFound},
			{"edge to other space", []string{"add-edge", "--space", "999", fmt.Sprint(f.bohr), fmt.Sprint(f.qm)}, sgerr.IsNotFound},
			{"unknown edge", []string{"remove-edge", "--space", space, "9999"}, sgerr.IsNotFound},
			{"unknown node", []string{"archive-node", "--space", space, "9999"}, sgerr.IsNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.run(t, append([]string{"graph"}, tt.args...)...)
				require.Error(t, err)
				assert.True(t, tt.check(err), err.Error())
			})
		}
	})
}

func TestSnapshotCommands(t *testing.T) {
	f := newFixture(t)
	space := strconv.FormatInt(f.space, 10)

	out, err := f.run(t, "snapshot", "list", "--space", space)
	require.NoError(t, err)
	assert.Equal(t, "No snapshots.\n", out)

	out, err = f.run(t, "snapshot", "create", "--space", space, "--actor", "tester")
	require.NoError(t, err)
	assert.Contains(t, out, "Created snapshot 1")

	out, err = f.run(t, "snapshot", "list", "--space", space)
	require.NoError(t, err)
	assert.Contains(t, out, "tester")

	out, err = f.run(t, "snapshot", "revert", "--space", space, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 nodes, 1 edges)")

	_, err = f.run(t, "snapshot", "revert", "--space", space, "42")
	require.Error(t, err)
	assert.True(t, sgerr.IsNotFound(err))
}
