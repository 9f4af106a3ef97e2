// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package spacegraph provides per-space graph operations for management
// commands: path finding and components over an in-memory copy of the
// space, node and edge creation through the mirror writer, and snapshots.
package spacegraph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/spacegraph-dev/spacegraph/internal/mirror"
	"github.com/spacegraph-dev/spacegraph/internal/store"
	sgerr "github.com/spacegraph-dev/spacegraph/pkg/errors"
)

// Stats summarises the loaded graph.
type Stats struct {
	Nodes      int `json:"nodes"`
	Edges      int `json:"edges"`
	Components int `json:"components"`
}

// Facade operates on one space. Load must be called before path and
// component queries; AddNode and AddEdge keep the loaded graph current.
type Facade struct {
	spaceID    int64
	rs         store.GraphStore
	writer     *mirror.Writer
	reconciler *mirror.Reconciler
	logger     *slog.Logger

	mu    sync.RWMutex
	graph adjacency
	edges map[int64]*store.Edge
}

// New creates a Facade for spaceID. A nil logger falls back to slog.Default.
func New(spaceID int64, rs store.GraphStore, writer *mirror.Writer, reconciler *mirror.Reconciler, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Facade{
		spaceID:    spaceID,
		rs:         rs,
		writer:     writer,
		reconciler: reconciler,
		logger:     logger.With("space_id", spaceID),
		graph:      make(adjacency),
		edges:      make(map[int64]*store.Edge),
	}
}

// SpaceID returns the space this facade operates on.
func (f *Facade) SpaceID() int64 { return f.spaceID }

// Load reads the space's live nodes and the edges between them.
func (f *Facade) Load(ctx context.Context) error {
	nodes, err := f.rs.Nodes().ListNodes(ctx, f.spaceID, store.NodeListOpts{})
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		if _, err := f.rs.Spaces().GetSpace(ctx, f.spaceID); err != nil {
			return err
		}
	}
	edges, err := f.rs.Edges().ListEdges(ctx, f.spaceID)
	if err != nil {
		return err
	}

	graph := make(adjacency, len(nodes))
	for _, n := range nodes {
		graph.addNode(n.ID)
	}
	byID := make(map[int64]*store.Edge, len(edges))
	for _, e := range edges {
		if _, ok := graph[e.SourceID]; !ok {
			continue
		}
		if _, ok := graph[e.TargetID]; !ok {
			continue
		}
		graph.addEdge(e.SourceID, e.TargetID)
		byID[e.ID] = e
	}

	f.mu.Lock()
	f.graph = graph
	f.edges = byID
	f.mu.Unlock()

	f.logger.Debug("space graph loaded", "nodes", len(nodes), "edges", len(byID))
	return nil
}

// AddNode creates a node through the mirror writer.
func (f *Facade) AddNode(ctx context.Context, label, externalEntityID, actor string) (*store.Node, error) {
	node := &store.Node{
		SpaceID:          f.spaceID,
		Label:            label,
		ExternalEntityID: externalEntityID,
		CreatedBy:        actor,
	}
	if _, err := f.writer.CreateNode(ctx, node, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.graph.addNode(node.ID)
	f.mu.Unlock()
	return node, nil
}

// AddEdge creates an edge through the mirror writer.
func (f *Facade) AddEdge(ctx context.Context, sourceID, targetID int64, relation string) (*store.Edge, error) {
	edge := &store.Edge{
		SpaceID:       f.spaceID,
		SourceID:      sourceID,
		TargetID:      targetID,
		RelationLabel: relation,
	}
	if _, err := f.writer.CreateEdge(ctx, edge, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.graph.addEdge(sourceID, targetID)
	f.edges[edge.ID] = edge
	f.mu.Unlock()
	return edge, nil
}

// ShortestPath returns the node ids of a shortest undirected path between
// source and target, both included.
func (f *Facade) ShortestPath(sourceID, targetID int64) ([]int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, id := range []int64{sourceID, targetID} {
		if _, ok := f.graph[id]; !ok {
			return nil, sgerr.New(sgerr.CodeGraphNodeMissing, "node not in space graph",
				sgerr.FieldSpaceID(f.spaceID), sgerr.FieldNodeID(id))
		}
	}
	path := f.graph.bfs(sourceID, targetID)
	if path == nil {
		return nil, sgerr.New(sgerr.CodeGraphNotConnected, "nodes are not connected",
			sgerr.FieldSpaceID(f.spaceID), sgerr.Field("source_id", sourceID), sgerr.Field("target_id", targetID))
	}
	return path, nil
}

// ConnectedComponents returns the node id sets of the loaded graph, largest
// first.
func (f *Facade) ConnectedComponents() [][]int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.graph.components()
}

// Stats reports node, edge and component counts of the loaded graph.
func (f *Facade) Stats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Stats{
		Nodes:      len(f.graph),
		Edges:      len(f.edges),
		Components: len(f.graph.components()),
	}
}
