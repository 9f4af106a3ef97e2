// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package memory is an in-process projection.Store. It follows the same
// projection rules as the Bolt adapter and backs tests and single-binary
// deployments without a graph database.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/spacegraph-dev/spacegraph/internal/projection"
	"github.com/spacegraph-dev/spacegraph/internal/store"
)

// Compile-time interface check.
var _ projection.Store = (*Store)(nil)

type spaceRec struct {
	id    int64
	title string
}

type nodeRec struct {
	id          int64
	spaceID     int64
	label       string
	description string
	externalID  string
	attrs       map[string]any
}

type edgeRec struct {
	id         int64
	spaceID    int64
	source     int64
	target     int64
	relType    string
	label      string
	externalID string
}

// Store holds the projection in maps guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	spaces map[int64]*spaceRec
	nodes  map[int64]*nodeRec
	edges  map[int64]*edgeRec

	writeErr error
	queryErr error
}

// New returns an empty in-memory projection.
func New() *Store {
	return &Store{
		spaces: make(map[int64]*spaceRec),
		nodes:  make(map[int64]*nodeRec),
		edges:  make(map[int64]*edgeRec),
	}
}

// SetWriteError makes every subsequent write fail with err (nil resets).
func (s *Store) SetWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// SetQueryError makes every subsequent read fail with err (nil resets).
func (s *Store) SetQueryError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

func (s *Store) UpsertSpace(_ context.Context, space *store.Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.spaces[space.ID] = &spaceRec{id: space.ID, title: space.Title}
	return nil
}

func (s *Store) DeleteSpace(_ context.Context, spaceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	for id, n := range s.nodes {
		if n.spaceID == spaceID {
			s.detachLocked(id)
		}
	}
	delete(s.spaces, spaceID)
	return nil
}

func (s *Store) UpsertNode(_ context.Context, node *store.Node, props []*store.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if node.Archived {
		s.detachLocked(node.ID)
		return nil
	}
	if _, ok := s.spaces[node.SpaceID]; !ok {
		s.spaces[node.SpaceID] = &spaceRec{id: node.SpaceID}
	}
	s.nodes[node.ID] = &nodeRec{
		id:          node.ID,
		spaceID:     node.SpaceID,
		label:       node.Label,
		description: node.Description,
		externalID:  node.ExternalEntityID,
		attrs:       projection.NodeAttributes(props),
	}
	return nil
}

func (s *Store) DeleteNode(_ context.Context, nodeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.detachLocked(nodeID)
	return nil
}

// detachLocked removes a node and its relationships.
func (s *Store) detachLocked(nodeID int64) {
	for id, e := range s.edges {
		if e.source == nodeID || e.target == nodeID {
			delete(s.edges, id)
		}
	}
	delete(s.nodes, nodeID)
}

func (s *Store) UpsertEdge(_ context.Context, edge *store.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.edges, edge.ID)
	if _, ok := s.nodes[edge.SourceID]; !ok {
		return nil
	}
	if _, ok := s.nodes[edge.TargetID]; !ok {
		return nil
	}
	s.edges[edge.ID] = &edgeRec{
		id:         edge.ID,
		spaceID:    edge.SpaceID,
		source:     edge.SourceID,
		target:     edge.TargetID,
		relType:    projection.RelType(edge.RelationLabel),
		label:      edge.RelationLabel,
		externalID: edge.ExternalPropertyID,
	}
	return nil
}

func (s *Store) DeleteEdge(_ context.Context, edgeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.edges, edgeID)
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.spaces = make(map[int64]*spaceRec)
	s.nodes = make(map[int64]*nodeRec)
	s.edges = make(map[int64]*edgeRec)
	return nil
}

func (s *Store) Counts(_ context.Context) (projection.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return projection.Counts{}, s.queryErr
	}
	// Every projected node carries exactly one IN_SPACE relationship.
	return projection.Counts{
		Spaces:  len(s.spaces),
		Nodes:   len(s.nodes),
		Edges:   len(s.edges),
		InSpace: len(s.nodes),
	}, nil
}

func (s *Store) SpaceIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	ids := make([]int64, 0, len(s.spaces))
	for id := range s.spaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) NodeIDs(_ context.Context, spaceID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var ids []int64
	for id, n := range s.nodes {
		if n.spaceID == spaceID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) EdgeIDs(_ context.Context, spaceID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var ids []int64
	for id, e := range s.edges {
		if e.spaceID == spaceID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) ExistingNodes(_ context.Context, spaceID int64, ids []int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var out []int64
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok && n.spaceID == spaceID {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

func (s *Store) FindNodesByText(_ context.Context, spaceID int64, texts []string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var ids []int64
	for id, n := range s.nodes {
		if n.spaceID != spaceID {
			continue
		}
		for _, t := range texts {
			if strings.Contains(n.label, t) || strings.Contains(n.description, t) {
				ids = append(ids, id)
				break
			}
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) FindEdges(_ context.Context, spaceID int64, selectors []string) ([]projection.EdgeRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	var refs []projection.EdgeRef
	for _, e := range s.edges {
		if e.spaceID != spaceID {
			continue
		}
		for _, sel := range selectors {
			if strings.Contains(e.relType, sel) || strings.Contains(e.label, sel) {
				refs = append(refs, projection.EdgeRef{ID: e.id, Source: e.source, Target: e.target})
				break
			}
		}
	}
	slices.SortFunc(refs, func(a, b projection.EdgeRef) int { return cmp.Compare(a.ID, b.ID) })
	return refs, nil
}

func (s *Store) Expand(_ context.Context, spaceID int64, seeds []int64, depth, maxPaths int) (*projection.Subgraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if maxPaths <= 0 {
		maxPaths = projection.DefaultMaxPaths
	}

	adj := make(map[int64][]*edgeRec)
	for _, e := range s.edges {
		if e.spaceID != spaceID {
			continue
		}
		adj[e.source] = append(adj[e.source], e)
		if e.target != e.source {
			adj[e.target] = append(adj[e.target], e)
		}
	}
	for id := range adj {
		slices.SortFunc(adj[id], func(a, b *edgeRec) int { return cmp.Compare(a.id, b.id) })
	}

	w := &walker{
		adj:      adj,
		depth:    depth,
		maxPaths: maxPaths,
		onPath:   make(map[int64]bool),
		nodes:    make(map[int64]bool),
		edges:    make(map[int64]bool),
	}

	ordered := slices.Clone(seeds)
	slices.Sort(ordered)
	for _, seed := range slices.Compact(ordered) {
		n, ok := s.nodes[seed]
		if !ok || n.spaceID != spaceID {
			continue
		}
		w.walk(seed, nil, 0)
		if w.partial {
			break
		}
	}

	nodes := make(map[int64]projection.Node, len(w.nodes))
	for id := range w.nodes {
		n := s.nodes[id]
		nodes[id] = projection.Node{ID: n.id, Label: n.label, Description: n.description}
	}
	edges := make(map[int64]projection.Edge, len(w.edges))
	for id := range w.edges {
		e := s.edges[id]
		edges[id] = projection.Edge{ID: e.id, Source: e.source, Target: e.target, Type: e.relType, Label: e.label}
	}
	return projection.Collect(nodes, edges, w.partial), nil
}

// walker enumerates simple paths depth-first, counting each path once.
type walker struct {
	adj      map[int64][]*edgeRec
	depth    int
	maxPaths int
	paths    int
	partial  bool
	onPath   map[int64]bool
	nodes    map[int64]bool
	edges    map[int64]bool
}

func (w *walker) walk(cur int64, via *edgeRec, length int) {
	if w.partial {
		return
	}
	if w.paths >= w.maxPaths {
		w.partial = true
		return
	}
	w.paths++
	w.nodes[cur] = true
	if via != nil {
		w.edges[via.id] = true
	}
	if length >= w.depth {
		return
	}

	w.onPath[cur] = true
	defer delete(w.onPath, cur)
	for _, e := range w.adj[cur] {
		next := e.target
		if next == cur {
			next = e.source
		}
		if w.onPath[next] {
			continue
		}
		w.walk(next, e, length+1)
		if w.partial {
			return
		}
	}
}

// NodeAttrs returns the property attributes of a projected node.
func (s *Store) NodeAttrs(nodeID int64) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, false
	}
	return n.attrs, true
}

// Edge returns a projected relationship by relational id.
func (s *Store) Edge(edgeID int64) (projection.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[edgeID]
	if !ok {
		return projection.Edge{}, false
	}
	return projection.Edge{ID: e.id, Source: e.source, Target: e.target, Type: e.relType, Label: e.label}, true
}

func (s *Store) Close(_ context.Context) error { return nil }
