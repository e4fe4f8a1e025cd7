// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package dag implements a directed acyclic graph over string vertices, with
// topological sorting and cycle reporting.
package dag

import (
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Graph is a directed graph whose vertices are strings. Edges point from a
// vertex to the vertices it depends on; Sort places dependencies before
// dependents.
type Graph struct {
	order     []string
	neighbors map[string][]string
	present   map[string]map[string]bool
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		neighbors: map[string][]string{},
		present:   map[string]map[string]bool{},
	}
}

// AddVertex adds a vertex with no edges. Adding an existing vertex is a no-op.
func (g *Graph) AddVertex(id string) {
	if _, ok := g.neighbors[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.neighbors[id] = nil
	g.present[id] = map[string]bool{}
}

// AddEdge adds an edge from a vertex to one of its dependencies, implying
// either vertex if missing. Duplicate edges are collapsed.
func (g *Graph) AddEdge(from, to string) {
	g.AddVertex(from)
	g.AddVertex(to)
	if g.present[from][to] {
		return
	}
	g.present[from][to] = true
	g.neighbors[from] = append(g.neighbors[from], to)
}

// Vertices returns all vertices in insertion order.
func (g *Graph) Vertices() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// CycleError reports a dependency cycle. Path holds the vertices of the cycle
// starting and ending at the re-entered vertex.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Sort returns the vertices in topological order, dependencies first. It
// returns a *CycleError if the graph contains a cycle.
func (g *Graph) Sort() ([]string, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(g.order))
	results := make([]string, 0, len(g.order))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = grey
		path = append(path, id)
		for _, n := range g.neighbors[id] {
			switch color[n] {
			case black:
			case grey:
				// Report the segment of the path from the first
				// occurrence of the re-entered vertex.
				for i, p := range path {
					if p == n {
						cycle := append(append([]string{}, path[i:]...), n)
						return &CycleError{Path: cycle}
					}
				}
				return &CycleError{Path: []string{n, n}}
			default:
				if err := visit(n); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		results = append(results, id)
		return nil
	}

	for _, id := range g.order {
		if color[id] != white {
			continue
		}
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// IsCycle returns true if err is a *CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}
