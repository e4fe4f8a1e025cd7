// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package graph derives the two edge sets over resource kinds: the traversal
// forest walked by the extractor and the dependency order used by the
// publisher and the file parser.
package graph

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/apiopslabs/apiops/internal/dag"
	"github.com/apiopslabs/apiops/internal/resource"
)

const errBuildOrder = "cannot order resource kinds"

// Graph holds the traversal and dependency structure of the registry. It is
// built once at startup and never mutated.
type Graph struct {
	registry   *resource.Registry
	successors map[*resource.Kind][]*resource.Kind
	topo       []*resource.Kind
}

// New builds the graph for a registry. It fails if the dependency edges do
// not form a DAG.
func New(registry *resource.Registry) (*Graph, error) {
	g := &Graph{
		registry:   registry,
		successors: map[*resource.Kind][]*resource.Kind{},
	}

	bySingular := map[string]*resource.Kind{}
	d := dag.New()
	for _, k := range registry.Kinds() {
		bySingular[k.Singular] = k
		d.AddVertex(k.Singular)
		if pred := k.TraversalPredecessor(); pred != nil {
			g.successors[pred] = append(g.successors[pred], k)
		}
		for _, dep := range registry.DependenciesOf(k) {
			d.AddEdge(k.Singular, dep.Singular)
		}
	}

	sorted, err := d.Sort()
	if err != nil {
		return nil, errors.Wrap(err, errBuildOrder)
	}
	g.topo = make([]*resource.Kind, len(sorted))
	for i, s := range sorted {
		g.topo[i] = bySingular[s]
	}
	return g, nil
}

// Registry returns the registry the graph was built from.
func (g *Graph) Registry() *resource.Registry { return g.registry }

// Roots returns the kinds with no traversal predecessor, in registration
// order.
func (g *Graph) Roots() []*resource.Kind {
	var roots []*resource.Kind
	for _, k := range g.registry.Kinds() {
		if k.TraversalPredecessor() == nil {
			roots = append(roots, k)
		}
	}
	return roots
}

// Successors returns the kinds whose traversal predecessor is k.
func (g *Graph) Successors(k *resource.Kind) []*resource.Kind {
	return append([]*resource.Kind{}, g.successors[k]...)
}

// TopologicalOrder returns all kinds with dependencies before dependents.
func (g *Graph) TopologicalOrder() []*resource.Kind {
	return append([]*resource.Kind{}, g.topo...)
}

// ReverseTopologicalOrder returns all kinds with dependents before their
// dependencies. File parsing tries kinds in this order so the most specific
// kind wins.
func (g *Graph) ReverseTopologicalOrder() []*resource.Kind {
	out := make([]*resource.Kind, len(g.topo))
	for i, k := range g.topo {
		out[len(g.topo)-1-i] = k
	}
	return out
}
