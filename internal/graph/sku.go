// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"

	"github.com/apiopslabs/apiops/internal/future"
	"github.com/apiopslabs/apiops/internal/resource"
)

// Prober checks whether a root kind's collection is reachable on the live
// service. It returns false when the service's pricing tier does not support
// the collection, and an error for any unclassified failure.
type Prober interface {
	ProbeCollection(ctx context.Context, kind *resource.Kind) (bool, error)
}

// SupportOracle answers whether the live service's SKU supports a resource
// kind. Answers are memoised for the process lifetime; concurrent callers for
// the same kind share a single probe.
type SupportOracle struct {
	graph  *Graph
	prober Prober
	cache  *future.Map[string, bool]
}

// NewSupportOracle builds an oracle over the given graph and prober.
func NewSupportOracle(g *Graph, p Prober) *SupportOracle {
	return &SupportOracle{
		graph:  g,
		prober: p,
		cache:  future.NewMap[string, bool](),
	}
}

// Supported reports whether the service supports the kind. Root kinds are
// probed against their collection URI; other kinds are supported iff all of
// their dependencies are.
func (o *SupportOracle) Supported(ctx context.Context, kind *resource.Kind) (bool, error) {
	return o.cache.Do(ctx, kind.Singular, func(ctx context.Context) (bool, error) {
		if kind.TraversalPredecessor() == nil {
			return o.prober.ProbeCollection(ctx, kind)
		}
		for _, dep := range o.graph.registry.DependenciesOf(kind) {
			ok, err := o.Supported(ctx, dep)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	})
}
