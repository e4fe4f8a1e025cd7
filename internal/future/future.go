// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package future provides memoised once-computed futures. Each cell runs its
// computation at most once for the lifetime of the process; concurrent and
// later callers share the single result. Waiters honour their own context.
package future

import (
	"context"
	"sync"
)

type cell[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Map is a keyed collection of once-computed futures. The zero value is not
// usable; use NewMap.
type Map[K comparable, V any] struct {
	mu    sync.Mutex
	cells map[K]*cell[V]
}

// NewMap returns an empty future map.
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{cells: map[K]*cell[V]{}}
}

// Do returns the memoised result for key, computing it with fn if this is the
// first call for that key. The computation runs on the first caller's
// goroutine with the first caller's context; other callers block until it
// completes or their own context is cancelled. A cancelled waiter does not
// cancel the computation for the others.
func (m *Map[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	m.mu.Lock()
	c, ok := m.cells[key]
	if !ok {
		c = &cell[V]{done: make(chan struct{})}
		m.cells[key] = c
		m.mu.Unlock()
		c.val, c.err = fn(ctx)
		close(c.done)
		return c.val, c.err
	}
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Cell is a single once-computed future.
type Cell[V any] struct {
	once sync.Once
	done chan struct{}
	val  V
	err  error
}

// NewCell returns an empty cell.
func NewCell[V any]() *Cell[V] {
	return &Cell[V]{done: make(chan struct{})}
}

// Get returns the memoised result, computing it with fn on first use.
func (c *Cell[V]) Get(ctx context.Context, fn func(context.Context) (V, error)) (V, error) {
	computed := false
	c.once.Do(func() {
		computed = true
		c.val, c.err = fn(ctx)
		close(c.done)
	})
	if computed {
		return c.val, c.err
	}

	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}
