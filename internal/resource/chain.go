// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

// Parent is one (kind, name) ancestor in a parent chain.
type Parent struct {
	Kind *Kind
	Name Name
}

// ParentChain is the ordered list of a resource's ancestors, outermost first.
// It is an immutable value; derivation methods return fresh chains.
type ParentChain struct {
	parents []Parent
}

// EmptyChain is the chain of a root resource.
func EmptyChain() ParentChain { return ParentChain{} }

// NewChain builds a chain from ancestors, outermost first.
func NewChain(parents ...Parent) ParentChain {
	return ParentChain{parents: append([]Parent{}, parents...)}
}

// Append returns a chain with an innermost ancestor added.
func (c ParentChain) Append(k *Kind, n Name) ParentChain {
	out := make([]Parent, 0, len(c.parents)+1)
	out = append(out, c.parents...)
	return ParentChain{parents: append(out, Parent{Kind: k, Name: n})}
}

// Prepend returns a chain with an outermost ancestor added.
func (c ParentChain) Prepend(k *Kind, n Name) ParentChain {
	out := make([]Parent, 0, len(c.parents)+1)
	out = append(out, Parent{Kind: k, Name: n})
	return ParentChain{parents: append(out, c.parents...)}
}

// Prefix returns the chain of the first n ancestors.
func (c ParentChain) Prefix(n int) ParentChain {
	if n > len(c.parents) {
		n = len(c.parents)
	}
	return ParentChain{parents: append([]Parent{}, c.parents[:n]...)}
}

// Len returns the number of ancestors.
func (c ParentChain) Len() int { return len(c.parents) }

// At returns the i-th ancestor, outermost first.
func (c ParentChain) At(i int) Parent { return c.parents[i] }

// Last returns the innermost ancestor, if any.
func (c ParentChain) Last() (Parent, bool) {
	if len(c.parents) == 0 {
		return Parent{}, false
	}
	return c.parents[len(c.parents)-1], true
}

// Parents returns a copy of the ancestors, outermost first.
func (c ParentChain) Parents() []Parent {
	return append([]Parent{}, c.parents...)
}

// Equal compares chains elementwise with case-insensitive names.
func (c ParentChain) Equal(o ParentChain) bool {
	if len(c.parents) != len(o.parents) {
		return false
	}
	for i, p := range c.parents {
		if p.Kind != o.parents[i].Kind || !p.Name.Equal(o.parents[i].Name) {
			return false
		}
	}
	return true
}
