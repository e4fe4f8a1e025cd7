// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

import "strings"

// Key addresses one resource instance: its kind, its name, and the chain of
// ancestors above it.
type Key struct {
	Kind    *Kind
	Name    Name
	Parents ParentChain
}

// NewKey builds a Key.
func NewKey(kind *Kind, name Name, parents ParentChain) Key {
	return Key{Kind: kind, Name: name, Parents: parents}
}

// String is the canonical form of the key:
// /parentCollection/parentName/.../collection/name.
func (k Key) String() string {
	var b strings.Builder
	for _, p := range k.Parents.Parents() {
		b.WriteString("/")
		b.WriteString(p.Kind.CollectionURIPath)
		b.WriteString("/")
		b.WriteString(p.Name.String())
	}
	b.WriteString("/")
	b.WriteString(k.Kind.CollectionURIPath)
	b.WriteString("/")
	b.WriteString(k.Name.String())
	return b.String()
}

// ID is the case-insensitive map-key form of the canonical string.
func (k Key) ID() string { return strings.ToLower(k.String()) }

// Equal compares kind, name, and parents.
func (k Key) Equal(o Key) bool {
	return k.Kind == o.Kind && k.Name.Equal(o.Name) && k.Parents.Equal(o.Parents)
}
