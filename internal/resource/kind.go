// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

// PolicyScope describes where a policy kind's XML body lives on disk.
type PolicyScope int

// Policy scopes.
const (
	// PolicyScopeService: a single XML file at the service directory root.
	PolicyScopeService PolicyScope = iota
	// PolicyScopeParent: "<name>.xml" inside the parent's directory.
	PolicyScopeParent
	// PolicyScopeFragment: "policy.xml" inside the fragment's own directory.
	PolicyScopeFragment
)

// Composite describes a kind whose identity is "the secondary under the
// primary". A non-empty LinkProperty makes it a link kind: the DTO carries
// the secondary's absolute resource id under that property.
type Composite struct {
	Primary      *Kind
	Secondary    *Kind
	LinkProperty string
}

// Policy describes a policy kind.
type Policy struct {
	Scope PolicyScope
}

// References maps referenced kinds to the DTO property carrying the
// referenced resource's absolute id.
type References struct {
	Mandatory map[*Kind]string
	Optional  map[*Kind]string
}

// Kind is one entry of the resource registry: a record of capability facets
// and per-kind quirks. Kinds are immutable after registry construction and
// compared by pointer.
type Kind struct {
	// Singular uniquely identifies the kind; Plural keys configuration
	// sections.
	Singular string
	Plural   string

	// CollectionURIPath is the URI segment of the kind's collection.
	CollectionURIPath string
	// CollectionDir is the on-disk collection directory name; empty when
	// the kind occupies no subtree of its own.
	CollectionDir string
	// FileName is the information file name; empty when the kind has none.
	FileName string

	// NewSchema returns a fresh pointer to the kind's typed DTO schema;
	// nil when the kind has no DTO.
	NewSchema func() any

	// Parent is set for child kinds.
	Parent *Kind
	// Composite is set for composite kinds. Composite kinds are never
	// child kinds.
	Composite *Composite
	// Policy is set for policy kinds.
	Policy *Policy
	// References is set for kinds whose DTO points at other resources.
	References *References

	// Revisioned marks API kinds whose names may carry ";rev=<n>".
	Revisioned bool
	// ReservedNames are system-managed instances the tools never create
	// or delete.
	ReservedNames []string

	// FormatForWrite reshapes a payload before the extractor persists it.
	// nil means the payload is written as normalised.
	FormatForWrite func(name Name, obj map[string]any) map[string]any
}

// HasDirectory reports whether the kind occupies a directory subtree.
func (k *Kind) HasDirectory() bool { return k.CollectionDir != "" }

// HasInformationFile reports whether the kind persists a JSON information
// file.
func (k *Kind) HasInformationFile() bool { return k.FileName != "" }

// HasDto reports whether the kind has a typed wire representation.
func (k *Kind) HasDto() bool { return k.NewSchema != nil }

// IsChild reports whether the kind occurs only under its parent kind.
func (k *Kind) IsChild() bool { return k.Parent != nil }

// IsComposite reports whether the kind's identity is secondary-under-primary.
func (k *Kind) IsComposite() bool { return k.Composite != nil }

// IsLink reports whether the kind is a composite whose DTO carries the
// secondary's id.
func (k *Kind) IsLink() bool { return k.Composite != nil && k.Composite.LinkProperty != "" }

// IsPolicy reports whether the kind is a policy kind.
func (k *Kind) IsPolicy() bool { return k.Policy != nil }

// TraversalPredecessor returns the kind walked before this one: the parent
// for child kinds, the primary for composites, nil for roots.
func (k *Kind) TraversalPredecessor() *Kind {
	switch {
	case k.Parent != nil:
		return k.Parent
	case k.Composite != nil:
		return k.Composite.Primary
	default:
		return nil
	}
}

// IsReserved reports whether name is system-managed for this kind.
func (k *Kind) IsReserved(name Name) bool {
	for _, r := range k.ReservedNames {
		if name.Equal(MustName(r)) {
			return true
		}
	}
	return false
}

// ReferenceProperties returns the DTO property names of all declared
// references, mandatory first.
func (k *Kind) ReferenceProperties() []string {
	if k.References == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, prop := range k.References.Mandatory {
		if !seen[prop] {
			seen[prop] = true
			out = append(out, prop)
		}
	}
	for _, prop := range k.References.Optional {
		if !seen[prop] {
			seen[prop] = true
			out = append(out, prop)
		}
	}
	return out
}
