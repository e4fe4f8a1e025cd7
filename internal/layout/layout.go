// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package layout maps resource keys to canonical service-relative file paths
// and to service URIs. All paths are slash-separated and relative to the
// service directory.
package layout

import (
	"strings"

	"github.com/apiopslabs/apiops/internal/resource"
)

// PolicyFileName is the side-file name of policy fragment bodies.
const PolicyFileName = "policy.xml"

// SpecificationFilePrefix starts every API specification file name.
const SpecificationFilePrefix = "specification."

func chainDir(parents resource.ParentChain) string {
	var segments []string
	for _, p := range parents.Parents() {
		segments = append(segments, p.Kind.CollectionDir, p.Name.String())
	}
	return strings.Join(segments, "/")
}

func join(segments ...string) string {
	var nonEmpty []string
	for _, s := range segments {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// CollectionDir returns the directory holding all instances of a kind under
// the given parents. ok is false for kinds without a directory.
func CollectionDir(kind *resource.Kind, parents resource.ParentChain) (string, bool) {
	if !kind.HasDirectory() {
		return "", false
	}
	return join(chainDir(parents), kind.CollectionDir), true
}

// InstanceDir returns a resource's per-instance directory. For link kinds the
// key's name is the secondary resource's name, so no special casing is
// needed here.
func InstanceDir(key resource.Key) (string, bool) {
	dir, ok := CollectionDir(key.Kind, key.Parents)
	if !ok {
		return "", false
	}
	return join(dir, key.Name.String()), true
}

// InformationFile returns the path of a resource's JSON information file.
func InformationFile(key resource.Key) (string, bool) {
	if !key.Kind.HasInformationFile() {
		return "", false
	}
	dir, ok := InstanceDir(key)
	if !ok {
		return "", false
	}
	return join(dir, key.Kind.FileName), true
}

// PolicyFile returns the path of a policy kind's XML body.
func PolicyFile(key resource.Key) (string, bool) {
	if !key.Kind.IsPolicy() {
		return "", false
	}
	switch key.Kind.Policy.Scope {
	case resource.PolicyScopeFragment:
		dir, ok := InstanceDir(key)
		if !ok {
			return "", false
		}
		return join(dir, PolicyFileName), true
	case resource.PolicyScopeParent:
		return join(chainDir(key.Parents), key.Name.String()+".xml"), true
	default:
		return key.Name.String() + ".xml", true
	}
}

// SpecificationFile returns the path of an API's specification document.
func SpecificationFile(key resource.Key, spec resource.ApiSpecification) (string, bool) {
	if !key.Kind.Revisioned {
		return "", false
	}
	dir, ok := InstanceDir(key)
	if !ok {
		return "", false
	}
	return join(dir, SpecificationFilePrefix+spec.Extension()), true
}

// URIs builds service URIs for resources.
type URIs struct {
	// Base is the service URI, without a trailing slash.
	Base string
}

// NewURIs returns a URI builder over the given service URI.
func NewURIs(serviceURI string) URIs {
	return URIs{Base: strings.TrimRight(serviceURI, "/")}
}

// Collection returns the collection URI of a kind under the given parents.
func (u URIs) Collection(kind *resource.Kind, parents resource.ParentChain) string {
	var b strings.Builder
	b.WriteString(u.Base)
	for _, p := range parents.Parents() {
		b.WriteString("/")
		b.WriteString(p.Kind.CollectionURIPath)
		b.WriteString("/")
		b.WriteString(p.Name.String())
	}
	b.WriteString("/")
	b.WriteString(kind.CollectionURIPath)
	return b.String()
}

// Element returns the element URI of a resource.
func (u URIs) Element(key resource.Key) string {
	return u.Collection(key.Kind, key.Parents) + "/" + key.Name.String()
}
