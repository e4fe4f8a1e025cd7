// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package relation parses a tree snapshot into resource keys and builds the
// predecessor/successor relationships the publisher orders by.
package relation

import (
	"encoding/json"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/layout"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

const (
	errReadLinkFile  = "cannot read link information file"
	errParseLinkFile = "cannot parse link information file"
)

// Parser maps files in a tree snapshot to resource keys. Kinds are tried in
// reverse topological order so the most specific kind claims a file first;
// a file claimed by more than one kind is a fatal ambiguity.
type Parser struct {
	graph *graph.Graph
}

// NewParser builds a Parser over the kind graph.
func NewParser(g *graph.Graph) *Parser {
	return &Parser{graph: g}
}

// Parse maps one service-relative file path to a resource key. ok is false
// for files that belong to no kind.
func (p *Parser) Parse(path string, fops tree.FileOperations) (resource.Key, bool, error) {
	var matches []resource.Key
	for _, kind := range p.graph.ReverseTopologicalOrder() {
		key, ok, err := p.parseAs(kind, path, fops)
		if err != nil {
			return resource.Key{}, false, err
		}
		if ok {
			matches = append(matches, key)
		}
	}
	switch len(matches) {
	case 0:
		return resource.Key{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		kinds := make([]string, len(matches))
		for i, m := range matches {
			kinds[i] = m.Kind.Singular
		}
		return resource.Key{}, false, errors.Errorf("file %q matches multiple kinds: %s", path, strings.Join(kinds, ", "))
	}
}

func (p *Parser) parseAs(kind *resource.Kind, path string, fops tree.FileOperations) (resource.Key, bool, error) {
	segments := strings.Split(path, "/")
	switch {
	case kind.IsPolicy():
		return p.parsePolicy(kind, segments)
	case kind.HasInformationFile():
		key, ok := p.parseInformationFile(kind, segments)
		if ok && kind.IsLink() {
			return p.checkLinkDirectory(kind, key, path, fops)
		}
		if !ok && kind.Revisioned {
			key, ok = p.parseSpecification(kind, segments)
		}
		return key, ok, nil
	default:
		return resource.Key{}, false, nil
	}
}

// ancestorKinds returns the kinds above a kind in the traversal forest,
// outermost first.
func ancestorKinds(kind *resource.Kind) []*resource.Kind {
	var out []*resource.Kind
	for pred := kind.TraversalPredecessor(); pred != nil; pred = pred.TraversalPredecessor() {
		out = append([]*resource.Kind{pred}, out...)
	}
	return out
}

// matchChain matches leading path segments against pairs of
// (collection directory, name) for each ancestor kind. It returns the parent
// chain and the number of segments consumed.
func matchChain(ancestors []*resource.Kind, segments []string) (resource.ParentChain, int, bool) {
	chain := resource.EmptyChain()
	consumed := 0
	for _, a := range ancestors {
		if len(segments) < consumed+2 {
			return resource.ParentChain{}, 0, false
		}
		if !a.HasDirectory() || segments[consumed] != a.CollectionDir {
			return resource.ParentChain{}, 0, false
		}
		name, err := resource.NewName(segments[consumed+1])
		if err != nil {
			return resource.ParentChain{}, 0, false
		}
		chain = chain.Append(a, name)
		consumed += 2
	}
	return chain, consumed, true
}

// parseInformationFile matches
// [ancestors…]/<collectionDir>/<name>/<fileName>.
func (p *Parser) parseInformationFile(kind *resource.Kind, segments []string) (resource.Key, bool) {
	ancestors := ancestorKinds(kind)
	if len(segments) != len(ancestors)*2+3 {
		return resource.Key{}, false
	}
	chain, consumed, ok := matchChain(ancestors, segments)
	if !ok {
		return resource.Key{}, false
	}
	if segments[consumed] != kind.CollectionDir || segments[consumed+2] != kind.FileName {
		return resource.Key{}, false
	}
	name, err := resource.NewName(segments[consumed+1])
	if err != nil {
		return resource.Key{}, false
	}
	return resource.NewKey(kind, name, chain), true
}

// checkLinkDirectory verifies that a link file's directory is named after
// the linked secondary resource.
func (p *Parser) checkLinkDirectory(kind *resource.Kind, key resource.Key, path string, fops tree.FileOperations) (resource.Key, bool, error) {
	raw, err := fops.ReadFile(path)
	if err != nil {
		return resource.Key{}, false, errors.Wrapf(err, "%s %q", errReadLinkFile, path)
	}
	var link dto.ResourceLinkDTO
	if err := json.Unmarshal(raw, &link); err != nil {
		return resource.Key{}, false, errors.Wrapf(err, "%s %q", errParseLinkFile, path)
	}
	id := link.LinkedID(kind.Composite.LinkProperty)
	if id == "" {
		return resource.Key{}, false, &dto.MissingPropertyError{Path: "properties." + kind.Composite.LinkProperty}
	}
	if !strings.EqualFold(dto.LastSegment(id), key.Name.String()) {
		return resource.Key{}, false, errors.Errorf("link file %q names secondary %q but lives in directory %q", path, dto.LastSegment(id), key.Name.String())
	}
	return key, true, nil
}

// parsePolicy matches policy XML files in their scope-specific locations.
func (p *Parser) parsePolicy(kind *resource.Kind, segments []string) (resource.Key, bool, error) {
	last := segments[len(segments)-1]
	ancestors := ancestorKinds(kind)
	switch kind.Policy.Scope {
	case resource.PolicyScopeFragment:
		// [ancestors…]/<collectionDir>/<name>/policy.xml
		if last != layout.PolicyFileName || len(segments) != len(ancestors)*2+3 {
			return resource.Key{}, false, nil
		}
		chain, consumed, ok := matchChain(ancestors, segments)
		if !ok || segments[consumed] != kind.CollectionDir {
			return resource.Key{}, false, nil
		}
		name, err := resource.NewName(segments[consumed+1])
		if err != nil {
			return resource.Key{}, false, nil
		}
		return resource.NewKey(kind, name, chain), true, nil
	case resource.PolicyScopeParent:
		// [ancestors…]/<name>.xml
		name, ok := strings.CutSuffix(last, ".xml")
		if !ok || name == "" || len(segments) != len(ancestors)*2+1 {
			return resource.Key{}, false, nil
		}
		chain, _, ok := matchChain(ancestors, segments)
		if !ok {
			return resource.Key{}, false, nil
		}
		n, err := resource.NewName(name)
		if err != nil {
			return resource.Key{}, false, nil
		}
		return resource.NewKey(kind, n, chain), true, nil
	default:
		// <name>.xml at the service root.
		name, ok := strings.CutSuffix(last, ".xml")
		if !ok || name == "" || len(segments) != 1 {
			return resource.Key{}, false, nil
		}
		n, err := resource.NewName(name)
		if err != nil {
			return resource.Key{}, false, nil
		}
		return resource.NewKey(kind, n, resource.EmptyChain()), true, nil
	}
}

// parseSpecification maps [ancestors…]/<collectionDir>/<name>/specification.<ext>
// to the owning API's key. Specification files identify an API, not a kind
// of their own.
func (p *Parser) parseSpecification(kind *resource.Kind, segments []string) (resource.Key, bool) {
	last := segments[len(segments)-1]
	ext, ok := strings.CutPrefix(last, layout.SpecificationFilePrefix)
	if !ok {
		return resource.Key{}, false
	}
	known := false
	for _, e := range resource.SpecificationExtensions() {
		if ext == e {
			known = true
			break
		}
	}
	if !known {
		return resource.Key{}, false
	}
	ancestors := ancestorKinds(kind)
	if len(segments) != len(ancestors)*2+3 {
		return resource.Key{}, false
	}
	chain, consumed, ok := matchChain(ancestors, segments)
	if !ok || segments[consumed] != kind.CollectionDir {
		return resource.Key{}, false
	}
	name, err := resource.NewName(segments[consumed+1])
	if err != nil {
		return resource.Key{}, false
	}
	return resource.NewKey(kind, name, chain), true
}
