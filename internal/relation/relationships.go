// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package relation

import (
	"sort"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/apiopslabs/apiops/internal/dag"
	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/layout"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

const (
	errScanTree     = "cannot enumerate service files"
	errParseTree    = "cannot parse service files"
	errReadInfoFile = "cannot read information file"
)

// Relationships is the predecessor/successor multimap over the resources of
// one tree snapshot. Every key referenced on either side of an edge is
// registered, including keys implied by references to resources the snapshot
// does not contain.
type Relationships struct {
	keys         map[string]resource.Key
	predecessors map[string]map[string]bool
	successors   map[string]map[string]bool
}

// Empty returns relationships over nothing.
func Empty() *Relationships {
	return &Relationships{
		keys:         map[string]resource.Key{},
		predecessors: map[string]map[string]bool{},
		successors:   map[string]map[string]bool{},
	}
}

func (r *Relationships) register(k resource.Key) {
	id := k.ID()
	if _, ok := r.keys[id]; ok {
		return
	}
	r.keys[id] = k
	r.predecessors[id] = map[string]bool{}
	r.successors[id] = map[string]bool{}
}

func (r *Relationships) addEdge(pred, succ resource.Key) {
	r.register(pred)
	r.register(succ)
	r.predecessors[succ.ID()][pred.ID()] = true
	r.successors[pred.ID()][succ.ID()] = true
}

// Keys returns every registered key, sorted by canonical form.
func (r *Relationships) Keys() []resource.Key {
	ids := make([]string, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]resource.Key, len(ids))
	for i, id := range ids {
		out[i] = r.keys[id]
	}
	return out
}

// Predecessors returns the keys that must be processed before k on a put.
func (r *Relationships) Predecessors(k resource.Key) []resource.Key {
	return r.resolve(r.predecessors[k.ID()])
}

// Successors returns the keys that must be processed before k on a delete.
func (r *Relationships) Successors(k resource.Key) []resource.Key {
	return r.resolve(r.successors[k.ID()])
}

func (r *Relationships) resolve(ids map[string]bool) []resource.Key {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	out := make([]resource.Key, len(sorted))
	for i, id := range sorted {
		out[i] = r.keys[id]
	}
	return out
}

// ValidationError aggregates every problem found while validating
// relationships.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid resource relationships: " + strings.Join(e.Problems, "; ")
}

// Builder parses tree snapshots into Relationships.
type Builder struct {
	graph  *graph.Graph
	parser *Parser
}

// NewBuilder builds a Builder over the kind graph.
func NewBuilder(g *graph.Graph) *Builder {
	return &Builder{graph: g, parser: NewParser(g)}
}

// Parser returns the builder's file parser.
func (b *Builder) Parser() *Parser { return b.parser }

// Build scans every file of a snapshot, derives the predecessor/successor
// edges, and validates the result.
func (b *Builder) Build(fops tree.FileOperations) (*Relationships, error) {
	files, err := fops.ServiceFiles()
	if err != nil {
		return nil, errors.Wrap(err, errScanTree)
	}

	keys := map[string]resource.Key{}
	for _, f := range files {
		key, ok, err := b.parser.Parse(f, fops)
		if err != nil {
			return nil, errors.Wrap(err, errParseTree)
		}
		if ok {
			keys[key.ID()] = key
		}
	}

	r := Empty()
	// Register every parsed key before deriving edges; policy ordering
	// needs the full named-value set in place.
	for _, key := range keys {
		r.register(key)
	}
	for _, key := range keys {
		if err := b.addEdges(r, key, fops); err != nil {
			return nil, err
		}
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

//nolint:gocyclo // One case per facet, matching the derivation rules.
func (b *Builder) addEdges(r *Relationships, key resource.Key, fops tree.FileOperations) error {
	kind := key.Kind

	if kind.IsChild() {
		parent, _ := key.Parents.Last()
		r.addEdge(resource.NewKey(parent.Kind, parent.Name, key.Parents.Prefix(key.Parents.Len()-1)), key)
	}

	if kind.IsComposite() {
		primary, _ := key.Parents.Last()
		r.addEdge(resource.NewKey(primary.Kind, primary.Name, key.Parents.Prefix(key.Parents.Len()-1)), key)

		secondary, err := b.secondaryKey(key, fops)
		if err != nil {
			return err
		}
		r.addEdge(secondary, key)
	}

	if kind.References != nil {
		if err := b.addReferenceEdges(r, key, fops); err != nil {
			return err
		}
	}

	if kind.IsPolicy() {
		// Policies may reference any named value; order them after all.
		nv := b.graph.Registry().NamedValue()
		for _, other := range r.keys {
			if other.Kind == nv {
				r.addEdge(other, key)
			}
		}
	}

	if kind.Revisioned && !resource.IsRootName(key.Name) {
		r.addEdge(resource.NewKey(kind, resource.RootName(key.Name), key.Parents), key)
	}

	return nil
}

// secondaryKey derives the composite's secondary key: from the link property
// of the DTO for link kinds, from the key name otherwise.
func (b *Builder) secondaryKey(key resource.Key, fops tree.FileOperations) (resource.Key, error) {
	kind := key.Kind
	name := key.Name
	if kind.IsLink() {
		path, _ := layout.InformationFile(key)
		raw, err := fops.ReadFile(path)
		if err != nil {
			return resource.Key{}, errors.Wrapf(err, "%s %q", errReadInfoFile, path)
		}
		obj, err := dto.Object(raw)
		if err != nil {
			return resource.Key{}, err
		}
		id, _ := dto.Properties(obj)[kind.Composite.LinkProperty].(string)
		if id == "" {
			return resource.Key{}, &dto.MissingPropertyError{Path: "properties." + kind.Composite.LinkProperty}
		}
		var nameErr error
		name, nameErr = resource.NewName(dto.LastSegment(id))
		if nameErr != nil {
			return resource.Key{}, nameErr
		}
	}
	chain, ok := prefixChainFor(kind.Composite.Secondary, key.Parents)
	if !ok {
		return resource.Key{}, errors.Errorf("resource %s: no ancestor scope matches secondary kind %s", key.String(), kind.Composite.Secondary.Singular)
	}
	return resource.NewKey(kind.Composite.Secondary, name, chain), nil
}

// prefixChainFor returns the longest prefix of chain that matches the
// referenced kind's traversal-predecessor hierarchy.
func prefixChainFor(referenced *resource.Kind, chain resource.ParentChain) (resource.ParentChain, bool) {
	ancestors := ancestorKinds(referenced)
	if chain.Len() < len(ancestors) {
		return resource.ParentChain{}, false
	}
	for i, a := range ancestors {
		if chain.At(i).Kind != a {
			return resource.ParentChain{}, false
		}
	}
	return chain.Prefix(len(ancestors)), true
}

// addReferenceEdges reads the resource's DTO and adds an edge for every
// reference property that points at a resolvable resource.
func (b *Builder) addReferenceEdges(r *Relationships, key resource.Key, fops tree.FileOperations) error {
	path, ok := layout.InformationFile(key)
	if !ok {
		return nil
	}
	raw, err := fops.ReadFile(path)
	if err != nil {
		// The snapshot may hold only the API's specification file.
		return nil //nolint:nilerr // Absence of the file is not an error here.
	}
	obj, err := dto.Object(raw)
	if err != nil {
		return err
	}
	props := dto.Properties(obj)

	addFor := func(refs map[*resource.Kind]string) error {
		for refKind, prop := range refs {
			id, _ := props[prop].(string)
			if id == "" {
				continue
			}
			relative := dto.ToRelativeID(id)
			if !referencesKind(relative, refKind) {
				continue
			}
			name, err := resource.NewName(dto.LastSegment(relative))
			if err != nil {
				return err
			}
			chain, ok := prefixChainFor(refKind, key.Parents)
			if !ok {
				continue
			}
			r.addEdge(resource.NewKey(refKind, name, chain), key)
		}
		return nil
	}

	if err := addFor(key.Kind.References.Mandatory); err != nil {
		return err
	}
	return addFor(key.Kind.References.Optional)
}

// referencesKind reports whether a relative resource id's penultimate
// segment is the kind's collection path. Disambiguates properties that may
// point at several kinds, such as subscription scopes.
func referencesKind(relativeID string, kind *resource.Kind) bool {
	segments := strings.Split(strings.Trim(relativeID, "/"), "/")
	if len(segments) < 2 {
		return false
	}
	return strings.EqualFold(segments[len(segments)-2], kind.CollectionURIPath)
}

// validate enforces the three relationship invariants: registration closure,
// edge mutuality, and acyclicity. Failures are aggregated.
func (r *Relationships) validate() error {
	var problems []string

	for id := range r.keys {
		if _, ok := r.predecessors[id]; !ok {
			problems = append(problems, "key "+id+" missing from predecessor map")
		}
		if _, ok := r.successors[id]; !ok {
			problems = append(problems, "key "+id+" missing from successor map")
		}
	}
	for id, preds := range r.predecessors {
		for pred := range preds {
			if _, ok := r.keys[pred]; !ok {
				problems = append(problems, "predecessor "+pred+" of "+id+" is not registered")
				continue
			}
			if !r.successors[pred][id] {
				problems = append(problems, "edge "+pred+" -> "+id+" is not mutual")
			}
		}
	}
	for id, succs := range r.successors {
		for succ := range succs {
			if _, ok := r.keys[succ]; !ok {
				problems = append(problems, "successor "+succ+" of "+id+" is not registered")
				continue
			}
			if !r.predecessors[succ][id] {
				problems = append(problems, "edge "+id+" -> "+succ+" is not mutual")
			}
		}
	}

	d := dag.New()
	ids := make([]string, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d.AddVertex(id)
		succs := make([]string, 0, len(r.successors[id]))
		for succ := range r.successors[id] {
			succs = append(succs, succ)
		}
		sort.Strings(succs)
		for _, succ := range succs {
			d.AddEdge(succ, id)
		}
	}
	if _, err := d.Sort(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}
