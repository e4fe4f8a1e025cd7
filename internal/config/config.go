// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package config implements the hierarchical inclusion and override
// configuration. The file is a tree of nested lists keyed by the plural
// nouns of resource kinds; absence of a section at a scope means "include
// everything".
package config

import (
	"context"
	"io/fs"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/apiopslabs/apiops/internal/future"
	"github.com/apiopslabs/apiops/internal/resource"
)

const (
	errReadConfiguration  = "cannot read configuration"
	errParseConfiguration = "cannot parse configuration"
)

// Decision is the three-valued outcome of an inclusion lookup.
type Decision int

// Inclusion outcomes.
const (
	// Unspecified: no entry for the kind at the relevant scope; callers
	// extract by default.
	Unspecified Decision = iota
	Included
	Excluded
)

// Configuration answers inclusion and override lookups. Lookups are cached
// at two levels: the parsed root document and one section per parent chain.
type Configuration struct {
	read     func() ([]byte, error)
	root     *future.Cell[map[string]any]
	sections *future.Map[string, sectionResult]
}

type sectionResult struct {
	obj map[string]any
	ok  bool
}

// New builds a Configuration over a reader closure. The closure is invoked
// at most once; fs.ErrNotExist yields an empty configuration.
func New(read func() ([]byte, error)) *Configuration {
	return &Configuration{
		read:     read,
		root:     future.NewCell[map[string]any](),
		sections: future.NewMap[string, sectionResult](),
	}
}

// FromFile builds a Configuration over a YAML (or JSON) file.
func FromFile(fsys afero.Fs, path string) *Configuration {
	return New(func() ([]byte, error) {
		if path == "" {
			return nil, nil
		}
		return afero.ReadFile(fsys, path)
	})
}

func (c *Configuration) rootJSON(ctx context.Context) (map[string]any, error) {
	return c.root.Get(ctx, func(context.Context) (map[string]any, error) {
		data, err := c.read()
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return map[string]any{}, nil
		case err != nil:
			return nil, errors.Wrap(err, errReadConfiguration)
		case len(data) == 0:
			return map[string]any{}, nil
		}
		raw, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, errors.Wrap(err, errParseConfiguration)
		}
		var obj map[string]any
		if err := yaml.Unmarshal(raw, &obj); err != nil {
			return nil, errors.Wrap(err, errParseConfiguration)
		}
		if obj == nil {
			obj = map[string]any{}
		}
		return obj, nil
	})
}

// lookupName is the configuration spelling of a resource name: revisioned
// API names collapse to their root name so all revisions share one entry.
func lookupName(kind *resource.Kind, name resource.Name) resource.Name {
	if kind.Revisioned {
		return resource.RootName(name)
	}
	return name
}

func chainID(parents resource.ParentChain) string {
	var b strings.Builder
	for _, p := range parents.Parents() {
		b.WriteString("/")
		b.WriteString(p.Kind.Plural)
		b.WriteString("/")
		b.WriteString(strings.ToLower(lookupName(p.Kind, p.Name).String()))
	}
	return b.String()
}

// itemName returns the configuration list item's name: the item itself for
// bare strings, its single key for mappings.
func itemName(item any) (string, map[string]any, bool) {
	switch v := item.(type) {
	case string:
		return v, nil, true
	case map[string]any:
		if len(v) != 1 {
			return "", nil, false
		}
		for name, value := range v {
			obj, _ := value.(map[string]any)
			return name, obj, true
		}
	}
	return "", nil, false
}

func findItem(list []any, name resource.Name) (map[string]any, bool) {
	for _, item := range list {
		itemN, obj, ok := itemName(item)
		if !ok {
			continue
		}
		if strings.EqualFold(itemN, name.String()) {
			return obj, true
		}
	}
	return nil, false
}

// section walks the configuration tree along a parent chain, reusing cached
// partial walks. ok is false when some ancestor has no configuration entry,
// which makes every lookup below it unspecified.
func (c *Configuration) section(ctx context.Context, parents resource.ParentChain) (map[string]any, bool, error) {
	res, err := c.sections.Do(ctx, chainID(parents), func(ctx context.Context) (sectionResult, error) {
		if parents.Len() == 0 {
			obj, err := c.rootJSON(ctx)
			return sectionResult{obj: obj, ok: true}, err
		}
		scope, ok, err := c.section(ctx, parents.Prefix(parents.Len()-1))
		if err != nil || !ok {
			return sectionResult{}, err
		}
		last, _ := parents.Last()
		list, ok := scope[last.Kind.Plural].([]any)
		if !ok {
			return sectionResult{}, nil
		}
		obj, ok := findItem(list, lookupName(last.Kind, last.Name))
		if !ok || obj == nil {
			return sectionResult{}, nil
		}
		return sectionResult{obj: obj, ok: true}, nil
	})
	return res.obj, res.ok, err
}

// Includes reports whether a resource is named in the configuration at its
// parent scope. Revisioned names match if their root name is listed.
func (c *Configuration) Includes(ctx context.Context, key resource.Key) (Decision, error) {
	scope, ok, err := c.section(ctx, key.Parents)
	if err != nil || !ok {
		return Unspecified, err
	}
	list, ok := scope[key.Kind.Plural].([]any)
	if !ok {
		return Unspecified, nil
	}
	if _, found := findItem(list, key.Name); found {
		return Included, nil
	}
	if key.Kind.Revisioned {
		if _, found := findItem(list, resource.RootName(key.Name)); found {
			return Included, nil
		}
	}
	return Excluded, nil
}

// Override returns the JSON object configured for a resource, for merging
// into its DTO at publish time. Child sections (list-valued keys) are
// stripped, and API overrides never rewrite revision identity.
func (c *Configuration) Override(ctx context.Context, key resource.Key) (map[string]any, bool, error) {
	scope, ok, err := c.section(ctx, key.Parents)
	if err != nil || !ok {
		return nil, false, err
	}
	list, ok := scope[key.Kind.Plural].([]any)
	if !ok {
		return nil, false, nil
	}
	obj, found := findItem(list, lookupName(key.Kind, key.Name))
	if !found || obj == nil {
		return nil, false, nil
	}

	override := map[string]any{}
	for k, v := range obj {
		// List-valued keys are child resource sections, not override
		// properties.
		if _, isList := v.([]any); isList {
			continue
		}
		override[k] = v
	}
	if key.Kind.Revisioned {
		if props, ok := override["properties"].(map[string]any); ok {
			clean := map[string]any{}
			for k, v := range props {
				clean[k] = v
			}
			delete(clean, "apiRevision")
			delete(clean, "isCurrent")
			override["properties"] = clean
		}
	}
	if len(override) == 0 {
		return nil, false, nil
	}
	return override, true, nil
}
