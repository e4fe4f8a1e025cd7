// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package publish applies a tree snapshot to a live API Management service:
// creates and updates in dependency order, deletes in reverse.
package publish

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"golang.org/x/sync/errgroup"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/future"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/layout"
	"github.com/apiopslabs/apiops/internal/relation"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

const (
	errBuildRelationships = "cannot build resource relationships"
	errParseTarget        = "cannot parse target file"
	errReadPayload        = "cannot read resource payload"
	errPutResource        = "cannot put resource"
	errDeleteResource     = "cannot delete resource"
)

// wellKnown holds the kinds the publisher special-cases.
type wellKnown struct {
	api                 *resource.Kind
	workspaceAPI        *resource.Kind
	apiRelease          *resource.Kind
	workspaceAPIRelease *resource.Kind
	product             *resource.Kind
	workspaceProduct    *resource.Kind
	namedValue          *resource.Kind
	workspaceNamedValue *resource.Kind
	productGroup        *resource.Kind
	subscription        *resource.Kind
	workspaceSub        *resource.Kind
}

func lookupWellKnown(r *resource.Registry) wellKnown {
	must := func(singular string) *resource.Kind {
		k, ok := r.Lookup(singular)
		if !ok {
			panic("kind " + singular + " missing from registry")
		}
		return k
	}
	return wellKnown{
		api:                 must("api"),
		workspaceAPI:        must("workspaceApi"),
		apiRelease:          must("apiRelease"),
		workspaceAPIRelease: must("workspaceApiRelease"),
		product:             must("product"),
		workspaceProduct:    must("workspaceProduct"),
		namedValue:          must("namedValue"),
		workspaceNamedValue: must("workspaceNamedValue"),
		productGroup:        must("productGroup"),
		subscription:        must("subscription"),
		workspaceSub:        must("workspaceSubscription"),
	}
}

// Publisher drives one publish run. Each resource key is processed at most
// once; concurrent paths through the dependency graph share a single future
// per key.
type Publisher struct {
	client  *apim.Client
	graph   *graph.Graph
	config  *config.Configuration
	builder *relation.Builder
	kinds   wellKnown
	log     logging.Logger

	current  tree.FileOperations
	previous tree.FileOperations
	// Diff scope; nil slices with diff=false mean a full publish.
	diff    bool
	changed []string
	deleted []string

	futures   *future.Map[string, token]
	revisions *future.Map[string, revisionState]

	cur     *relation.Relationships
	prev    *relation.Relationships
	targets map[string]resource.Key
}

type token struct{}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher logger.
func WithLogger(log logging.Logger) Option {
	return func(p *Publisher) { p.log = log }
}

// WithCommitScope bounds the run to the files a commit touched. changed are
// service-relative paths present in the current snapshot, deleted are paths
// that resolve only through the previous snapshot.
func WithCommitScope(previous tree.FileOperations, changed, deleted []string) Option {
	return func(p *Publisher) {
		p.diff = true
		p.previous = previous
		p.changed = changed
		p.deleted = deleted
	}
}

// New builds a Publisher over the current snapshot.
func New(client *apim.Client, g *graph.Graph, cfg *config.Configuration, current tree.FileOperations, opts ...Option) *Publisher {
	p := &Publisher{
		client:    client,
		graph:     g,
		config:    cfg,
		builder:   relation.NewBuilder(g),
		kinds:     lookupWellKnown(g.Registry()),
		log:       logging.NewNopLogger(),
		current:   current,
		previous:  tree.Empty(),
		futures:   future.NewMap[string, token](),
		revisions: future.NewMap[string, revisionState](),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run publishes the snapshot. Puts run after their predecessors, deletes
// after their dependents; resources outside the target set are traversed as
// ordering no-ops.
func (p *Publisher) Run(ctx context.Context) error {
	var err error
	p.cur, err = p.builder.Build(p.current)
	if err != nil {
		return errors.Wrap(err, errBuildRelationships)
	}
	p.prev = relation.Empty()
	if p.diff {
		p.prev, err = p.builder.Build(p.previous)
		if err != nil {
			return errors.Wrap(err, errBuildRelationships)
		}
	}
	if p.targets, err = p.targetKeys(); err != nil {
		return err
	}
	p.log.Info("Publishing service", "targets", len(p.targets))

	ids := make([]string, 0, len(p.targets))
	for id := range p.targets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	group, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		key := p.targets[id]
		group.Go(func() error {
			return p.process(ctx, key)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	p.log.Info("Publish complete")
	return nil
}

// targetKeys computes the set of keys to process: every parsed key of the
// current snapshot, or in diff mode the keys behind the commit's changed and
// deleted files.
func (p *Publisher) targetKeys() (map[string]resource.Key, error) {
	targets := map[string]resource.Key{}
	collect := func(files []string, fops tree.FileOperations) error {
		for _, f := range files {
			key, ok, err := p.builder.Parser().Parse(f, fops)
			if err != nil {
				return errors.Wrapf(err, "%s %q", errParseTarget, f)
			}
			if ok {
				targets[key.ID()] = key
			}
		}
		return nil
	}

	if !p.diff {
		files, err := p.current.ServiceFiles()
		if err != nil {
			return nil, err
		}
		return targets, collect(files, p.current)
	}
	if err := collect(p.changed, p.current); err != nil {
		return nil, err
	}
	return targets, collect(p.deleted, p.previous)
}

func (p *Publisher) process(ctx context.Context, key resource.Key) error {
	_, err := p.futures.Do(ctx, key.ID(), func(ctx context.Context) (token, error) {
		put, err := p.isInFileSystem(key)
		if err != nil {
			return token{}, err
		}

		if put {
			group, ctx := errgroup.WithContext(ctx)
			for _, pred := range p.cur.Predecessors(key) {
				pred := pred
				group.Go(func() error { return p.process(ctx, pred) })
			}
			if err := group.Wait(); err != nil {
				return token{}, err
			}
			if _, ok := p.targets[key.ID()]; ok {
				return token{}, p.putResource(ctx, key)
			}
			return token{}, nil
		}

		group, ctx := errgroup.WithContext(ctx)
		for _, succ := range p.prev.Successors(key) {
			succ := succ
			group.Go(func() error { return p.process(ctx, succ) })
		}
		if err := group.Wait(); err != nil {
			return token{}, err
		}
		if _, ok := p.targets[key.ID()]; ok {
			return token{}, p.deleteResource(ctx, key)
		}
		return token{}, nil
	})
	return err
}

// isInFileSystem reports whether the current snapshot holds any artefact of
// the key: its information file, its policy body, or an API specification.
// A lone specification file counts only for API kinds, which are the only
// kinds that own one.
func (p *Publisher) isInFileSystem(key resource.Key) (bool, error) {
	if path, ok := layout.InformationFile(key); ok {
		if exists, err := p.current.Exists(path); err != nil || exists {
			return exists, err
		}
	}
	if path, ok := layout.PolicyFile(key); ok {
		if exists, err := p.current.Exists(path); err != nil || exists {
			return exists, err
		}
	}
	if key.Kind.Revisioned {
		if _, _, ok, err := p.findSpecificationFile(key); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// findSpecificationFile locates an API's specification file in the current
// snapshot, if any, and identifies its variant by extension.
func (p *Publisher) findSpecificationFile(key resource.Key) (string, resource.ApiSpecification, bool, error) {
	for _, ext := range resource.SpecificationExtensions() {
		spec := specForExtension(ext)
		path, ok := layout.SpecificationFile(key, spec)
		if !ok {
			continue
		}
		exists, err := p.current.Exists(path)
		if err != nil {
			return "", resource.ApiSpecification{}, false, err
		}
		if exists {
			return path, spec, true, nil
		}
	}
	return "", resource.ApiSpecification{}, false, nil
}

// specForExtension maps an on-disk extension to the specification variant
// used for upload. Plain json/yaml files are OpenAPI v3 documents.
func specForExtension(ext string) resource.ApiSpecification {
	switch ext {
	case "graphql":
		return resource.ApiSpecification{Kind: resource.SpecGraphQL}
	case "wadl":
		return resource.ApiSpecification{Kind: resource.SpecWadl}
	case "wsdl":
		return resource.ApiSpecification{Kind: resource.SpecWsdl}
	case "json":
		return resource.ApiSpecification{Kind: resource.SpecOpenAPI, Format: resource.OpenAPIJSON, Version: resource.OpenAPIV3}
	default:
		return resource.ApiSpecification{Kind: resource.SpecOpenAPI, Format: resource.OpenAPIYAML, Version: resource.OpenAPIV3}
	}
}

// readPayload assembles the wire payload of a resource from the current
// snapshot: the policy envelope for policy kinds, the information file
// otherwise, with the configuration override merged on top.
func (p *Publisher) readPayload(ctx context.Context, key resource.Key) (map[string]any, error) {
	var payload map[string]any

	if key.Kind.IsPolicy() {
		path, _ := layout.PolicyFile(key)
		xml, err := p.current.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %q", errReadPayload, path)
		}
		payload = dto.PolicyEnvelope(string(xml))
		// Policy fragments also carry an information file; its properties
		// win over the reconstituted envelope.
		if infoPath, ok := layout.InformationFile(key); ok {
			if raw, err := p.current.ReadFile(infoPath); err == nil {
				info, err := dto.Object(raw)
				if err != nil {
					return nil, err
				}
				if payload, err = dto.Merge(payload, info); err != nil {
					return nil, err
				}
			}
		}
	} else {
		path, _ := layout.InformationFile(key)
		raw, err := p.current.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %q", errReadPayload, path)
		}
		if payload, err = dto.Object(raw); err != nil {
			return nil, err
		}
	}

	override, ok, err := p.config.Override(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		if payload, err = dto.Merge(payload, override); err != nil {
			return nil, err
		}
	}
	return p.normalizePayload(key, payload)
}

// normalizePayload round-trips the assembled payload through the kind's typed
// schema, dropping unknown fields and surfacing schema violations. API and
// release payloads carry service-specific fields the schemas do not model, so
// they fall back to the raw payload on a mismatch.
func (p *Publisher) normalizePayload(key resource.Key, payload map[string]any) (map[string]any, error) {
	if !key.Kind.HasDto() {
		return payload, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &dto.SchemaError{Err: err}
	}
	normalized, err := dto.Normalize(raw, key.Kind.NewSchema())
	if err != nil {
		switch key.Kind {
		case p.kinds.api, p.kinds.workspaceAPI, p.kinds.apiRelease, p.kinds.workspaceAPIRelease:
			return payload, nil
		}
		return nil, err
	}
	return dto.Object(normalized)
}

func (p *Publisher) putResource(ctx context.Context, key resource.Key) error {
	if key.Kind.IsReserved(key.Name) {
		p.log.Debug("Skipping reserved resource", "resource", key.String())
		return nil
	}

	payload, err := p.readPayload(ctx, key)
	if err != nil {
		return err
	}

	if (key.Kind == p.kinds.namedValue || key.Kind == p.kinds.workspaceNamedValue) && secretWithoutValue(payload) {
		p.log.Info("Skipping secret named value with no value or Key Vault reference", "resource", key.String())
		return nil
	}

	p.log.Debug("Putting resource", "resource", key.String())
	switch key.Kind {
	case p.kinds.api, p.kinds.workspaceAPI:
		err = p.putAPI(ctx, key, payload)
	case p.kinds.product, p.kinds.workspaceProduct:
		err = p.putProduct(ctx, key, payload)
	case p.kinds.apiRelease, p.kinds.workspaceAPIRelease:
		err = p.putRelease(ctx, key, payload)
	default:
		_, err = p.client.Put(ctx, p.client.URIs().Element(key), payload)
	}
	return errors.Wrapf(err, "%s %q", errPutResource, key.String())
}

// secretWithoutValue reports whether a named value payload is a secret that
// carries neither an inline value nor a Key Vault reference. Such payloads
// cannot be put without destroying the secret on the service.
func secretWithoutValue(payload map[string]any) bool {
	props := dto.Properties(payload)
	secret, _ := props["secret"].(bool)
	if !secret {
		return false
	}
	if value, _ := props["value"].(string); value != "" {
		return false
	}
	kv, _ := props["keyVault"].(map[string]any)
	identifier, _ := kv["secretIdentifier"].(string)
	return identifier == ""
}

// putRelease PUTs an API release, defaulting properties.apiId to the owning
// API's resource id.
func (p *Publisher) putRelease(ctx context.Context, key resource.Key, payload map[string]any) error {
	props := dto.Properties(payload)
	if id, _ := props["apiId"].(string); id == "" {
		parent, _ := key.Parents.Last()
		apiKey := resource.NewKey(parent.Kind, parent.Name, key.Parents.Prefix(key.Parents.Len()-1))
		props["apiId"] = relativeID(apiKey)
		payload["properties"] = props
	}
	_, err := p.client.Put(ctx, p.client.URIs().Element(key), payload)
	return err
}

func (p *Publisher) deleteResource(ctx context.Context, key resource.Key) error {
	if key.Kind.IsReserved(key.Name) {
		p.log.Debug("Skipping reserved resource", "resource", key.String())
		return nil
	}

	if key.Kind == p.kinds.api || key.Kind == p.kinds.workspaceAPI {
		skip, err := p.revisionBecameCurrent(ctx, key)
		if err != nil {
			return err
		}
		if skip {
			p.log.Info("Skipping deletion of revision that is now current", "resource", key.String())
			return nil
		}
	}

	p.log.Debug("Deleting resource", "resource", key.String())
	err := p.client.Delete(ctx, p.client.URIs().Element(key), apim.DeleteOptions{
		IgnoreNotFound:    true,
		WaitForCompletion: true,
	})
	return errors.Wrapf(err, "%s %q", errDeleteResource, key.String())
}

// relativeID renders a key as the service-relative resource id used in DTO
// reference properties.
func relativeID(key resource.Key) string {
	var b strings.Builder
	for _, parent := range key.Parents.Parents() {
		b.WriteString("/")
		b.WriteString(parent.Kind.CollectionURIPath)
		b.WriteString("/")
		b.WriteString(parent.Name.String())
	}
	b.WriteString("/")
	b.WriteString(key.Kind.CollectionURIPath)
	b.WriteString("/")
	b.WriteString(key.Name.String())
	return b.String()
}
