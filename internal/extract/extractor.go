// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package extract snapshots a live API Management service into the canonical
// directory tree.
package extract

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/layout"
	"github.com/apiopslabs/apiops/internal/resource"
)

const (
	errListCollection = "cannot list collection"
	errListRevisions  = "cannot list revisions"
	errDecodeItem     = "cannot decode collection item"
	errWriteArtifact  = "cannot write artifact"
	errFetchPolicy    = "cannot fetch policy"
	errNormalizeItem  = "cannot normalize resource"
	errExportSpec     = "cannot export specification"
)

// Extractor walks the live service top-down and writes canonical artefacts.
type Extractor struct {
	client   *apim.Client
	graph    *graph.Graph
	oracle   *graph.SupportOracle
	config   *config.Configuration
	files    afero.Fs
	spec     resource.ApiSpecification
	releases map[*resource.Kind]bool
	log      logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the extractor logger.
func WithLogger(log logging.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// WithSpecificationFormat sets the default API specification format.
func WithSpecificationFormat(spec resource.ApiSpecification) Option {
	return func(e *Extractor) { e.spec = spec }
}

// New builds an Extractor writing into the service directory dir of fsys.
func New(client *apim.Client, g *graph.Graph, cfg *config.Configuration, fsys afero.Fs, dir string, opts ...Option) *Extractor {
	e := &Extractor{
		client:   client,
		graph:    g,
		oracle:   graph.NewSupportOracle(g, client),
		config:   cfg,
		files:    afero.NewBasePathFs(fsys, dir),
		spec:     resource.DefaultSpecification(),
		releases: releaseKinds(g.Registry()),
		log:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// releaseKinds returns the API release kinds; releases exist only under the
// current revision of an API.
func releaseKinds(r *resource.Registry) map[*resource.Kind]bool {
	out := map[*resource.Kind]bool{}
	for _, singular := range []string{"apiRelease", "workspaceApiRelease"} {
		if k, ok := r.Lookup(singular); ok {
			out[k] = true
		}
	}
	return out
}

// Run extracts the whole service. Root kinds and sibling resources are
// processed in parallel; a resource's artefacts are always written before
// its successors are walked.
func (e *Extractor) Run(ctx context.Context) error {
	e.log.Info("Extracting service")
	group, ctx := errgroup.WithContext(ctx)
	for _, kind := range e.graph.Roots() {
		kind := kind
		group.Go(func() error {
			return e.processKind(ctx, kind, resource.EmptyChain())
		})
	}
	err := group.Wait()
	if err == nil {
		e.log.Info("Extraction complete")
	}
	return err
}

func (e *Extractor) processKind(ctx context.Context, kind *resource.Kind, parents resource.ParentChain) error {
	supported, err := e.oracle.Supported(ctx, kind)
	if err != nil {
		return err
	}
	if !supported {
		e.log.Info("Skipping kind unsupported by service SKU", "kind", kind.Singular)
		return nil
	}

	items, err := e.list(ctx, kind, parents)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		group.Go(func() error {
			return e.processResource(ctx, kind, parents, item)
		})
	}
	return group.Wait()
}

type listing struct {
	name resource.Name
	dto  []byte // nil for kinds without a DTO
}

// list enumerates a collection. Policy kinds are fetched per element since
// the list endpoint omits the raw XML; revisioned kinds are supplemented
// with their non-current revisions.
func (e *Extractor) list(ctx context.Context, kind *resource.Kind, parents resource.ParentChain) ([]listing, error) {
	uri := e.client.URIs().Collection(kind, parents)
	items, err := e.client.GetCollection(ctx, uri)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %q", errListCollection, uri)
	}

	var out []listing
	for _, item := range items {
		var envelope struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &envelope); err != nil {
			return nil, errors.Wrap(err, errDecodeItem)
		}
		name, err := resource.NewName(envelope.Name)
		if err != nil {
			return nil, err
		}

		entry := listing{name: name}
		switch {
		case kind.IsPolicy():
			raw, ok, err := e.client.GetPolicy(ctx, uri+"/"+name.String())
			if err != nil {
				return nil, errors.Wrap(err, errFetchPolicy)
			}
			if !ok {
				continue
			}
			entry.dto, err = dto.Normalize(raw, kind.NewSchema())
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s/%s", errNormalizeItem, kind.Singular, name.String())
			}
		case kind.HasDto():
			entry.dto, err = dto.Normalize(item, kind.NewSchema())
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s/%s", errNormalizeItem, kind.Singular, name.String())
			}
		}
		// A link's on-disk directory is named after the secondary resource,
		// not after the link itself.
		if kind.IsLink() {
			entry.name, err = linkSecondaryName(kind, entry.dto)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s/%s", errDecodeItem, kind.Singular, name.String())
			}
		}
		out = append(out, entry)

		if kind.Revisioned && resource.IsRootName(name) {
			revisions, err := e.listRevisions(ctx, kind, parents, name)
			if err != nil {
				return nil, err
			}
			out = append(out, revisions...)
		}
	}
	return out, nil
}

// linkSecondaryName derives a link resource's key name from the linked id in
// its DTO.
func linkSecondaryName(kind *resource.Kind, raw []byte) (resource.Name, error) {
	var link dto.ResourceLinkDTO
	if err := json.Unmarshal(raw, &link); err != nil {
		return resource.Name{}, &dto.SchemaError{Err: err}
	}
	id := link.LinkedID(kind.Composite.LinkProperty)
	if id == "" {
		return resource.Name{}, &dto.MissingPropertyError{Path: "properties." + kind.Composite.LinkProperty}
	}
	return resource.NewName(dto.LastSegment(id))
}

// listRevisions emits the non-current revisions of an API under their
// revisioned names.
func (e *Extractor) listRevisions(ctx context.Context, kind *resource.Kind, parents resource.ParentChain, root resource.Name) ([]listing, error) {
	uri := e.client.URIs().Collection(kind, parents)
	items, err := e.client.GetCollection(ctx, uri+"/"+root.String()+"/revisions")
	if err != nil {
		return nil, errors.Wrap(err, errListRevisions)
	}

	var out []listing
	for _, item := range items {
		var rev struct {
			APIRevision string `json:"apiRevision"`
			IsCurrent   bool   `json:"isCurrent"`
		}
		if err := json.Unmarshal(item, &rev); err != nil {
			return nil, errors.Wrap(err, errDecodeItem)
		}
		if rev.IsCurrent {
			continue
		}
		name, err := resource.NewName(root.String() + ";rev=" + rev.APIRevision)
		if err != nil {
			return nil, err
		}
		raw, ok, err := e.client.GetOptional(ctx, uri+"/"+name.String())
		if err != nil || !ok {
			if err != nil {
				return nil, err
			}
			continue
		}
		normalized, err := dto.Normalize(raw, kind.NewSchema())
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s/%s", errNormalizeItem, kind.Singular, name.String())
		}
		out = append(out, listing{name: name, dto: normalized})
	}
	return out, nil
}

func (e *Extractor) processResource(ctx context.Context, kind *resource.Kind, parents resource.ParentChain, item listing) error {
	key := resource.NewKey(kind, item.name, parents)

	if kind.IsReserved(item.name) {
		return nil
	}
	decision, err := e.config.Includes(ctx, key)
	if err != nil {
		return err
	}
	if decision == config.Excluded {
		e.log.Info("Skipping resource excluded by configuration", "resource", key.String())
		return nil
	}

	if err := e.writeArtifacts(ctx, key, item.dto); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, successor := range e.graph.Successors(kind) {
		// Releases live only under the current revision of an API.
		if e.releases[successor] && !resource.IsRootName(item.name) {
			continue
		}
		successor := successor
		group.Go(func() error {
			return e.processKind(ctx, successor, parents.Append(kind, item.name))
		})
	}
	return group.Wait()
}

func (e *Extractor) writeArtifacts(ctx context.Context, key resource.Key, raw []byte) error {
	e.log.Debug("Extracting resource", "resource", key.String())

	if key.Kind.HasInformationFile() && raw != nil {
		obj, err := dto.Object(raw)
		if err != nil {
			return err
		}
		if key.Kind.FormatForWrite != nil {
			obj = key.Kind.FormatForWrite(formatName(key, obj), obj)
		}
		formatted, err := dto.MarshalCanonical(obj)
		if err != nil {
			return err
		}
		path, _ := layout.InformationFile(key)
		if err := e.write(path, formatted); err != nil {
			return err
		}
	}

	if key.Kind.IsPolicy() && raw != nil {
		xml, err := dto.ExtractPolicyBody(raw)
		if err != nil {
			return err
		}
		path, _ := layout.PolicyFile(key)
		if err := e.write(path, []byte(xml)); err != nil {
			return err
		}
	}

	if key.Kind.Revisioned && raw != nil {
		if err := e.writeSpecification(ctx, key, raw); err != nil {
			return err
		}
	}
	return nil
}

// writeSpecification exports and persists an API's specification document.
// The format follows the API type: SOAP APIs export WSDL, GraphQL APIs their
// schema, everything else the configured default.
func (e *Extractor) writeSpecification(ctx context.Context, key resource.Key, raw []byte) error {
	var api dto.APIDTO
	if err := json.Unmarshal(raw, &api); err != nil {
		return &dto.SchemaError{Err: err}
	}

	spec := e.spec
	switch strings.ToLower(api.Properties.Type) {
	case "soap":
		spec = resource.ApiSpecification{Kind: resource.SpecWsdl}
	case "graphql":
		spec = resource.ApiSpecification{Kind: resource.SpecGraphQL}
	case "websocket":
		return nil
	}

	apiURI := e.client.URIs().Element(key)
	contents, ok, err := e.client.ExportSpecification(ctx, apiURI, spec)
	if err != nil {
		return errors.Wrapf(err, "%s %q", errExportSpec, key.String())
	}
	if !ok {
		return nil
	}
	path, _ := layout.SpecificationFile(key, spec)
	return e.write(path, contents)
}

// formatName is the name handed to a kind's write formatter. Link keys are
// named after the secondary resource; the formatter pins the link's own
// service-side name, which the normalised DTO still carries.
func formatName(key resource.Key, obj map[string]any) resource.Name {
	if key.Kind.IsLink() {
		if n, ok := obj["name"].(string); ok {
			if name, err := resource.NewName(n); err == nil {
				return name
			}
		}
	}
	return key.Name
}

func (e *Extractor) write(path string, contents []byte) error {
	native := filepath.FromSlash(path)
	if dir := filepath.Dir(native); dir != "." {
		if err := e.files.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "%s %q", errWriteArtifact, path)
		}
	}
	return errors.Wrapf(afero.WriteFile(e.files, native, contents, 0o644), "%s %q", errWriteArtifact, path)
}
