// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/google/uuid"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/resource"
)

const (
	errCreateRevision = "cannot create API revision"
	errMakeCurrent    = "cannot make API revision current"
	errImportSpec     = "cannot import API specification"

	// makeCurrentReleasePrefix names the one-shot release that flips the
	// current revision of an API. The release is deleted right after.
	makeCurrentReleasePrefix = "apiops-set-current-"
)

// revisionState is the cached answer to "which revision is current for this
// root API on the service".
type revisionState struct {
	exists   bool
	revision string
}

// currentRevision returns the on-service current revision of a root API,
// memoised per root so concurrent deletes of sibling revisions probe once.
func (p *Publisher) currentRevision(ctx context.Context, rootKey resource.Key) (revisionState, error) {
	uri := p.client.URIs().Element(rootKey)
	return p.revisions.Do(ctx, strings.ToLower(uri), func(ctx context.Context) (revisionState, error) {
		raw, ok, err := p.client.GetOptional(ctx, uri)
		if err != nil || !ok {
			return revisionState{}, err
		}
		var api dto.APIDTO
		if err := json.Unmarshal(raw, &api); err != nil {
			return revisionState{}, &dto.SchemaError{Err: err}
		}
		return revisionState{exists: true, revision: api.Properties.APIRevision}, nil
	})
}

// revisionBecameCurrent reports whether a "deleted" revisioned API folder
// actually represents the revision that is now current on the service, in
// which case the delete must be skipped.
func (p *Publisher) revisionBecameCurrent(ctx context.Context, key resource.Key) (bool, error) {
	root, rev, ok := resource.ParseRevision(key.Name)
	if !ok {
		return false, nil
	}
	state, err := p.currentRevision(ctx, resource.NewKey(key.Kind, root, key.Parents))
	if err != nil || !state.exists {
		return false, err
	}
	current, err := strconv.Atoi(state.revision)
	if err != nil {
		return false, nil
	}
	return current == rev, nil
}

// putAPI writes an API, handling the revision dance: when a root API already
// exists on the service with a different current revision than the payload
// declares, the new revision is created first and flipped to current through
// a one-shot release.
func (p *Publisher) putAPI(ctx context.Context, key resource.Key, payload map[string]any) error {
	props := dto.Properties(payload)
	newRevision, _ := props["apiRevision"].(string)

	var existing *dto.APIDTO
	if resource.IsRootName(key.Name) {
		raw, ok, err := p.client.GetOptional(ctx, p.client.URIs().Element(key))
		if err != nil {
			return err
		}
		if ok {
			existing = &dto.APIDTO{}
			if err := json.Unmarshal(raw, existing); err != nil {
				return &dto.SchemaError{Err: err}
			}
		}
	}

	if existing != nil && newRevision != "" && existing.Properties.APIRevision != newRevision {
		if err := p.makeRevisionCurrent(ctx, key, newRevision); err != nil {
			return err
		}
	}

	// The service rejects PUTs that change an existing API's type; carry
	// the current one forward when the payload omits it.
	if key.Kind == p.kinds.workspaceAPI && existing != nil {
		if _, ok := props["type"]; !ok && existing.Properties.Type != "" {
			props["type"] = existing.Properties.Type
			payload["properties"] = props
		}
	}

	if _, err := p.client.Put(ctx, p.client.URIs().Element(key), payload); err != nil {
		return err
	}
	return p.putSpecification(ctx, key)
}

// makeRevisionCurrent creates revision newRevision of the root API and flips
// it to current: PUT the revision, create a one-shot release pointing at it,
// delete the release. The revision stays current after the release is gone.
func (p *Publisher) makeRevisionCurrent(ctx context.Context, rootKey resource.Key, newRevision string) error {
	rev, err := strconv.Atoi(newRevision)
	if err != nil {
		return errors.Wrapf(err, "invalid apiRevision %q", newRevision)
	}
	revisionedName, err := resource.CombineRevision(rootKey.Name, rev)
	if err != nil {
		return err
	}
	revisionedKey := resource.NewKey(rootKey.Kind, revisionedName, rootKey.Parents)

	p.log.Info("Creating API revision", "api", rootKey.String(), "revision", newRevision)
	body := map[string]any{
		"properties": map[string]any{
			"apiRevision": newRevision,
			"sourceApiId": relativeID(rootKey),
		},
	}
	if _, err := p.client.Put(ctx, p.client.URIs().Element(revisionedKey), body); err != nil {
		return errors.Wrap(err, errCreateRevision)
	}

	releaseKind := p.kinds.apiRelease
	if rootKey.Kind == p.kinds.workspaceAPI {
		releaseKind = p.kinds.workspaceAPIRelease
	}
	releaseName, err := resource.NewName(makeCurrentReleasePrefix + uuid.NewString()[:8])
	if err != nil {
		return err
	}
	releaseKey := resource.NewKey(releaseKind, releaseName, rootKey.Parents.Append(rootKey.Kind, rootKey.Name))

	release := map[string]any{
		"properties": map[string]any{
			"apiId": relativeID(revisionedKey),
		},
	}
	if _, err := p.client.Put(ctx, p.client.URIs().Element(releaseKey), release); err != nil {
		return errors.Wrap(err, errMakeCurrent)
	}
	err = p.client.Delete(ctx, p.client.URIs().Element(releaseKey), apim.DeleteOptions{
		IgnoreNotFound:    true,
		WaitForCompletion: true,
	})
	return errors.Wrap(err, errMakeCurrent)
}

// putSpecification uploads the API's on-disk specification document, if the
// snapshot carries one.
func (p *Publisher) putSpecification(ctx context.Context, key resource.Key) error {
	path, spec, ok, err := p.findSpecificationFile(key)
	if err != nil || !ok {
		return err
	}
	contents, err := p.current.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "%s %q", errImportSpec, path)
	}
	err = p.client.ImportSpecification(ctx, p.client.URIs().Element(key), spec, contents)
	return errors.Wrapf(err, "%s %q", errImportSpec, path)
}
