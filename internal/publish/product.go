// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/resource"
)

const (
	errListCompanions   = "cannot list auto-created companions"
	errDeleteCompanions = "cannot delete auto-created companions"
)

// putProduct writes a product. Creating a product makes the service fabricate
// a subscription scoped to it and memberships in the built-in groups; when
// the product is new, those companions are removed so the service converges
// on what the snapshot declares.
func (p *Publisher) putProduct(ctx context.Context, key resource.Key, payload map[string]any) error {
	uri := p.client.URIs().Element(key)
	existed, err := p.client.Exists(ctx, uri)
	if err != nil {
		return err
	}
	if _, err := p.client.Put(ctx, uri, payload); err != nil {
		return err
	}
	if existed {
		return nil
	}

	if err := p.deleteAutoSubscriptions(ctx, key); err != nil {
		return errors.Wrap(err, errDeleteCompanions)
	}
	if key.Kind == p.kinds.product {
		return errors.Wrap(p.deleteAutoGroups(ctx, key), errDeleteCompanions)
	}
	return nil
}

// deleteAutoSubscriptions removes subscriptions the service created alongside
// the product: those whose scope points at the product, excluding reserved
// ones.
func (p *Publisher) deleteAutoSubscriptions(ctx context.Context, productKey resource.Key) error {
	subKind := p.kinds.subscription
	if productKey.Kind == p.kinds.workspaceProduct {
		subKind = p.kinds.workspaceSub
	}

	uri := p.client.URIs().Collection(subKind, productKey.Parents)
	items, err := p.client.GetCollection(ctx, uri)
	if err != nil {
		return errors.Wrap(err, errListCompanions)
	}
	for _, item := range items {
		var sub struct {
			Name       string `json:"name"`
			Properties struct {
				Scope string `json:"scope"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(item, &sub); err != nil {
			return errors.Wrap(err, errListCompanions)
		}
		name, err := resource.NewName(sub.Name)
		if err != nil || subKind.IsReserved(name) {
			continue
		}
		if !scopeTargetsProduct(sub.Properties.Scope, productKey.Name) {
			continue
		}
		p.log.Debug("Deleting auto-created subscription", "subscription", sub.Name, "product", productKey.String())
		opts := apim.DeleteOptions{IgnoreNotFound: true, WaitForCompletion: true}
		if err := p.client.Delete(ctx, uri+"/"+sub.Name, opts); err != nil {
			return err
		}
	}
	return nil
}

// scopeTargetsProduct reports whether a subscription scope id ends in
// .../products/<productName>.
func scopeTargetsProduct(scope string, product resource.Name) bool {
	segments := strings.Split(strings.Trim(scope, "/"), "/")
	if len(segments) < 2 {
		return false
	}
	return strings.EqualFold(segments[len(segments)-2], "products") &&
		strings.EqualFold(segments[len(segments)-1], product.String())
}

// deleteAutoGroups removes the group memberships the service attaches to a
// new product.
func (p *Publisher) deleteAutoGroups(ctx context.Context, productKey resource.Key) error {
	chain := productKey.Parents.Append(productKey.Kind, productKey.Name)
	uri := p.client.URIs().Collection(p.kinds.productGroup, chain)
	items, err := p.client.GetCollection(ctx, uri)
	if err != nil {
		return errors.Wrap(err, errListCompanions)
	}
	for _, item := range items {
		var link struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &link); err != nil {
			return errors.Wrap(err, errListCompanions)
		}
		p.log.Debug("Deleting auto-created product group", "group", link.Name, "product", productKey.String())
		opts := apim.DeleteOptions{IgnoreNotFound: true, WaitForCompletion: true}
		if err := p.client.Delete(ctx, uri+"/"+link.Name, opts); err != nil {
			return err
		}
	}
	return nil
}
