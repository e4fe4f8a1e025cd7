// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"sync"

	"github.com/apiopslabs/apiops/internal/dto"
)

// Registry is the catalogue of resource kinds. It is built once per process
// and never mutated afterwards.
type Registry struct {
	kinds      []*Kind
	namedValue *Kind
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = buildRegistry()
	})
	return defaultRegistry
}

// Kinds returns all registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	return append([]*Kind{}, r.kinds...)
}

// NamedValue returns the non-workspace named value kind, the implicit
// dependency of every policy kind.
func (r *Registry) NamedValue() *Kind { return r.namedValue }

// Lookup returns the kind with the given singular noun.
func (r *Registry) Lookup(singular string) (*Kind, bool) {
	for _, k := range r.kinds {
		if k.Singular == singular {
			return k, true
		}
	}
	return nil, false
}

// DependenciesOf derives the dependency edges of a kind: its parent for
// child kinds, primary and secondary for composites, every referenced kind,
// and the named value kind for policies.
func (r *Registry) DependenciesOf(k *Kind) []*Kind {
	seen := map[*Kind]bool{}
	var deps []*Kind
	add := func(d *Kind) {
		if d != nil && d != k && !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}
	add(k.Parent)
	if k.Composite != nil {
		add(k.Composite.Primary)
		add(k.Composite.Secondary)
	}
	if k.References != nil {
		// Iterate the registry so the order is deterministic.
		for _, candidate := range r.kinds {
			if _, ok := k.References.Mandatory[candidate]; ok {
				add(candidate)
			}
		}
		for _, candidate := range r.kinds {
			if _, ok := k.References.Optional[candidate]; ok {
				add(candidate)
			}
		}
	}
	if k.IsPolicy() {
		add(r.namedValue)
	}
	return deps
}

// ReferencedKinds returns the kinds a reference property may point at,
// mandatory references first.
func (r *Registry) ReferencedKinds(k *Kind, property string) []*Kind {
	if k.References == nil {
		return nil
	}
	var out []*Kind
	for _, candidate := range r.kinds {
		if k.References.Mandatory[candidate] == property {
			out = append(out, candidate)
		}
	}
	for _, candidate := range r.kinds {
		if k.References.Optional[candidate] == property {
			out = append(out, candidate)
		}
	}
	return out
}

//nolint:maintidx // The registry is one long declarative table.
func buildRegistry() *Registry {
	namedValue := &Kind{
		Singular:          "namedValue",
		Plural:            "namedValues",
		CollectionURIPath: "namedValues",
		CollectionDir:     "named values",
		FileName:          "namedValueInformation.json",
		NewSchema:         func() any { return &dto.NamedValueDTO{} },
	}
	gateway := &Kind{
		Singular:          "gateway",
		Plural:            "gateways",
		CollectionURIPath: "gateways",
		CollectionDir:     "gateways",
		FileName:          "gatewayInformation.json",
		NewSchema:         func() any { return &dto.GatewayDTO{} },
	}
	backend := &Kind{
		Singular:          "backend",
		Plural:            "backends",
		CollectionURIPath: "backends",
		CollectionDir:     "backends",
		FileName:          "backendInformation.json",
		NewSchema:         func() any { return &dto.BackendDTO{} },
	}
	tag := &Kind{
		Singular:          "tag",
		Plural:            "tags",
		CollectionURIPath: "tags",
		CollectionDir:     "tags",
		FileName:          "tagInformation.json",
		NewSchema:         func() any { return &dto.TagDTO{} },
	}
	logger := &Kind{
		Singular:          "logger",
		Plural:            "loggers",
		CollectionURIPath: "loggers",
		CollectionDir:     "loggers",
		FileName:          "loggerInformation.json",
		NewSchema:         func() any { return &dto.LoggerDTO{} },
	}
	diagnostic := &Kind{
		Singular:          "diagnostic",
		Plural:            "diagnostics",
		CollectionURIPath: "diagnostics",
		CollectionDir:     "diagnostics",
		FileName:          "diagnosticInformation.json",
		NewSchema:         func() any { return &dto.DiagnosticDTO{} },
		References: &References{
			Mandatory: map[*Kind]string{logger: "loggerId"},
		},
	}
	policyFragment := &Kind{
		Singular:          "policyFragment",
		Plural:            "policyFragments",
		CollectionURIPath: "policyFragments",
		CollectionDir:     "policy fragments",
		FileName:          "policyFragmentInformation.json",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Policy:            &Policy{Scope: PolicyScopeFragment},
	}
	servicePolicy := &Kind{
		Singular:          "servicePolicy",
		Plural:            "policies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Policy:            &Policy{Scope: PolicyScopeService},
	}
	versionSet := &Kind{
		Singular:          "versionSet",
		Plural:            "versionSets",
		CollectionURIPath: "apiVersionSets",
		CollectionDir:     "version sets",
		FileName:          "apiVersionSetInformation.json",
		NewSchema:         func() any { return &dto.VersionSetDTO{} },
	}
	api := &Kind{
		Singular:          "api",
		Plural:            "apis",
		CollectionURIPath: "apis",
		CollectionDir:     "apis",
		FileName:          "apiInformation.json",
		NewSchema:         func() any { return &dto.APIDTO{} },
		Revisioned:        true,
		References: &References{
			Optional: map[*Kind]string{versionSet: "apiVersionSetId"},
		},
	}
	apiPolicy := &Kind{
		Singular:          "apiPolicy",
		Plural:            "apiPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            api,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	apiDiagnostic := &Kind{
		Singular:          "apiDiagnostic",
		Plural:            "apiDiagnostics",
		CollectionURIPath: "diagnostics",
		CollectionDir:     "diagnostics",
		FileName:          "apiDiagnosticInformation.json",
		NewSchema:         func() any { return &dto.DiagnosticDTO{} },
		Parent:            api,
		References: &References{
			Mandatory: map[*Kind]string{logger: "loggerId"},
		},
	}
	apiTag := &Kind{
		Singular:          "apiTag",
		Plural:            "apiTags",
		CollectionURIPath: "tags",
		CollectionDir:     "tags",
		FileName:          "apiTagInformation.json",
		NewSchema:         func() any { return &dto.AssociationDTO{} },
		Composite:         &Composite{Primary: api, Secondary: tag},
	}
	apiOperation := &Kind{
		Singular:          "apiOperation",
		Plural:            "apiOperations",
		CollectionURIPath: "operations",
		CollectionDir:     "operations",
		Parent:            api,
	}
	apiOperationPolicy := &Kind{
		Singular:          "apiOperationPolicy",
		Plural:            "apiOperationPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            apiOperation,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	apiRelease := &Kind{
		Singular:          "apiRelease",
		Plural:            "apiReleases",
		CollectionURIPath: "releases",
		CollectionDir:     "releases",
		FileName:          "apiReleaseInformation.json",
		NewSchema:         func() any { return &dto.APIReleaseDTO{} },
		Parent:            api,
	}
	group := &Kind{
		Singular:          "group",
		Plural:            "groups",
		CollectionURIPath: "groups",
		CollectionDir:     "groups",
		FileName:          "groupInformation.json",
		NewSchema:         func() any { return &dto.GroupDTO{} },
		ReservedNames:     []string{"administrators", "developers", "guests"},
	}
	gatewayAPI := &Kind{
		Singular:          "gatewayApi",
		Plural:            "gatewayApis",
		CollectionURIPath: "apiLinks",
		CollectionDir:     "apis",
		FileName:          "gatewayApiInformation.json",
		NewSchema:         func() any { return &dto.ResourceLinkDTO{} },
		Composite:         &Composite{Primary: gateway, Secondary: api, LinkProperty: "apiId"},
	}
	product := &Kind{
		Singular:          "product",
		Plural:            "products",
		CollectionURIPath: "products",
		CollectionDir:     "products",
		FileName:          "productInformation.json",
		NewSchema:         func() any { return &dto.ProductDTO{} },
	}
	productPolicy := &Kind{
		Singular:          "productPolicy",
		Plural:            "productPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            product,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	productGroup := &Kind{
		Singular:          "productGroup",
		Plural:            "productGroups",
		CollectionURIPath: "groupLinks",
		CollectionDir:     "groups",
		FileName:          "productGroupInformation.json",
		NewSchema:         func() any { return &dto.ResourceLinkDTO{} },
		Composite:         &Composite{Primary: product, Secondary: group, LinkProperty: "groupId"},
	}
	productTag := &Kind{
		Singular:          "productTag",
		Plural:            "productTags",
		CollectionURIPath: "tags",
		CollectionDir:     "tags",
		FileName:          "productTagInformation.json",
		NewSchema:         func() any { return &dto.AssociationDTO{} },
		Composite:         &Composite{Primary: product, Secondary: tag},
	}
	productAPI := &Kind{
		Singular:          "productApi",
		Plural:            "productApis",
		CollectionURIPath: "apiLinks",
		CollectionDir:     "apis",
		FileName:          "productApiInformation.json",
		NewSchema:         func() any { return &dto.ResourceLinkDTO{} },
		Composite:         &Composite{Primary: product, Secondary: api, LinkProperty: "apiId"},
	}
	subscription := &Kind{
		Singular:          "subscription",
		Plural:            "subscriptions",
		CollectionURIPath: "subscriptions",
		CollectionDir:     "subscriptions",
		FileName:          "subscriptionInformation.json",
		NewSchema:         func() any { return &dto.SubscriptionDTO{} },
		ReservedNames:     []string{"master"},
		References: &References{
			Optional: map[*Kind]string{product: "scope", api: "scope"},
		},
	}
	workspace := &Kind{
		Singular:          "workspace",
		Plural:            "workspaces",
		CollectionURIPath: "workspaces",
		CollectionDir:     "workspaces",
		FileName:          "workspaceInformation.json",
		NewSchema:         func() any { return &dto.WorkspaceDTO{} },
	}

	workspaceNamedValue := &Kind{
		Singular:          "workspaceNamedValue",
		Plural:            "namedValues",
		CollectionURIPath: "namedValues",
		CollectionDir:     "named values",
		FileName:          "namedValueInformation.json",
		NewSchema:         func() any { return &dto.NamedValueDTO{} },
		Parent:            workspace,
	}
	workspaceBackend := &Kind{
		Singular:          "workspaceBackend",
		Plural:            "backends",
		CollectionURIPath: "backends",
		CollectionDir:     "backends",
		FileName:          "backendInformation.json",
		NewSchema:         func() any { return &dto.BackendDTO{} },
		Parent:            workspace,
	}
	workspaceTag := &Kind{
		Singular:          "workspaceTag",
		Plural:            "tags",
		CollectionURIPath: "tags",
		CollectionDir:     "tags",
		FileName:          "tagInformation.json",
		NewSchema:         func() any { return &dto.TagDTO{} },
		Parent:            workspace,
	}
	workspaceVersionSet := &Kind{
		Singular:          "workspaceVersionSet",
		Plural:            "versionSets",
		CollectionURIPath: "apiVersionSets",
		CollectionDir:     "version sets",
		FileName:          "apiVersionSetInformation.json",
		NewSchema:         func() any { return &dto.VersionSetDTO{} },
		Parent:            workspace,
	}
	workspacePolicyFragment := &Kind{
		Singular:          "workspacePolicyFragment",
		Plural:            "policyFragments",
		CollectionURIPath: "policyFragments",
		CollectionDir:     "policy fragments",
		FileName:          "policyFragmentInformation.json",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            workspace,
		Policy:            &Policy{Scope: PolicyScopeFragment},
	}
	workspacePolicy := &Kind{
		Singular:          "workspacePolicy",
		Plural:            "policies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            workspace,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	workspaceGroup := &Kind{
		Singular:          "workspaceGroup",
		Plural:            "groups",
		CollectionURIPath: "groups",
		CollectionDir:     "groups",
		FileName:          "groupInformation.json",
		NewSchema:         func() any { return &dto.GroupDTO{} },
		Parent:            workspace,
		ReservedNames:     []string{"administrators", "developers", "guests"},
	}
	workspaceAPI := &Kind{
		Singular:          "workspaceApi",
		Plural:            "apis",
		CollectionURIPath: "apis",
		CollectionDir:     "apis",
		FileName:          "apiInformation.json",
		NewSchema:         func() any { return &dto.APIDTO{} },
		Parent:            workspace,
		Revisioned:        true,
		References: &References{
			Optional: map[*Kind]string{workspaceVersionSet: "apiVersionSetId"},
		},
	}
	workspaceAPIPolicy := &Kind{
		Singular:          "workspaceApiPolicy",
		Plural:            "apiPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            workspaceAPI,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	workspaceAPIOperation := &Kind{
		Singular:          "workspaceApiOperation",
		Plural:            "apiOperations",
		CollectionURIPath: "operations",
		CollectionDir:     "operations",
		Parent:            workspaceAPI,
	}
	workspaceAPIOperationPolicy := &Kind{
		Singular:          "workspaceApiOperationPolicy",
		Plural:            "apiOperationPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            workspaceAPIOperation,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	workspaceAPIRelease := &Kind{
		Singular:          "workspaceApiRelease",
		Plural:            "apiReleases",
		CollectionURIPath: "releases",
		CollectionDir:     "releases",
		FileName:          "apiReleaseInformation.json",
		NewSchema:         func() any { return &dto.APIReleaseDTO{} },
		Parent:            workspaceAPI,
	}
	workspaceProduct := &Kind{
		Singular:          "workspaceProduct",
		Plural:            "products",
		CollectionURIPath: "products",
		CollectionDir:     "products",
		FileName:          "productInformation.json",
		NewSchema:         func() any { return &dto.ProductDTO{} },
		Parent:            workspace,
	}
	workspaceProductPolicy := &Kind{
		Singular:          "workspaceProductPolicy",
		Plural:            "productPolicies",
		CollectionURIPath: "policies",
		NewSchema:         func() any { return &dto.PolicyDTO{} },
		Parent:            workspaceProduct,
		Policy:            &Policy{Scope: PolicyScopeParent},
	}
	workspaceProductAPI := &Kind{
		Singular:          "workspaceProductApi",
		Plural:            "productApis",
		CollectionURIPath: "apiLinks",
		CollectionDir:     "apis",
		FileName:          "productApiInformation.json",
		NewSchema:         func() any { return &dto.ResourceLinkDTO{} },
		Composite:         &Composite{Primary: workspaceProduct, Secondary: workspaceAPI, LinkProperty: "apiId"},
	}
	workspaceSubscription := &Kind{
		Singular:          "workspaceSubscription",
		Plural:            "subscriptions",
		CollectionURIPath: "subscriptions",
		CollectionDir:     "subscriptions",
		FileName:          "subscriptionInformation.json",
		NewSchema:         func() any { return &dto.SubscriptionDTO{} },
		Parent:            workspace,
		ReservedNames:     []string{"master"},
		References: &References{
			Optional: map[*Kind]string{workspaceProduct: "scope", workspaceAPI: "scope"},
		},
	}

	kinds := []*Kind{
		namedValue, gateway, backend, tag, logger, diagnostic,
		policyFragment, servicePolicy, versionSet, api, apiPolicy,
		apiDiagnostic, apiTag, apiOperation, apiOperationPolicy,
		apiRelease, group, gatewayAPI, product, productPolicy,
		productGroup, productTag, productAPI, subscription, workspace,
		workspaceNamedValue, workspaceBackend, workspaceTag,
		workspaceVersionSet, workspacePolicyFragment, workspacePolicy,
		workspaceGroup, workspaceAPI, workspaceAPIPolicy,
		workspaceAPIOperation, workspaceAPIOperationPolicy,
		workspaceAPIRelease, workspaceProduct, workspaceProductPolicy,
		workspaceProductAPI, workspaceSubscription,
	}

	registerWriteFormatters(kinds)

	return &Registry{kinds: kinds, namedValue: namedValue}
}

// registerWriteFormatters wires the per-kind payload reshapes applied before
// information files are persisted.
func registerWriteFormatters(kinds []*Kind) {
	for _, k := range kinds {
		switch {
		case k.IsLink():
			prop := k.Composite.LinkProperty
			k.FormatForWrite = func(name Name, obj map[string]any) map[string]any {
				return dto.FormatLink(name.String(), prop, obj)
			}
		case k.IsPolicy() && k.Policy.Scope == PolicyScopeFragment:
			k.FormatForWrite = func(_ Name, obj map[string]any) map[string]any {
				return dto.FormatPolicyFragment(obj)
			}
		case k.Revisioned:
			props := k.ReferenceProperties()
			k.FormatForWrite = func(_ Name, obj map[string]any) map[string]any {
				return dto.FormatAPI(dto.FormatReferences(props, obj))
			}
		case k.References != nil:
			props := k.ReferenceProperties()
			k.FormatForWrite = func(_ Name, obj map[string]any) map[string]any {
				return dto.FormatReferences(props, obj)
			}
		}
	}
}
