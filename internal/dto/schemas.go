// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package dto defines the typed wire schemas of API Management resources and
// the transformations applied to them between the service and the filesystem.
package dto

// NamedValueDTO is the wire schema of a named value.
type NamedValueDTO struct {
	Properties NamedValueProperties `json:"properties"`
}

// NamedValueProperties are the properties of a named value.
type NamedValueProperties struct {
	DisplayName string              `json:"displayName,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	Secret      *bool               `json:"secret,omitempty"`
	Value       string              `json:"value,omitempty"`
	KeyVault    *KeyVaultContract   `json:"keyVault,omitempty"`
}

// KeyVaultContract points a named value at a key vault secret.
type KeyVaultContract struct {
	SecretIdentifier string `json:"secretIdentifier,omitempty"`
	IdentityClientID string `json:"identityClientId,omitempty"`
}

// GatewayDTO is the wire schema of a self-hosted gateway.
type GatewayDTO struct {
	Properties GatewayProperties `json:"properties"`
}

// GatewayProperties are the properties of a gateway.
type GatewayProperties struct {
	Description  string        `json:"description,omitempty"`
	LocationData *LocationData `json:"locationData,omitempty"`
}

// LocationData describes where a gateway runs.
type LocationData struct {
	Name            string `json:"name,omitempty"`
	City            string `json:"city,omitempty"`
	District        string `json:"district,omitempty"`
	CountryOrRegion string `json:"countryOrRegion,omitempty"`
}

// BackendDTO is the wire schema of a backend.
type BackendDTO struct {
	Properties BackendProperties `json:"properties"`
}

// BackendProperties are the properties of a backend.
type BackendProperties struct {
	URL         string `json:"url,omitempty"`
	Protocol    string `json:"protocol,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ResourceID  string `json:"resourceId,omitempty"`
}

// TagDTO is the wire schema of a tag.
type TagDTO struct {
	Properties TagProperties `json:"properties"`
}

// TagProperties are the properties of a tag.
type TagProperties struct {
	DisplayName string `json:"displayName,omitempty"`
}

// LoggerDTO is the wire schema of a logger.
type LoggerDTO struct {
	Properties LoggerProperties `json:"properties"`
}

// LoggerProperties are the properties of a logger.
type LoggerProperties struct {
	LoggerType  string            `json:"loggerType,omitempty"`
	Description string            `json:"description,omitempty"`
	IsBuffered  *bool             `json:"isBuffered,omitempty"`
	ResourceID  string            `json:"resourceId,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

// DiagnosticDTO is the wire schema of a diagnostic.
type DiagnosticDTO struct {
	Properties DiagnosticProperties `json:"properties"`
}

// DiagnosticProperties are the properties of a diagnostic.
type DiagnosticProperties struct {
	LoggerID                string            `json:"loggerId,omitempty"`
	AlwaysLog               string            `json:"alwaysLog,omitempty"`
	Verbosity               string            `json:"verbosity,omitempty"`
	LogClientIP             *bool             `json:"logClientIp,omitempty"`
	HTTPCorrelationProtocol string            `json:"httpCorrelationProtocol,omitempty"`
	Sampling                *SamplingSettings `json:"sampling,omitempty"`
}

func (d *DiagnosticDTO) validate() error {
	if d.Properties.LoggerID == "" {
		return &MissingPropertyError{Path: "properties.loggerId"}
	}
	return nil
}

// SamplingSettings configure diagnostic sampling.
type SamplingSettings struct {
	SamplingType string   `json:"samplingType,omitempty"`
	Percentage   *float64 `json:"percentage,omitempty"`
}

// PolicyDTO is the wire envelope of any policy resource.
type PolicyDTO struct {
	Properties PolicyProperties `json:"properties"`
}

// PolicyProperties carry the policy body and its format.
type PolicyProperties struct {
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
	Value       string `json:"value,omitempty"`
}

// VersionSetDTO is the wire schema of an API version set.
type VersionSetDTO struct {
	Properties VersionSetProperties `json:"properties"`
}

// VersionSetProperties are the properties of a version set.
type VersionSetProperties struct {
	DisplayName       string `json:"displayName,omitempty"`
	Description       string `json:"description,omitempty"`
	VersioningScheme  string `json:"versioningScheme,omitempty"`
	VersionQueryName  string `json:"versionQueryName,omitempty"`
	VersionHeaderName string `json:"versionHeaderName,omitempty"`
}

// APIDTO is the wire schema of an API.
type APIDTO struct {
	Properties APIProperties `json:"properties"`
}

// APIProperties are the properties of an API.
type APIProperties struct {
	DisplayName            string                `json:"displayName,omitempty"`
	Description            string                `json:"description,omitempty"`
	Path                   string                `json:"path,omitempty"`
	Protocols              []string              `json:"protocols,omitempty"`
	ServiceURL             string                `json:"serviceUrl,omitempty"`
	Type                   string                `json:"type,omitempty"`
	APIVersion             string                `json:"apiVersion,omitempty"`
	APIVersionDescription  string                `json:"apiVersionDescription,omitempty"`
	APIVersionSetID        string                `json:"apiVersionSetId,omitempty"`
	APIRevision            string                `json:"apiRevision,omitempty"`
	APIRevisionDescription string                `json:"apiRevisionDescription,omitempty"`
	IsCurrent              *bool                 `json:"isCurrent,omitempty"`
	SubscriptionRequired   *bool                 `json:"subscriptionRequired,omitempty"`
	SourceAPIID            string                `json:"sourceApiId,omitempty"`
	TermsOfServiceURL      string                `json:"termsOfServiceUrl,omitempty"`
	SubscriptionKeyNames   *SubscriptionKeyNames `json:"subscriptionKeyParameterNames,omitempty"`
}

// SubscriptionKeyNames name the header and query parameter carrying a
// subscription key.
type SubscriptionKeyNames struct {
	Header string `json:"header,omitempty"`
	Query  string `json:"query,omitempty"`
}

// APIReleaseDTO is the wire schema of an API release.
type APIReleaseDTO struct {
	Properties APIReleaseProperties `json:"properties"`
}

// APIReleaseProperties are the properties of an API release.
type APIReleaseProperties struct {
	APIID string `json:"apiId,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// GroupDTO is the wire schema of a group.
type GroupDTO struct {
	Properties GroupProperties `json:"properties"`
}

// GroupProperties are the properties of a group.
type GroupProperties struct {
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
}

// ProductDTO is the wire schema of a product.
type ProductDTO struct {
	Properties ProductProperties `json:"properties"`
}

// ProductProperties are the properties of a product.
type ProductProperties struct {
	DisplayName          string `json:"displayName,omitempty"`
	Description          string `json:"description,omitempty"`
	Terms                string `json:"terms,omitempty"`
	State                string `json:"state,omitempty"`
	SubscriptionRequired *bool  `json:"subscriptionRequired,omitempty"`
	ApprovalRequired     *bool  `json:"approvalRequired,omitempty"`
	SubscriptionsLimit   *int   `json:"subscriptionsLimit,omitempty"`
}

// SubscriptionDTO is the wire schema of a subscription.
type SubscriptionDTO struct {
	Properties SubscriptionProperties `json:"properties"`
}

// SubscriptionProperties are the properties of a subscription.
type SubscriptionProperties struct {
	DisplayName  string `json:"displayName,omitempty"`
	Scope        string `json:"scope,omitempty"`
	OwnerID      string `json:"ownerId,omitempty"`
	PrimaryKey   string `json:"primaryKey,omitempty"`
	SecondaryKey string `json:"secondaryKey,omitempty"`
	State        string `json:"state,omitempty"`
	AllowTracing *bool  `json:"allowTracing,omitempty"`
}

// WorkspaceDTO is the wire schema of a workspace.
type WorkspaceDTO struct {
	Properties WorkspaceProperties `json:"properties"`
}

// WorkspaceProperties are the properties of a workspace.
type WorkspaceProperties struct {
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourceLinkDTO is the shared wire shape of link resources. Exactly one of
// the properties is populated, matching the owning kind's link property.
type ResourceLinkDTO struct {
	Name       string                 `json:"name,omitempty"`
	Properties ResourceLinkProperties `json:"properties"`
}

// ResourceLinkProperties carry the absolute id of the linked resource.
type ResourceLinkProperties struct {
	APIID     string `json:"apiId,omitempty"`
	GroupID   string `json:"groupId,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

// LinkedID returns the linked resource id stored under the given link
// property, or the empty string.
func (l ResourceLinkDTO) LinkedID(property string) string {
	switch property {
	case "apiId":
		return l.Properties.APIID
	case "groupId":
		return l.Properties.GroupID
	case "productId":
		return l.Properties.ProductID
	default:
		return ""
	}
}

// AssociationDTO is the wire shape of name-only composite resources such as
// tag assignments.
type AssociationDTO struct {
	Name string `json:"name,omitempty"`
}
