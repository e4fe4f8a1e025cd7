// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// SpecKind enumerates the API specification families.
type SpecKind int

// Specification families.
const (
	SpecGraphQL SpecKind = iota
	SpecWadl
	SpecWsdl
	SpecOpenAPI
)

// OpenAPI serialisation formats and versions.
const (
	OpenAPIJSON = "json"
	OpenAPIYAML = "yaml"
	OpenAPIV2   = "v2"
	OpenAPIV3   = "v3"
)

// ApiSpecification is the tagged variant describing an API's specification
// document. Format and Version are meaningful only for SpecOpenAPI.
type ApiSpecification struct {
	Kind    SpecKind
	Format  string
	Version string
}

// Extension returns the on-disk file extension of the specification.
func (s ApiSpecification) Extension() string {
	switch s.Kind {
	case SpecGraphQL:
		return "graphql"
	case SpecWadl:
		return "wadl"
	case SpecWsdl:
		return "wsdl"
	default:
		if s.Format == OpenAPIYAML {
			return "yaml"
		}
		return "json"
	}
}

// DefaultSpecification is OpenAPI v3 YAML, the format used when none is
// configured.
func DefaultSpecification() ApiSpecification {
	return ApiSpecification{Kind: SpecOpenAPI, Format: OpenAPIYAML, Version: OpenAPIV3}
}

// ParseSpecificationFormat maps the API_SPECIFICATION_FORMAT setting to a
// specification. The empty string yields the default.
func ParseSpecificationFormat(s string) (ApiSpecification, error) {
	switch s {
	case "":
		return DefaultSpecification(), nil
	case "Wadl":
		return ApiSpecification{Kind: SpecWadl}, nil
	case "JSON", "OpenApiV3Json":
		return ApiSpecification{Kind: SpecOpenAPI, Format: OpenAPIJSON, Version: OpenAPIV3}, nil
	case "YAML", "OpenApiV3Yaml":
		return DefaultSpecification(), nil
	case "OpenApiV2Json":
		return ApiSpecification{Kind: SpecOpenAPI, Format: OpenAPIJSON, Version: OpenAPIV2}, nil
	case "OpenApiV2Yaml":
		return ApiSpecification{Kind: SpecOpenAPI, Format: OpenAPIYAML, Version: OpenAPIV2}, nil
	default:
		return ApiSpecification{}, errors.Errorf("unknown API specification format %q", s)
	}
}

// SpecificationExtensions lists every extension a specification file may
// carry; exactly one extension exists per variant.
func SpecificationExtensions() []string {
	return []string{"graphql", "wsdl", "wadl", "json", "yaml"}
}
