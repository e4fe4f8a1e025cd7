// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import "strings"

// Properties returns the "properties" object of a payload, creating it if
// absent.
func Properties(obj map[string]any) map[string]any {
	if p, ok := obj["properties"].(map[string]any); ok {
		return p
	}
	p := map[string]any{}
	obj["properties"] = p
	return p
}

// FormatLink prepares a link resource payload for writing to disk: the linked
// resource id is rewritten to its relative form and the top-level name is
// pinned to the link's name.
func FormatLink(name, linkProperty string, obj map[string]any) map[string]any {
	p := Properties(obj)
	if id, ok := p[linkProperty].(string); ok {
		p[linkProperty] = ToRelativeID(id)
	}
	obj["name"] = name
	return obj
}

// FormatReferences rewrites every reference property present in the payload
// to its relative id form.
func FormatReferences(properties []string, obj map[string]any) map[string]any {
	p := Properties(obj)
	for _, prop := range properties {
		if id, ok := p[prop].(string); ok {
			p[prop] = ToRelativeID(id)
		}
	}
	return obj
}

// FormatPolicyFragment removes the policy body and format from a policy
// fragment payload; the XML lives in a side file.
func FormatPolicyFragment(obj map[string]any) map[string]any {
	p := Properties(obj)
	delete(p, "format")
	delete(p, "value")
	return obj
}

// FormatAPI drops the service URL from an API payload unless the API type
// requires it (websocket and graphql APIs proxy through it).
func FormatAPI(obj map[string]any) map[string]any {
	p := Properties(obj)
	t, _ := p["type"].(string)
	switch strings.ToLower(t) {
	case "websocket", "graphql":
	default:
		delete(p, "serviceUrl")
	}
	return obj
}
