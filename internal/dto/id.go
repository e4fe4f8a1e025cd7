// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import "strings"

// serviceMarker separates the ARM prefix of an API Management resource id
// from the service-scoped remainder. Matched case-insensitively.
const serviceMarker = "microsoft.apimanagement/service/"

// ToRelativeID rewrites an absolute API Management resource id to its
// service-relative form: everything up to and including the service name is
// dropped. Ids without the service marker pass through unchanged.
func ToRelativeID(id string) string {
	if id == "" {
		return ""
	}
	i := strings.Index(strings.ToLower(id), serviceMarker)
	if i < 0 {
		return id
	}
	rest := id[i+len(serviceMarker):]
	// Drop the service name segment that immediately follows the marker.
	if j := strings.Index(rest, "/"); j >= 0 {
		rest = rest[j+1:]
	} else {
		rest = ""
	}
	return "/" + rest
}

// LastSegment returns the final path segment of a resource id. Names are
// compared across the tree and the service by this segment.
func LastSegment(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
