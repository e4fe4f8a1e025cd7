// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package version exposes the build version.
package version

// version is injected at build time via ldflags.
var version string

// Get returns the build version string.
func Get() string {
	if version == "" {
		return "unreleased"
	}
	return version
}
