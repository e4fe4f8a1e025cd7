// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package resource models API Management resources: names, parent chains,
// keys, and the registry of resource kinds with their capability facets.
package resource

import (
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

const errEmptyName = "resource name cannot be empty or whitespace"

// Name is the name of an API Management resource. Names preserve their
// original casing but compare and hash case-insensitively.
type Name struct {
	value string
}

// NewName returns a Name, rejecting empty and whitespace-only values.
func NewName(s string) (Name, error) {
	if strings.TrimSpace(s) == "" {
		return Name{}, errors.New(errEmptyName)
	}
	return Name{value: s}, nil
}

// MustName returns a Name or panics. For statically known names only.
func MustName(s string) Name {
	n, err := NewName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// String returns the name with its original casing.
func (n Name) String() string { return n.value }

// IsZero reports whether the name is the zero value.
func (n Name) IsZero() bool { return n.value == "" }

// Equal compares names case-insensitively.
func (n Name) Equal(o Name) bool { return strings.EqualFold(n.value, o.value) }

// fold is the case-insensitive hashing form of the name.
func (n Name) fold() string { return strings.ToLower(n.value) }
