// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// revisionSeparator marks the revision suffix of an API name. A name without
// the suffix is the root name and denotes the current revision.
const revisionSeparator = ";rev="

// IsRootName reports whether an API name carries no revision suffix.
func IsRootName(n Name) bool {
	_, _, ok := ParseRevision(n)
	return !ok
}

// RootName strips the revision suffix from an API name, if present.
func RootName(n Name) Name {
	if root, _, ok := ParseRevision(n); ok {
		return root
	}
	return n
}

// ParseRevision splits an API name into its root name and revision number.
// It returns ok=false when the name has no valid ";rev=<positive int>" suffix.
func ParseRevision(n Name) (Name, int, bool) {
	s := n.String()
	i := strings.LastIndex(strings.ToLower(s), revisionSeparator)
	if i < 0 {
		return Name{}, 0, false
	}
	rev, err := strconv.Atoi(s[i+len(revisionSeparator):])
	if err != nil || rev < 1 {
		return Name{}, 0, false
	}
	root, err := NewName(s[:i])
	if err != nil {
		return Name{}, 0, false
	}
	return root, rev, true
}

// CombineRevision produces the revisioned name "root;rev=<rev>". rev must be
// at least 1.
func CombineRevision(root Name, rev int) (Name, error) {
	if rev < 1 {
		return Name{}, errors.Errorf("revision number must be positive, got %d", rev)
	}
	return NewName(fmt.Sprintf("%s%s%d", root.String(), revisionSeparator, rev))
}
