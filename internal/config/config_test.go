// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/apiopslabs/apiops/internal/resource"
)

const configYAML = `
namedValues:
  - nv1
  - nv2:
      properties:
        value: overridden
apis:
  - echo-api:
      properties:
        serviceUrl: https://backend.example.net
        apiRevision: "9"
      apiOperations:
        - get
products:
  - starter
`

func fromYAML(doc string) *Configuration {
	return New(func() ([]byte, error) { return []byte(doc), nil })
}

func key(t *testing.T, singular, name string, parents ...string) resource.Key {
	t.Helper()
	r := resource.DefaultRegistry()
	kind, ok := r.Lookup(singular)
	if !ok {
		t.Fatalf("kind %q not registered", singular)
	}
	chain := resource.EmptyChain()
	ancestor := kind.TraversalPredecessor()
	var ancestors []*resource.Kind
	for a := ancestor; a != nil; a = a.TraversalPredecessor() {
		ancestors = append([]*resource.Kind{a}, ancestors...)
	}
	if len(ancestors) != len(parents) {
		t.Fatalf("kind %q needs %d parents, got %d", singular, len(ancestors), len(parents))
	}
	for i, p := range parents {
		chain = chain.Append(ancestors[i], resource.MustName(p))
	}
	return resource.NewKey(kind, resource.MustName(name), chain)
}

func TestIncludes(t *testing.T) {
	cfg := fromYAML(configYAML)
	ctx := context.Background()

	cases := map[string]struct {
		reason string
		key    resource.Key
		want   Decision
	}{
		"ListedBareString": {
			reason: "A bare string list item includes the resource.",
			key:    key(t, "namedValue", "nv1"),
			want:   Included,
		},
		"Unlisted": {
			reason: "A section that exists but omits the name excludes it.",
			key:    key(t, "namedValue", "nv3"),
			want:   Excluded,
		},
		"NoSection": {
			reason: "A kind with no section at its scope is unspecified.",
			key:    key(t, "backend", "b1"),
			want:   Unspecified,
		},
		"CaseInsensitive": {
			reason: "Names match case-insensitively.",
			key:    key(t, "product", "STARTER"),
			want:   Included,
		},
		"RevisionCollapses": {
			reason: "Revisioned API names match their root name's entry.",
			key:    key(t, "api", "echo-api;rev=3"),
			want:   Included,
		},
		"ChildOfConfiguredAPI": {
			reason: "Child sections nest under their parent's entry.",
			key:    key(t, "apiOperation", "get", "echo-api"),
			want:   Included,
		},
		"ChildOfUnconfiguredParent": {
			reason: "An ancestor without an entry makes the child unspecified.",
			key:    key(t, "apiOperation", "get", "other-api"),
			want:   Unspecified,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := cfg.Includes(ctx, tc.key)
			if err != nil {
				t.Fatalf("\n%s\nIncludes(%s): unexpected error: %v", tc.reason, tc.key.String(), err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("\n%s\nIncludes(%s): -want, +got:\n%s", tc.reason, tc.key.String(), diff)
			}
		})
	}
}

func TestIncludesListedMapping(t *testing.T) {
	cfg := fromYAML(configYAML)
	got, err := cfg.Includes(context.Background(), key(t, "namedValue", "nv2"))
	if err != nil {
		t.Fatalf("Includes(nv2): unexpected error: %v", err)
	}
	if got != Included {
		t.Errorf("Includes(nv2): want Included, got %v", got)
	}
}

func TestOverride(t *testing.T) {
	cfg := fromYAML(configYAML)
	ctx := context.Background()

	t.Run("MappingCarriesOverride", func(t *testing.T) {
		override, ok, err := cfg.Override(ctx, key(t, "namedValue", "nv2"))
		if err != nil || !ok {
			t.Fatalf("Override(nv2): want override, got ok=%t err=%v", ok, err)
		}
		want := map[string]any{"properties": map[string]any{"value": "overridden"}}
		if diff := cmp.Diff(want, override); diff != "" {
			t.Errorf("\nOverride(nv2): -want, +got:\n%s", diff)
		}
	})

	t.Run("BareStringHasNoOverride", func(t *testing.T) {
		_, ok, err := cfg.Override(ctx, key(t, "namedValue", "nv1"))
		if err != nil {
			t.Fatalf("Override(nv1): unexpected error: %v", err)
		}
		if ok {
			t.Errorf("Override(nv1): want no override, got one")
		}
	})

	t.Run("APIOverrideStripsChildSectionsAndRevisionIdentity", func(t *testing.T) {
		override, ok, err := cfg.Override(ctx, key(t, "api", "echo-api;rev=2"))
		if err != nil || !ok {
			t.Fatalf("Override(echo-api;rev=2): want override, got ok=%t err=%v", ok, err)
		}
		if _, found := override["apiOperations"]; found {
			t.Errorf("Override(...): child section apiOperations must be stripped")
		}
		props, _ := override["properties"].(map[string]any)
		if _, found := props["apiRevision"]; found {
			t.Errorf("Override(...): apiRevision must never be overridden")
		}
		if props["serviceUrl"] != "https://backend.example.net" {
			t.Errorf("Override(...): want serviceUrl preserved, got %v", props["serviceUrl"])
		}
	})
}

func TestEmptyConfiguration(t *testing.T) {
	cfg := New(func() ([]byte, error) { return nil, nil })
	got, err := cfg.Includes(context.Background(), key(t, "namedValue", "nv1"))
	if err != nil {
		t.Fatalf("Includes(...): unexpected error: %v", err)
	}
	if got != Unspecified {
		t.Errorf("Includes(...) on empty configuration: want Unspecified, got %v", got)
	}
}
