// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/relation"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

// fakeService answers every collection with an empty page unless a canned
// response is registered for the path.
func fakeService(t *testing.T, responses map[string]string) *apim.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := responses[r.URL.Path]; ok {
			fmt.Fprint(w, body)
			return
		}
		fmt.Fprint(w, `{"value":[]}`)
	}))
	t.Cleanup(srv.Close)
	return apim.NewClient(srv.URL, "token")
}

func emptyConfig() *config.Configuration {
	return config.New(func() ([]byte, error) { return nil, nil })
}

func configFromYAML(doc string) *config.Configuration {
	return config.New(func() ([]byte, error) { return []byte(doc), nil })
}

func newGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(resource.DefaultRegistry())
	if err != nil {
		t.Fatalf("graph.New(...): %v", err)
	}
	return g
}

func readFile(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	raw, err := afero.ReadFile(fsys, filepath.FromSlash(path))
	if err != nil {
		t.Fatalf("cannot read %q: %v", path, err)
	}
	return string(raw)
}

func TestRunWritesArtifacts(t *testing.T) {
	client := fakeService(t, map[string]string{
		"/namedValues":     `{"value":[{"name":"nv1","properties":{"displayName":"nv1","unknown":1}}]}`,
		"/policies":        `{"value":[{"name":"policy"}]}`,
		"/policies/policy": `{"properties":{"format":"rawxml","value":"<policies/>"}}`,
	})
	fsys := afero.NewMemMapFs()

	e := New(client, newGraph(t), emptyConfig(), fsys, "svc")
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	info := readFile(t, fsys, "svc/named values/nv1/namedValueInformation.json")
	if !strings.Contains(info, `"displayName": "nv1"`) {
		t.Errorf("information file: want displayName, got:\n%s", info)
	}
	if strings.Contains(info, "unknown") {
		t.Errorf("information file: unknown fields must be dropped, got:\n%s", info)
	}

	if got := readFile(t, fsys, "svc/policy.xml"); got != "<policies/>" {
		t.Errorf("service policy file: want <policies/>, got %q", got)
	}
}

func TestRunWritesLinksUnderSecondaryName(t *testing.T) {
	client := fakeService(t, map[string]string{
		"/products": `{"value":[{"name":"starter","properties":{"displayName":"Starter"}}]}`,
		"/products/starter/apiLinks": `{"value":[{"name":"link1","properties":` +
			`{"apiId":"/subscriptions/s/resourceGroups/rg/providers/Microsoft.ApiManagement/service/svc/apis/echo-api"}}]}`,
	})
	fsys := afero.NewMemMapFs()
	g := newGraph(t)

	e := New(client, g, emptyConfig(), fsys, "svc")
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	// The directory carries the linked API's name; the link's own name
	// survives inside the DTO, with the linked id in relative form.
	info := readFile(t, fsys, "svc/products/starter/apis/echo-api/productApiInformation.json")
	if !strings.Contains(info, `"name": "link1"`) {
		t.Errorf("link file: want the link's own name kept, got:\n%s", info)
	}
	if !strings.Contains(info, `"apiId": "/apis/echo-api"`) {
		t.Errorf("link file: want relative linked id, got:\n%s", info)
	}

	// The extracted tree must parse back for publishing.
	if _, err := relation.NewBuilder(g).Build(tree.FilesystemOperations(fsys, "svc")); err != nil {
		t.Errorf("Build(extracted tree): %v", err)
	}
}

func TestRunSkipsExcludedResources(t *testing.T) {
	client := fakeService(t, map[string]string{
		"/namedValues": `{"value":[{"name":"nv1","properties":{}},{"name":"nv2","properties":{}}]}`,
	})
	fsys := afero.NewMemMapFs()
	cfg := configFromYAML("namedValues:\n  - nv2\n")

	e := New(client, newGraph(t), cfg, fsys, "svc")
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if ok, _ := afero.Exists(fsys, filepath.FromSlash("svc/named values/nv1/namedValueInformation.json")); ok {
		t.Errorf("Run(): nv1 is excluded by configuration and must not be written")
	}
	if ok, _ := afero.Exists(fsys, filepath.FromSlash("svc/named values/nv2/namedValueInformation.json")); !ok {
		t.Errorf("Run(): nv2 is included and must be written")
	}
}

func TestRunSkipsReservedNames(t *testing.T) {
	client := fakeService(t, map[string]string{
		"/groups":        `{"value":[{"name":"administrators","properties":{}},{"name":"team","properties":{}}]}`,
		"/subscriptions": `{"value":[{"name":"master","properties":{}}]}`,
	})
	fsys := afero.NewMemMapFs()

	e := New(client, newGraph(t), emptyConfig(), fsys, "svc")
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if ok, _ := afero.Exists(fsys, filepath.FromSlash("svc/groups/administrators/groupInformation.json")); ok {
		t.Errorf("Run(): the administrators group is reserved and must not be written")
	}
	if ok, _ := afero.Exists(fsys, filepath.FromSlash("svc/subscriptions/master/subscriptionInformation.json")); ok {
		t.Errorf("Run(): the master subscription is reserved and must not be written")
	}
	if ok, _ := afero.Exists(fsys, filepath.FromSlash("svc/groups/team/groupInformation.json")); !ok {
		t.Errorf("Run(): the team group must be written")
	}
}

func TestRunSkipsUnsupportedKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/workspaces" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":"MethodNotAllowedInPricingTier"}}`)
			return
		}
		fmt.Fprint(w, `{"value":[]}`)
	}))
	t.Cleanup(srv.Close)
	client := apim.NewClient(srv.URL, "token")

	e := New(client, newGraph(t), emptyConfig(), afero.NewMemMapFs(), "svc")
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run(): unsupported kinds are skipped, not surfaced: %v", err)
	}
}
