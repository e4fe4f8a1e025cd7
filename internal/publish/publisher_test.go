// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/dto"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

// recorder is a fake service that records every request it sees.
type recorder struct {
	mu        sync.Mutex
	requests  []string
	bodies    map[string]string
	responses map[string]string
	statuses  map[string]int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	raw, _ := io.ReadAll(r.Body)
	rec.mu.Lock()
	rec.requests = append(rec.requests, key)
	if rec.bodies == nil {
		rec.bodies = map[string]string{}
	}
	rec.bodies[key] = string(raw)
	rec.mu.Unlock()

	if status, ok := rec.statuses[key]; ok {
		w.WriteHeader(status)
	}
	if body, ok := rec.responses[key]; ok {
		fmt.Fprint(w, body)
		return
	}
	fmt.Fprint(w, `{}`)
}

func (rec *recorder) seen(key string) bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, r := range rec.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (rec *recorder) index(key string) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, r := range rec.requests {
		if r == key {
			return i
		}
	}
	return -1
}

func (rec *recorder) body(key string) string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bodies[key]
}

func newFakeService(t *testing.T, rec *recorder) *apim.Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return apim.NewClient(srv.URL, "token")
}

func newGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(resource.DefaultRegistry())
	if err != nil {
		t.Fatalf("graph.New(...): %v", err)
	}
	return g
}

func emptyConfig() *config.Configuration {
	return config.New(func() ([]byte, error) { return nil, nil })
}

func snapshot(t *testing.T, files map[string]string) tree.FileOperations {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, contents := range files {
		if err := afero.WriteFile(fsys, filepath.FromSlash(path), []byte(contents), 0o644); err != nil {
			t.Fatalf("cannot seed file %q: %v", path, err)
		}
	}
	return tree.FilesystemOperations(fsys, "")
}

func TestRunPutsInDependencyOrder(t *testing.T) {
	rec := &recorder{
		statuses: map[string]int{"GET /apis/echo-api": http.StatusNotFound},
	}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"version sets/vs1/apiVersionSetInformation.json": `{"properties":{"displayName":"vs1"}}`,
		"apis/echo-api/apiInformation.json":              `{"properties":{"apiVersionSetId":"/apiVersionSets/vs1","path":"echo"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	vs := rec.index("PUT /apiVersionSets/vs1")
	api := rec.index("PUT /apis/echo-api")
	if vs < 0 || api < 0 {
		t.Fatalf("Run(): want both PUTs, got %v", rec.requests)
	}
	if vs > api {
		t.Errorf("Run(): version set must be put before the API that references it, got %v", rec.requests)
	}
}

func TestRunSkipsSecretNamedValue(t *testing.T) {
	rec := &recorder{}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"named values/nv1/namedValueInformation.json": `{"properties":{"displayName":"nv1","secret":true}}`,
		"named values/nv2/namedValueInformation.json": `{"properties":{"displayName":"nv2","secret":true,"keyVault":{"secretIdentifier":"https://kv.example.net/secrets/nv2"}}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if rec.seen("PUT /namedValues/nv1") {
		t.Errorf("Run(): secret named value without a value must not be put")
	}
	if !rec.seen("PUT /namedValues/nv2") {
		t.Errorf("Run(): named value with a Key Vault reference must be put")
	}
}

func TestRunNormalizesPayloads(t *testing.T) {
	rec := &recorder{
		statuses: map[string]int{"GET /apis/echo-api": http.StatusNotFound},
	}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"backends/b1/backendInformation.json": `{"properties":{"url":"https://b1.example.net","junk":true}}`,
		// A string where the schema wants an array; API payloads fall back
		// to the raw form instead of failing.
		"apis/echo-api/apiInformation.json": `{"properties":{"path":"echo","protocols":"https"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	body := rec.body("PUT /backends/b1")
	if body == "" {
		t.Fatalf("Run(): want the backend put, got %v", rec.requests)
	}
	if strings.Contains(body, "junk") {
		t.Errorf("Run(): unknown fields must not reach the service, got body %q", body)
	}
	if !strings.Contains(body, "https://b1.example.net") {
		t.Errorf("Run(): known fields must survive, got body %q", body)
	}

	if !strings.Contains(rec.body("PUT /apis/echo-api"), `"protocols":"https"`) {
		t.Errorf("Run(): API payloads keep their raw form on a schema mismatch, got body %q", rec.body("PUT /apis/echo-api"))
	}
}

func TestRunRejectsInvalidPayload(t *testing.T) {
	rec := &recorder{}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"diagnostics/applicationinsights/diagnosticInformation.json": `{"properties":{"verbosity":"information"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	err := p.Run(context.Background())
	if err == nil {
		t.Fatalf("Run(): want error for diagnostic without loggerId, got nil")
	}
	if !dto.IsMissingProperty(err) {
		t.Errorf("Run(): want missing-property error, got %v", err)
	}
	if rec.seen("PUT /diagnostics/applicationinsights") {
		t.Errorf("Run(): an invalid payload must never reach the service")
	}
}

func TestRunDiffDeletes(t *testing.T) {
	rec := &recorder{}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{})
	previous := snapshot(t, map[string]string{
		"backends/b1/backendInformation.json": `{"properties":{"url":"https://b1.example.net"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current,
		WithCommitScope(previous, nil, []string{"backends/b1/backendInformation.json"}))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if !rec.seen("DELETE /backends/b1") {
		t.Errorf("Run(): want DELETE of removed backend, got %v", rec.requests)
	}
}

func TestRunDeleteOrdersDependentsFirst(t *testing.T) {
	rec := &recorder{}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{})
	previous := snapshot(t, map[string]string{
		"products/starter/productInformation.json":                  `{"properties":{"displayName":"Starter"}}`,
		"products/starter/apis/echo-api/productApiInformation.json": `{"properties":{"apiId":"/apis/echo-api"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current,
		WithCommitScope(previous, nil, []string{
			"products/starter/productInformation.json",
			"products/starter/apis/echo-api/productApiInformation.json",
		}))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	link := rec.index("DELETE /products/starter/apiLinks/echo-api")
	product := rec.index("DELETE /products/starter")
	if link < 0 || product < 0 {
		t.Fatalf("Run(): want both DELETEs, got %v", rec.requests)
	}
	if link > product {
		t.Errorf("Run(): the link must be deleted before its product, got %v", rec.requests)
	}
}

func TestRunSkipsDeletingCurrentRevision(t *testing.T) {
	rec := &recorder{
		responses: map[string]string{
			"GET /apis/echo-api": `{"properties":{"apiRevision":"2"}}`,
		},
	}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{})
	previous := snapshot(t, map[string]string{
		"apis/echo-api;rev=2/apiInformation.json": `{"properties":{"apiRevision":"2"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current,
		WithCommitScope(previous, nil, []string{"apis/echo-api;rev=2/apiInformation.json"}))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if rec.seen("DELETE /apis/echo-api;rev=2") {
		t.Errorf("Run(): a revision that became current must not be deleted, got %v", rec.requests)
	}
}

func TestRunNewProductDeletesCompanions(t *testing.T) {
	rec := &recorder{
		statuses: map[string]int{"GET /products/starter": http.StatusNotFound},
		responses: map[string]string{
			"GET /subscriptions": `{"value":[
				{"name":"auto","properties":{"scope":"/subscriptions/s/resourceGroups/rg/providers/Microsoft.ApiManagement/service/svc/products/starter"}},
				{"name":"master","properties":{"scope":"/products/starter"}},
				{"name":"other","properties":{"scope":"/apis/echo-api"}}]}`,
			"GET /products/starter/groupLinks": `{"value":[{"name":"developers"}]}`,
		},
	}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"products/starter/productInformation.json": `{"properties":{"displayName":"Starter"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if !rec.seen("DELETE /subscriptions/auto") {
		t.Errorf("Run(): auto-created subscription must be deleted, got %v", rec.requests)
	}
	if rec.seen("DELETE /subscriptions/master") {
		t.Errorf("Run(): the master subscription is reserved and must survive")
	}
	if rec.seen("DELETE /subscriptions/other") {
		t.Errorf("Run(): subscriptions scoped elsewhere must survive")
	}
	if !rec.seen("DELETE /products/starter/groupLinks/developers") {
		t.Errorf("Run(): auto-created product group must be deleted, got %v", rec.requests)
	}
}

func TestRunCreatesRevisionAndFlipsCurrent(t *testing.T) {
	rec := &recorder{
		responses: map[string]string{
			"GET /apis/echo-api": `{"properties":{"apiRevision":"1"}}`,
		},
	}
	client := newFakeService(t, rec)
	current := snapshot(t, map[string]string{
		"apis/echo-api/apiInformation.json": `{"properties":{"apiRevision":"2","path":"echo"}}`,
	})

	p := New(client, newGraph(t), emptyConfig(), current)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if !rec.seen("PUT /apis/echo-api;rev=2") {
		t.Fatalf("Run(): want the new revision created, got %v", rec.requests)
	}
	var release string
	rec.mu.Lock()
	for _, r := range rec.requests {
		if name, ok := strings.CutPrefix(r, "PUT /apis/echo-api/releases/"); ok {
			release = name
		}
	}
	rec.mu.Unlock()
	if release == "" {
		t.Fatalf("Run(): want a one-shot release, got %v", rec.requests)
	}
	if !rec.seen("DELETE /apis/echo-api/releases/" + release) {
		t.Errorf("Run(): the one-shot release must be deleted, got %v", rec.requests)
	}

	rev := rec.index("PUT /apis/echo-api;rev=2")
	main := rec.index("PUT /apis/echo-api")
	if main >= 0 && rev > main {
		t.Errorf("Run(): the revision must be created before the main PUT, got %v", rec.requests)
	}
}
