// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package apim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/apiopslabs/apiops/internal/resource"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token"), srv
}

func TestRequestDecoration(t *testing.T) {
	var gotAuth, gotVersion string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.URL.Query().Get("api-version")
		fmt.Fprint(w, `{}`)
	}))

	if _, err := client.Get(context.Background(), client.URIs().Base+"/apis"); err != nil {
		t.Fatalf("Get(...): %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Get(...): want bearer token header, got %q", gotAuth)
	}
	if gotVersion != DefaultAPIVersion {
		t.Errorf("Get(...): want api-version %q, got %q", DefaultAPIVersion, gotVersion)
	}
}

func TestGetOptional(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, ok, err := client.GetOptional(context.Background(), client.URIs().Base+"/apis/missing")
	if err != nil {
		t.Fatalf("GetOptional(...): unexpected error: %v", err)
	}
	if ok {
		t.Errorf("GetOptional(...): want ok=false on 404, got true")
	}
}

func TestGetCollectionPagination(t *testing.T) {
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/apis", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"value":[{"name":"a1"},{"name":"a2"}],"nextLink":"%s/apis-page2"}`, base)
	})
	mux.HandleFunc("/apis-page2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value":[{"name":"a3"}]}`)
	})
	client, srv := newTestClient(t, mux)
	base = srv.URL

	items, err := client.GetCollection(context.Background(), client.URIs().Base+"/apis")
	if err != nil {
		t.Fatalf("GetCollection(...): %v", err)
	}
	var names []string
	for _, item := range items {
		var v struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &v); err != nil {
			t.Fatalf("cannot decode item: %v", err)
		}
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"a1", "a2", "a3"}, names); diff != "" {
		t.Errorf("\nGetCollection(...): -want, +got:\n%s", diff)
	}
}

func TestPutAwaitsCompletion(t *testing.T) {
	var polls atomic.Int32
	var base string
	mux := http.NewServeMux()
	mux.HandleFunc("/apis/echo-api", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", base+"/operations/op1")
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/op1", func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	client, srv := newTestClient(t, mux)
	base = srv.URL

	if _, err := client.Put(context.Background(), client.URIs().Base+"/apis/echo-api", map[string]any{}); err != nil {
		t.Fatalf("Put(...): %v", err)
	}
	if polls.Load() != 1 {
		t.Errorf("Put(...): want the operation polled once, got %d", polls.Load())
	}
}

func TestDeleteIgnoresNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	err := client.Delete(context.Background(), client.URIs().Base+"/apis/missing", DeleteOptions{IgnoreNotFound: true})
	if err != nil {
		t.Errorf("Delete(..., IgnoreNotFound): unexpected error: %v", err)
	}
	err = client.Delete(context.Background(), client.URIs().Base+"/apis/missing", DeleteOptions{})
	if !IsNotFound(err) {
		t.Errorf("Delete(...): want 404 error, got %v", err)
	}
}

func TestProbeCollection(t *testing.T) {
	cases := map[string]struct {
		reason string
		status int
		body   string
		want   bool
	}{
		"Supported": {
			reason: "A 200 means the collection is available.",
			status: http.StatusOK,
			body:   `{"value":[]}`,
			want:   true,
		},
		"PricingTier": {
			reason: "A 400 naming the pricing tier is classified, not surfaced.",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"MethodNotAllowedInPricingTier"}}`,
			want:   false,
		},
		"InternalError": {
			reason: "The 500 fingerprint some collections emit is classified too.",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"Request processing failed due to internal error."}}`,
			want:   false,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			kind, _ := resource.DefaultRegistry().Lookup("workspace")
			got, err := client.ProbeCollection(context.Background(), kind)
			if err != nil {
				t.Fatalf("\n%s\nProbeCollection(...): unexpected error: %v", tc.reason, err)
			}
			if got != tc.want {
				t.Errorf("\n%s\nProbeCollection(...): want %t, got %t", tc.reason, tc.want, got)
			}
		})
	}
}

func TestIsSKUUnsupported(t *testing.T) {
	if IsSKUUnsupported(&Error{StatusCode: http.StatusBadRequest, Body: "some other validation error"}) {
		t.Errorf("IsSKUUnsupported(400 without fingerprint): want false")
	}
	if IsSKUUnsupported(&Error{StatusCode: http.StatusNotFound, Body: "MethodNotAllowedInPricingTier"}) {
		t.Errorf("IsSKUUnsupported(404): want false")
	}
}
