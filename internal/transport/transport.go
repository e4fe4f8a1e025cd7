// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package transport contains the HTTP transport chain used when talking to
// the API Management service.
package transport

import (
	"fmt"
	"net/http"

	"github.com/apiopslabs/apiops/internal/version"
)

// DefaultUserAgent is the User-Agent header set on every request.
var DefaultUserAgent = fmt.Sprintf("%s/%s", "apiops", version.Get())

// UserAgent wraps a RoundTripper and injects a user agent header.
type UserAgent struct {
	rt        http.RoundTripper
	userAgent string
}

// NewUserAgent constructs a new UserAgent transport.
func NewUserAgent(rt http.RoundTripper, userAgent string) *UserAgent {
	return &UserAgent{rt: rt, userAgent: userAgent}
}

// RoundTrip injects a User-Agent header into every request.
func (u *UserAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", u.userAgent)
	return u.rt.RoundTrip(req)
}

// APIVersion wraps a RoundTripper and pins the api-version query parameter
// on requests that do not carry one.
type APIVersion struct {
	rt         http.RoundTripper
	apiVersion string
}

// NewAPIVersion constructs a new APIVersion transport.
func NewAPIVersion(rt http.RoundTripper, apiVersion string) *APIVersion {
	return &APIVersion{rt: rt, apiVersion: apiVersion}
}

// RoundTrip injects the api-version query parameter.
func (a *APIVersion) RoundTrip(req *http.Request) (*http.Response, error) {
	q := req.URL.Query()
	if q.Get("api-version") == "" {
		q.Set("api-version", a.apiVersion)
		req.URL.RawQuery = q.Encode()
	}
	return a.rt.RoundTrip(req)
}

// Bearer wraps a RoundTripper and injects a bearer token.
type Bearer struct {
	rt    http.RoundTripper
	token string
}

// NewBearer constructs a new Bearer transport.
func NewBearer(rt http.RoundTripper, token string) *Bearer {
	return &Bearer{rt: rt, token: token}
}

// RoundTrip injects an Authorization header.
func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return b.rt.RoundTrip(req)
}
