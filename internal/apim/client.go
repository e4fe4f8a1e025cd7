// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package apim is the REST client for the API Management service. It covers
// the handful of verbs the traversals need and classifies the errors the
// orchestrators dispatch on: 404s on optional reads and SKU-unsupported
// collection probes.
package apim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/apiopslabs/apiops/internal/layout"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/transport"
)

const (
	errBuildRequest = "cannot build request"
	errDoRequest    = "request failed"
	errReadBody     = "cannot read response body"
	errDecodePage   = "cannot decode collection page"
)

// DefaultAPIVersion is the service REST API version used when none is
// configured.
const DefaultAPIVersion = "2022-08-01"

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the client logger.
func WithLogger(log logging.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the authenticated HTTP client. Used in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithAPIVersion overrides the api-version query parameter.
func WithAPIVersion(v string) ClientOption {
	return func(c *Client) { c.apiVersion = v }
}

// Client talks to one API Management service instance.
type Client struct {
	http       *http.Client
	plain      *http.Client
	uris       layout.URIs
	apiVersion string
	log        logging.Logger
}

// NewClient builds a client for the service at serviceURI, authenticating
// with the given bearer token.
func NewClient(serviceURI, token string, opts ...ClientOption) *Client {
	c := &Client{
		uris:       layout.NewURIs(serviceURI),
		apiVersion: DefaultAPIVersion,
		plain:      http.DefaultClient,
		log:        logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		rt := http.RoundTripper(http.DefaultTransport)
		rt = transport.NewUserAgent(rt, transport.DefaultUserAgent)
		rt = transport.NewBearer(rt, token)
		rt = transport.NewAPIVersion(rt, c.apiVersion)
		c.http = &http.Client{Transport: rt}
	}
	return c
}

// URIs returns the URI builder for the client's service.
func (c *Client) URIs() layout.URIs { return c.uris }

func (c *Client) do(ctx context.Context, method, uri string, body []byte) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, errBuildRequest)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, errDoRequest)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful to do with a close error.
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, errReadBody)
	}
	if resp.StatusCode >= 400 {
		return nil, nil, &Error{StatusCode: resp.StatusCode, URL: uri, Body: string(payload)}
	}
	return resp, payload, nil
}

// Get fetches a resource.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	_, payload, err := c.do(ctx, http.MethodGet, uri, nil)
	return payload, err
}

// GetOptional fetches a resource, reporting ok=false on 404.
func (c *Client) GetOptional(ctx context.Context, uri string) ([]byte, bool, error) {
	payload, err := c.Get(ctx, uri)
	switch {
	case err == nil:
		return payload, true, nil
	case IsNotFound(err):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Exists reports whether a resource exists, treating 404 as false.
func (c *Client) Exists(ctx context.Context, uri string) (bool, error) {
	_, ok, err := c.GetOptional(ctx, uri)
	return ok, err
}

type collectionPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"nextLink"`
}

// GetCollection fetches every item of a paginated collection.
func (c *Client) GetCollection(ctx context.Context, uri string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	next := uri
	for next != "" {
		payload, err := c.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		var page collectionPage
		if err := json.Unmarshal(payload, &page); err != nil {
			return nil, errors.Wrap(err, errDecodePage)
		}
		items = append(items, page.Value...)
		next = page.NextLink
	}
	return items, nil
}

// Put writes a resource and waits for asynchronous completion.
func (c *Client) Put(ctx context.Context, uri string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errBuildRequest)
	}
	resp, payload, err := c.do(ctx, http.MethodPut, uri, raw)
	if err != nil {
		return nil, err
	}
	return payload, c.awaitCompletion(ctx, resp)
}

// Patch updates a resource in place.
func (c *Client) Patch(ctx context.Context, uri string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errBuildRequest)
	}
	resp, _, err := c.do(ctx, http.MethodPatch, uri, raw)
	if err != nil {
		return err
	}
	return c.awaitCompletion(ctx, resp)
}

// DeleteOptions tune Delete behaviour.
type DeleteOptions struct {
	IgnoreNotFound    bool
	WaitForCompletion bool
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, uri string, opts DeleteOptions) error {
	resp, _, err := c.do(ctx, http.MethodDelete, uri, nil)
	switch {
	case err == nil:
		if opts.WaitForCompletion {
			return c.awaitCompletion(ctx, resp)
		}
		return nil
	case opts.IgnoreNotFound && IsNotFound(err):
		return nil
	default:
		return err
	}
}

// awaitCompletion polls the Location header of a 202 response until the
// operation settles.
func (c *Client) awaitCompletion(ctx context.Context, resp *http.Response) error {
	for resp.StatusCode == http.StatusAccepted {
		location := resp.Header.Get("Location")
		if location == "" {
			return nil
		}
		if err := sleep(ctx, retryAfter(resp)); err != nil {
			return err
		}
		next, _, err := c.do(ctx, http.MethodGet, location, nil)
		if err != nil {
			return err
		}
		resp = next
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ProbeCollection checks whether the service supports a root kind's
// collection. SKU-unsupported responses are classified, not surfaced.
func (c *Client) ProbeCollection(ctx context.Context, kind *resource.Kind) (bool, error) {
	uri := c.uris.Collection(kind, resource.EmptyChain())
	_, err := c.Get(ctx, uri)
	switch {
	case err == nil:
		return true, nil
	case IsSKUUnsupported(err):
		return false, nil
	default:
		return false, err
	}
}

// Download fetches a URL with an unauthenticated client. Specification
// export links are pre-signed and reject extra credentials.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errBuildRequest)
	}
	resp, err := c.plain.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errDoRequest)
	}
	defer resp.Body.Close() //nolint:errcheck // Nothing useful to do with a close error.
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errReadBody)
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{StatusCode: resp.StatusCode, URL: url, Body: string(payload)}
	}
	return payload, nil
}
