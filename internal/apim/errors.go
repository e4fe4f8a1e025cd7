// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package apim

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// Error is a non-2xx response from the service.
type Error struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("service returned %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// AsError extracts a service *Error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	ok := errors.As(err, &se)
	return se, ok
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	se, ok := AsError(err)
	return ok && se.StatusCode == http.StatusNotFound
}

// Error fingerprints of collections the service's pricing tier does not
// support.
const (
	pricingTierFingerprint   = "methodnotallowedinpricingtier"
	internalErrorFingerprint = "request processing failed due to internal error"
)

// IsSKUUnsupported reports whether err identifies a collection the service's
// SKU does not support. Two fingerprints are recognised: a 400 naming the
// pricing tier, and a 500 the service emits for some unsupported collections.
func IsSKUUnsupported(err error) bool {
	se, ok := AsError(err)
	if !ok {
		return false
	}
	body := strings.ToLower(se.Body)
	switch se.StatusCode {
	case http.StatusBadRequest:
		return strings.Contains(body, pricingTierFingerprint)
	case http.StatusInternalServerError:
		return strings.Contains(body, internalErrorFingerprint)
	default:
		return false
	}
}
