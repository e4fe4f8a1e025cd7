// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import (
	"fmt"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// SchemaError indicates that a payload could not be round-tripped through a
// resource kind's typed schema.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("payload does not conform to schema: %s", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// MissingPropertyError indicates that a required property is absent from a
// payload. Path is the JSON path of the property, e.g. "properties.value".
type MissingPropertyError struct {
	Path string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("required property %q is missing", e.Path)
}

// NotJSONObjectError indicates that a payload is valid JSON but not an object.
type NotJSONObjectError struct{}

func (e *NotJSONObjectError) Error() string {
	return "payload is not a JSON object"
}

// IsMissingProperty returns true if err is a *MissingPropertyError.
func IsMissingProperty(err error) bool {
	var mpe *MissingPropertyError
	return errors.As(err, &mpe)
}
