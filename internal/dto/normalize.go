// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import (
	"bytes"
	"encoding/json"
	"strings"
)

type validator interface {
	validate() error
}

// Normalize round-trips raw JSON through the supplied typed schema. Unknown
// fields are dropped, defaulted fields are omitted, and string values keep
// their characters unescaped so inline XML survives intact. schema must be a
// pointer to a fresh schema value.
func Normalize(raw []byte, schema any) ([]byte, error) {
	if !looksLikeObject(raw) {
		return nil, &NotJSONObjectError{}
	}
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, &SchemaError{Err: err}
	}
	if v, ok := schema.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return MarshalCanonical(schema)
}

// MarshalCanonical serialises a value as indented JSON without HTML escaping.
// This is the canonical information-file form.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, &SchemaError{Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Object decodes raw JSON into a generic object.
func Object(raw []byte) (map[string]any, error) {
	if !looksLikeObject(raw) {
		return nil, &NotJSONObjectError{}
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &SchemaError{Err: err}
	}
	return obj, nil
}

func looksLikeObject(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "{")
}
