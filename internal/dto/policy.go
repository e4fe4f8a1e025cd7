// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import (
	"encoding/json"
)

// RawXMLFormat is the policy format used when publishing policy bodies.
const RawXMLFormat = "rawxml"

// ExtractPolicyBody returns the XML body carried in a policy envelope. The
// on-disk policy file is this exact content.
func ExtractPolicyBody(raw []byte) (string, error) {
	if !looksLikeObject(raw) {
		return "", &NotJSONObjectError{}
	}
	var envelope PolicyDTO
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", &SchemaError{Err: err}
	}
	if envelope.Properties.Value == "" {
		return "", &MissingPropertyError{Path: "properties.value"}
	}
	return envelope.Properties.Value, nil
}

// PolicyEnvelope reconstitutes the wire envelope for a policy body read from
// disk.
func PolicyEnvelope(xml string) map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"format": RawXMLFormat,
			"value":  xml,
		},
	}
}
