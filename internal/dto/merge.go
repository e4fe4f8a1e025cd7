// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import (
	"encoding/json"

	"dario.cat/mergo"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

const errMergeOverride = "cannot merge override into payload"

// Merge recursively merges override into base, override winning on overlap.
// Neither input is mutated.
func Merge(base, override map[string]any) (map[string]any, error) {
	dst, err := deepCopy(base)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&dst, override, mergo.WithOverride); err != nil {
		return nil, errors.Wrap(err, errMergeOverride)
	}
	return dst, nil
}

func deepCopy(obj map[string]any) (map[string]any, error) {
	if obj == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &SchemaError{Err: err}
	}
	return out, nil
}
