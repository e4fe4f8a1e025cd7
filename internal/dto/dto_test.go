// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package dto

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	type args struct {
		raw    string
		schema any
	}
	type want struct {
		out string
		err bool
	}
	cases := map[string]struct {
		reason string
		args   args
		want   want
	}{
		"DropsUnknownFields": {
			reason: "Fields outside the schema are dropped.",
			args: args{
				raw:    `{"name":"nv1","properties":{"displayName":"nv1","bogus":true},"systemData":{}}`,
				schema: &NamedValueDTO{},
			},
			want: want{out: "{\n  \"properties\": {\n    \"displayName\": \"nv1\"\n  }\n}"},
		},
		"KeepsAngleBrackets": {
			reason: "Inline XML must not be HTML-escaped.",
			args: args{
				raw:    `{"name":"p","properties":{"value":"<policies/>"}}`,
				schema: &PolicyDTO{},
			},
			want: want{out: "{\n  \"properties\": {\n    \"value\": \"<policies/>\"\n  }\n}"},
		},
		"RejectsNonObject": {
			reason: "Arrays and scalars are not resource payloads.",
			args:   args{raw: `[1,2]`, schema: &TagDTO{}},
			want:   want{err: true},
		},
		"DiagnosticRequiresLogger": {
			reason: "Diagnostics without a loggerId fail validation.",
			args: args{
				raw:    `{"name":"d","properties":{}}`,
				schema: &DiagnosticDTO{},
			},
			want: want{err: true},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Normalize([]byte(tc.args.raw), tc.args.schema)
			if tc.want.err != (err != nil) {
				t.Fatalf("\n%s\nNormalize(...): want error %t, got %v", tc.reason, tc.want.err, err)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tc.want.out, string(got)); diff != "" {
				t.Errorf("\n%s\nNormalize(...): -want, +got:\n%s", tc.reason, diff)
			}
		})
	}
}

func TestToRelativeID(t *testing.T) {
	cases := map[string]struct {
		reason string
		id     string
		want   string
	}{
		"Absolute": {
			reason: "Everything up to and including the service name is dropped.",
			id:     "/subscriptions/s/resourceGroups/rg/providers/Microsoft.ApiManagement/service/svc/apis/echo-api",
			want:   "/apis/echo-api",
		},
		"AlreadyRelative": {
			reason: "Relative ids pass through unchanged.",
			id:     "/apis/echo-api",
			want:   "/apis/echo-api",
		},
		"Empty": {
			reason: "Empty ids stay empty.",
			id:     "",
			want:   "",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ToRelativeID(tc.id)); diff != "" {
				t.Errorf("\n%s\nToRelativeID(%q): -want, +got:\n%s", tc.reason, tc.id, diff)
			}
		})
	}
}

func TestFormatLink(t *testing.T) {
	obj := map[string]any{
		"name": "link-internal-name",
		"properties": map[string]any{
			"apiId": "/subscriptions/s/resourceGroups/rg/providers/Microsoft.ApiManagement/service/svc/apis/echo-api",
		},
	}
	got := FormatLink("echo-api", "apiId", obj)
	want := map[string]any{
		"name": "echo-api",
		"properties": map[string]any{
			"apiId": "/apis/echo-api",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("\nFormatLink(...): -want, +got:\n%s", diff)
	}
}

func TestFormatAPI(t *testing.T) {
	cases := map[string]struct {
		reason  string
		apiType string
		keepURL bool
	}{
		"HTTP":      {reason: "HTTP APIs drop the service URL.", apiType: "http"},
		"Untyped":   {reason: "Untyped APIs drop the service URL.", apiType: ""},
		"WebSocket": {reason: "WebSocket APIs keep the service URL.", apiType: "websocket", keepURL: true},
		"GraphQL":   {reason: "GraphQL APIs keep the service URL.", apiType: "graphql", keepURL: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			props := map[string]any{"serviceUrl": "https://backend.example.net"}
			if tc.apiType != "" {
				props["type"] = tc.apiType
			}
			got := FormatAPI(map[string]any{"properties": props})
			_, kept := Properties(got)["serviceUrl"]
			if kept != tc.keepURL {
				t.Errorf("\n%s\nFormatAPI(type=%q): serviceUrl kept %t, want %t", tc.reason, tc.apiType, kept, tc.keepURL)
			}
		})
	}
}

func TestExtractPolicyBody(t *testing.T) {
	xml, err := ExtractPolicyBody([]byte(`{"properties":{"format":"rawxml","value":"<policies/>"}}`))
	if err != nil {
		t.Fatalf("ExtractPolicyBody(...): unexpected error: %v", err)
	}
	if xml != "<policies/>" {
		t.Errorf("ExtractPolicyBody(...): want <policies/>, got %q", xml)
	}

	_, err = ExtractPolicyBody([]byte(`{"properties":{}}`))
	if !IsMissingProperty(err) {
		t.Errorf("ExtractPolicyBody(no value): want MissingPropertyError, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	base := map[string]any{
		"properties": map[string]any{
			"displayName": "original",
			"secret":      true,
		},
	}
	override := map[string]any{
		"properties": map[string]any{
			"displayName": "overridden",
		},
	}
	got, err := Merge(base, override)
	if err != nil {
		t.Fatalf("Merge(...): unexpected error: %v", err)
	}
	want := map[string]any{
		"properties": map[string]any{
			"displayName": "overridden",
			"secret":      true,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("\nMerge(...): -want, +got:\n%s", diff)
	}
	// Inputs must not be mutated.
	if base["properties"].(map[string]any)["displayName"] != "original" {
		t.Errorf("Merge(...): base was mutated")
	}
}
