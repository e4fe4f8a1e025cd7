// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestFilesystemOperations(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"svc/apis/echo-api/apiInformation.json": `{}`,
		"svc/apis/echo-api/policy.xml":          `<policies/>`,
		"svc/policy.xml":                        `<policies/>`,
		"elsewhere/ignored.json":                `{}`,
	}
	for path, contents := range files {
		if err := afero.WriteFile(fsys, path, []byte(contents), 0o644); err != nil {
			t.Fatalf("cannot seed file %q: %v", path, err)
		}
	}

	fops := FilesystemOperations(fsys, "svc")

	raw, err := fops.ReadFile("apis/echo-api/policy.xml")
	if err != nil {
		t.Fatalf("ReadFile(...): %v", err)
	}
	if string(raw) != "<policies/>" {
		t.Errorf("ReadFile(...): want %q, got %q", "<policies/>", raw)
	}

	got, err := fops.ServiceFiles()
	if err != nil {
		t.Fatalf("ServiceFiles(): %v", err)
	}
	want := []string{
		"apis/echo-api/apiInformation.json",
		"apis/echo-api/policy.xml",
		"policy.xml",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ServiceFiles(): -want, +got:\n%s", diff)
	}

	dirs, err := fops.SubDirectories("apis")
	if err != nil {
		t.Fatalf("SubDirectories(...): %v", err)
	}
	if diff := cmp.Diff([]string{"echo-api"}, dirs); diff != "" {
		t.Errorf("SubDirectories(...): -want, +got:\n%s", diff)
	}

	if ok, err := fops.Exists("policy.xml"); err != nil || !ok {
		t.Errorf("Exists(policy.xml): want (true, nil), got (%t, %v)", ok, err)
	}
	if ok, err := fops.Exists("missing.json"); err != nil || ok {
		t.Errorf("Exists(missing.json): want (false, nil), got (%t, %v)", ok, err)
	}
}

func TestEmpty(t *testing.T) {
	fops := Empty()

	if _, err := fops.ReadFile("anything.json"); err == nil {
		t.Errorf("ReadFile(...): want not-exist error, got nil")
	}
	if ok, err := fops.Exists("anything.json"); err != nil || ok {
		t.Errorf("Exists(...): want (false, nil), got (%t, %v)", ok, err)
	}
	files, err := fops.ServiceFiles()
	if err != nil || len(files) != 0 {
		t.Errorf("ServiceFiles(): want no files, got (%v, %v)", files, err)
	}
}
