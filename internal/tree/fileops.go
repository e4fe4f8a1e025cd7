// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package tree provides file access over a service directory, backed either
// by the live filesystem or by a git commit. All paths are slash-separated
// and relative to the service directory.
package tree

import (
	"io/fs"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

// FileOperations is the capability handle the traversals consume: read a
// file, list a directory's subdirectories, and enumerate every file under
// the service directory.
type FileOperations struct {
	ReadFile       func(path string) ([]byte, error)
	SubDirectories func(dir string) ([]string, error)
	ServiceFiles   func() ([]string, error)
}

// Exists reports whether a file exists in the source.
func (f FileOperations) Exists(path string) (bool, error) {
	_, err := f.ReadFile(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Empty returns operations over an empty tree.
func Empty() FileOperations {
	return FileOperations{
		ReadFile: func(path string) ([]byte, error) {
			return nil, errors.Wrap(fs.ErrNotExist, path)
		},
		SubDirectories: func(string) ([]string, error) { return nil, nil },
		ServiceFiles:   func() ([]string, error) { return nil, nil },
	}
}
