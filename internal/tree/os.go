// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FilesystemOperations returns operations over a service directory on an
// afero filesystem. dir is the service directory within fsys.
func FilesystemOperations(fsys afero.Fs, dir string) FileOperations {
	base := afero.NewBasePathFs(fsys, dir)
	return FileOperations{
		ReadFile: func(path string) ([]byte, error) {
			return afero.ReadFile(base, filepath.FromSlash(path))
		},
		SubDirectories: func(dir string) ([]string, error) {
			entries, err := afero.ReadDir(base, filepath.FromSlash(dir))
			if err != nil {
				return nil, err
			}
			var names []string
			for _, e := range entries {
				if e.IsDir() {
					names = append(names, e.Name())
				}
			}
			return names, nil
		},
		ServiceFiles: func() ([]string, error) {
			var files []string
			err := afero.Walk(base, ".", func(path string, info fs.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() {
					files = append(files, filepath.ToSlash(path))
				}
				return nil
			})
			return files, err
		},
	}
}
