// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package tree

import (
	"io"
	"io/fs"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
)

const (
	errOpenRepository = "cannot open git repository"
	errResolveCommit  = "cannot resolve commit"
	errCommitTree     = "cannot read commit tree"
	errDiffCommit     = "cannot diff commit against its parent"
)

// OpenRepository opens the git repository containing path.
func OpenRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	return repo, errors.Wrap(err, errOpenRepository)
}

// ResolveCommit resolves a revision (commit id, ref name, "HEAD") to a
// commit.
func ResolveCommit(repo *git.Repository, revision string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, errors.Wrapf(err, "%s %q", errResolveCommit, revision)
	}
	commit, err := repo.CommitObject(*hash)
	return commit, errors.Wrapf(err, "%s %q", errResolveCommit, revision)
}

// ParentCommit returns the first parent of a commit, or ok=false for a root
// commit.
func ParentCommit(commit *object.Commit) (*object.Commit, bool, error) {
	if commit.NumParents() == 0 {
		return nil, false, nil
	}
	parent, err := commit.Parent(0)
	if err != nil {
		return nil, false, errors.Wrap(err, errResolveCommit)
	}
	return parent, true, nil
}

// CommitOperations returns operations over the service directory as recorded
// in a commit. prefix is the service directory's path inside the repository,
// empty when the repository root is the service directory.
func CommitOperations(commit *object.Commit, prefix string) (FileOperations, error) {
	root, err := commit.Tree()
	if err != nil {
		return FileOperations{}, errors.Wrap(err, errCommitTree)
	}
	if prefix != "" {
		root, err = root.Tree(prefix)
		if err != nil {
			if errors.Is(err, object.ErrDirectoryNotFound) {
				return Empty(), nil
			}
			return FileOperations{}, errors.Wrap(err, errCommitTree)
		}
	}

	return FileOperations{
		ReadFile: func(path string) ([]byte, error) {
			f, err := root.File(path)
			if err != nil {
				if errors.Is(err, object.ErrFileNotFound) {
					return nil, errors.Wrap(fs.ErrNotExist, path)
				}
				return nil, err
			}
			r, err := f.Reader()
			if err != nil {
				return nil, err
			}
			defer r.Close() //nolint:errcheck // Read errors are surfaced below.
			return io.ReadAll(r)
		},
		SubDirectories: func(dir string) ([]string, error) {
			sub := root
			if dir != "" {
				var err error
				sub, err = root.Tree(dir)
				if err != nil {
					if errors.Is(err, object.ErrDirectoryNotFound) {
						return nil, errors.Wrap(fs.ErrNotExist, dir)
					}
					return nil, err
				}
			}
			var names []string
			for _, e := range sub.Entries {
				if e.Mode == filemode.Dir {
					names = append(names, e.Name)
				}
			}
			return names, nil
		},
		ServiceFiles: func() ([]string, error) {
			var files []string
			err := root.Files().ForEach(func(f *object.File) error {
				files = append(files, f.Name)
				return nil
			})
			return files, err
		},
	}, nil
}

// ChangedFiles returns the service-relative paths touched by a commit,
// split into files present in the commit and files the commit deleted.
// Renames count as a delete plus a change.
func ChangedFiles(commit *object.Commit, prefix string) (changed, deleted []string, err error) {
	current, err := commit.Tree()
	if err != nil {
		return nil, nil, errors.Wrap(err, errCommitTree)
	}

	var previous *object.Tree
	if parent, ok, err := ParentCommit(commit); err != nil {
		return nil, nil, err
	} else if ok {
		previous, err = parent.Tree()
		if err != nil {
			return nil, nil, errors.Wrap(err, errCommitTree)
		}
	}

	diff, err := object.DiffTree(previous, current)
	if err != nil {
		return nil, nil, errors.Wrap(err, errDiffCommit)
	}

	inService := func(path string) (string, bool) {
		if prefix == "" {
			return path, true
		}
		if rest, ok := strings.CutPrefix(path, prefix+"/"); ok {
			return rest, true
		}
		return "", false
	}

	for _, change := range diff {
		action, err := change.Action()
		if err != nil {
			return nil, nil, errors.Wrap(err, errDiffCommit)
		}
		switch action {
		case merkletrie.Insert, merkletrie.Modify:
			if path, ok := inService(change.To.Name); ok {
				changed = append(changed, path)
			}
		case merkletrie.Delete:
			if path, ok := inService(change.From.Name); ok {
				deleted = append(deleted, path)
			}
		}
	}
	return changed, deleted, nil
}
