// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/publish"
	"github.com/apiopslabs/apiops/internal/resource"
	"github.com/apiopslabs/apiops/internal/tree"
)

// publishCmd applies a directory tree to a live service. With a commit id it
// publishes only what that commit changed.
type publishCmd struct {
	ServiceURL    string `env:"API_MANAGEMENT_SERVICE_URL" help:"Management URL of the API Management service." required:""`
	BearerToken   string `env:"AZURE_BEARER_TOKEN" help:"Azure bearer token authorised against the service." required:""`
	ServiceFolder string `env:"API_MANAGEMENT_SERVICE_OUTPUT_FOLDER_PATH" help:"Directory holding the service tree." required:"" type:"path"`
	Configuration string `env:"CONFIGURATION_YAML_PATH" help:"Configuration YAML overriding what is published." type:"path"`
	CommitID      string `env:"COMMIT_ID" help:"Publish only the files this commit touched, resolving deletions against its parent."`
	APIVersion    string `default:"2022-08-01" help:"Service REST api-version." name:"api-version"`
}

func (c *publishCmd) Run(log logging.Logger) error {
	g, err := graph.New(resource.DefaultRegistry())
	if err != nil {
		return err
	}
	client := apim.NewClient(c.ServiceURL, c.BearerToken,
		apim.WithLogger(log),
		apim.WithAPIVersion(c.APIVersion))
	cfg := config.FromFile(afero.NewOsFs(), c.Configuration)

	opts := []publish.Option{publish.WithLogger(log)}
	var current tree.FileOperations
	if c.CommitID == "" {
		current = tree.FilesystemOperations(afero.NewOsFs(), c.ServiceFolder)
	} else {
		current, opts, err = c.commitScope(log, opts)
		if err != nil {
			return err
		}
	}

	return publish.New(client, g, cfg, current, opts...).Run(context.Background())
}

// commitScope resolves the commit and its parent into snapshot handles and
// the lists of changed and deleted service files.
func (c *publishCmd) commitScope(log logging.Logger, opts []publish.Option) (tree.FileOperations, []publish.Option, error) {
	repo, err := tree.OpenRepository(c.ServiceFolder)
	if err != nil {
		return tree.FileOperations{}, nil, err
	}
	prefix, err := servicePrefix(repo, c.ServiceFolder)
	if err != nil {
		return tree.FileOperations{}, nil, err
	}
	commit, err := tree.ResolveCommit(repo, c.CommitID)
	if err != nil {
		return tree.FileOperations{}, nil, err
	}

	current, err := tree.CommitOperations(commit, prefix)
	if err != nil {
		return tree.FileOperations{}, nil, err
	}
	changed, deleted, err := tree.ChangedFiles(commit, prefix)
	if err != nil {
		return tree.FileOperations{}, nil, err
	}

	previous := tree.Empty()
	if parent, ok, err := tree.ParentCommit(commit); err != nil {
		return tree.FileOperations{}, nil, err
	} else if ok {
		if previous, err = tree.CommitOperations(parent, prefix); err != nil {
			return tree.FileOperations{}, nil, err
		}
	}

	log.Debug("Publishing commit diff", "commit", c.CommitID, "changed", len(changed), "deleted", len(deleted))
	return current, append(opts, publish.WithCommitScope(previous, changed, deleted)), nil
}

// servicePrefix returns the service folder's slash-separated path inside the
// repository worktree, empty when it is the worktree root.
func servicePrefix(repo *git.Repository, dir string) (string, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}
