// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/spf13/afero"

	"github.com/crossplane/crossplane-runtime/pkg/errors"
	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/apiopslabs/apiops/internal/apim"
	"github.com/apiopslabs/apiops/internal/config"
	"github.com/apiopslabs/apiops/internal/extract"
	"github.com/apiopslabs/apiops/internal/graph"
	"github.com/apiopslabs/apiops/internal/resource"
)

// extractCmd snapshots a live service into a directory tree.
type extractCmd struct {
	ServiceURL          string `env:"API_MANAGEMENT_SERVICE_URL" help:"Management URL of the API Management service." required:""`
	ServiceName         string `env:"API_MANAGEMENT_SERVICE_NAME" help:"Name of the API Management service, used in log output."`
	BearerToken         string `env:"AZURE_BEARER_TOKEN" help:"Azure bearer token authorised against the service." required:""`
	OutputFolder        string `env:"API_MANAGEMENT_SERVICE_OUTPUT_FOLDER_PATH" help:"Directory the service tree is written to." required:"" type:"path"`
	Configuration       string `env:"CONFIGURATION_YAML_PATH" help:"Configuration YAML restricting and overriding what is extracted." type:"path"`
	SpecificationFormat string `env:"API_SPECIFICATION_FORMAT" help:"API specification format: Wadl, JSON, YAML, OpenApiV2Json, OpenApiV2Yaml, OpenApiV3Json or OpenApiV3Yaml."`
	APIVersion          string `default:"2022-08-01"                             help:"Service REST api-version."                                                                 name:"api-version"`
}

func (c *extractCmd) Run(log logging.Logger) error {
	spec, err := resource.ParseSpecificationFormat(c.SpecificationFormat)
	if err != nil {
		return err
	}
	g, err := graph.New(resource.DefaultRegistry())
	if err != nil {
		return err
	}
	if c.ServiceName != "" {
		log = log.WithValues("service", c.ServiceName)
	}

	fsys := afero.NewOsFs()
	if err := fsys.MkdirAll(c.OutputFolder, 0o755); err != nil {
		return errors.Wrap(err, "cannot create output folder")
	}

	client := apim.NewClient(c.ServiceURL, c.BearerToken,
		apim.WithLogger(log),
		apim.WithAPIVersion(c.APIVersion))
	cfg := config.FromFile(fsys, c.Configuration)

	extractor := extract.New(client, g, cfg, fsys, c.OutputFolder,
		extract.WithLogger(log),
		extract.WithSpecificationFormat(spec))
	return extractor.Run(context.Background())
}
