// SPDX-FileCopyrightText: 2025 The ApiOps Authors
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the apiops CLI: extract a live Azure API Management
// service into a directory tree, or publish such a tree back to a service.
package main

import (
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/crossplane/crossplane-runtime/pkg/logging"

	"github.com/apiopslabs/apiops/internal/version"
)

var _ = kong.Must(&cli{})

type verboseFlag bool

func (v verboseFlag) BeforeApply(ctx *kong.Context) error { //nolint:unparam // BeforeApply requires this signature.
	z, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	ctx.BindTo(logging.NewLogrLogger(zapr.NewLogger(z)), (*logging.Logger)(nil))
	return nil
}

type versionCmd struct{}

func (versionCmd) Run() error {
	fmt.Println(version.Get())
	return nil
}

// The top-level apiops CLI.
type cli struct {
	// Subcommands.
	Extract extractCmd `cmd:"" help:"Snapshot a live API Management service into a directory tree."`
	Publish publishCmd `cmd:"" help:"Apply a directory tree, or one commit's changes to it, to a live API Management service."`
	Version versionCmd `cmd:"" help:"Print the client version."`

	// Flags.
	Verbose verboseFlag `help:"Print verbose logging statements." name:"verbose"`
}

func main() {
	logger := logging.NewLogrLogger(zapr.NewLogger(zap.Must(zap.NewProduction())))
	ctx := kong.Parse(&cli{},
		kong.Name("apiops"),
		kong.Description("A command line tool for synchronising Azure API Management services with git-backed directory trees."),
		// Binding the logger to the kong context makes it available to all
		// commands at runtime.
		kong.BindTo(logger, (*logging.Logger)(nil)),
		kong.ConfigureHelp(kong.HelpOptions{
			FlagsLast:      true,
			Compact:        true,
			WrapUpperBound: 80,
		}),
		kong.UsageOnError())
	ctx.FatalIfErrorf(ctx.Run())
}
