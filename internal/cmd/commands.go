// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cmd

import (
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/coverline/benefitcache/internal/cmd/commands/refresh"
	"github.com/coverline/benefitcache/internal/cmd/commands/search"
	"github.com/coverline/benefitcache/internal/cmd/commands/start"
	"github.com/coverline/benefitcache/internal/cmd/commands/status"
	"github.com/coverline/benefitcache/internal/cmd/commands/version"
	"github.com/mitchellh/cli"
)

// Commands is the mapping of all the available commands.
var Commands map[string]cli.CommandFactory

func initCommands(ui cli.Ui, runOpts *RunOptions) {
	Commands = map[string]cli.CommandFactory{
		"start": func() (cli.Command, error) {
			return &start.Command{
				Command:   base.NewCommand(ui),
				LogOutput: runOpts.Stderr,
			}, nil
		},
		"status": func() (cli.Command, error) {
			return &status.Command{
				Command: base.NewCommand(ui),
			}, nil
		},
		"search": func() (cli.Command, error) {
			return &search.Command{
				Command: base.NewCommand(ui),
			}, nil
		},
		"refresh": func() (cli.Command, error) {
			return &refresh.Command{
				Command: base.NewCommand(ui),
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{
				Command: base.NewCommand(ui),
			}, nil
		},
	}
}
