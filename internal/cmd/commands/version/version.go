// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"fmt"

	"github.com/coverline/benefitcache/internal/client"
	"github.com/coverline/benefitcache/internal/cmd/base"
	ver "github.com/coverline/benefitcache/version"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command

	flagDaemon bool
}

func (c *Command) Synopsis() string {
	return "Print the version of the local benefitcache binary"
}

func (c *Command) Help() string {
	return base.WrapForHelpText([]string{
		"Usage: benefitcache version [options]",
		"",
		"  This command displays the version of the local benefitcache binary.",
		"  With -daemon it also asks the running daemon for its version.",
		"",
	}) + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetDaemon | base.FlagSetOutputFormat)

	f := set.NewFlagSet("Command Options")
	f.BoolVar(&base.BoolVar{
		Name:   "daemon",
		Target: &c.flagDaemon,
		Usage:  "Also report the version of the daemon at -daemon-addr.",
	})
	return set
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

type versionOutput struct {
	*ver.Info
	DaemonVersion string `json:",omitempty"`
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	out := versionOutput{Info: ver.Get()}
	if c.flagDaemon {
		cl, err := c.Client(client.WithRetryMax(0))
		if err != nil {
			c.PrintCliError(err)
			return base.CommandCliError
		}
		v, err := cl.DaemonVersion(c.Context)
		if err != nil {
			c.PrintCliError(fmt.Errorf("Error reading the daemon version: %w", err))
			return base.CommandCliError
		}
		out.DaemonVersion = v.String()
	}

	if c.OutputFormat() == "json" {
		b, err := base.JsonFormatter{}.Format(out)
		if err != nil {
			c.UI.Error(fmt.Errorf("Error formatting as JSON: %w", err).Error())
			return base.CommandCliError
		}
		c.UI.Output(string(b))
		return base.CommandSuccess
	}

	nonAttributeMap := map[string]any{}
	if out.Revision != "" {
		nonAttributeMap["Git Revision"] = out.Revision
	}
	if out.Version != "" {
		nonAttributeMap["Version Number"] = out.VersionNumber()
	}
	if out.VersionMetadata != "" {
		nonAttributeMap["Metadata"] = out.VersionMetadata
	}
	if out.BuildDate != "" {
		nonAttributeMap["Build Date"] = out.BuildDate
	}
	if out.DaemonVersion != "" {
		nonAttributeMap["Daemon Version"] = out.DaemonVersion
	}

	maxLength := base.MaxAttributesLength(nonAttributeMap)

	ret := []string{
		"",
		"Version information:",
		base.WrapMap(2, maxLength+2, nonAttributeMap),
		"",
	}

	c.UI.Output(base.WrapForHelpText(ret))

	return base.CommandSuccess
}
