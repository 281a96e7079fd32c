// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package refresh

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command
	flagResource string
}

func (c *Command) Synopsis() string {
	return "Ask the cache daemon to refetch its collections"
}

func (c *Command) Help() string {
	helpText := `
Usage: benefitcache refresh [options]

  Refetch every cached collection from the benefits API:

      $ benefitcache refresh

  Refetch only the cached users:

      $ benefitcache refresh -resource users

  The daemon starts the fetches and returns without waiting for them. Use
  "benefitcache status" to follow their progress.

` + c.Flags().Help()
	return strings.TrimSpace(helpText)
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetDaemon | base.FlagSetOutputFormat)

	var names []string
	for _, et := range cache.AllEntityTypes() {
		names = append(names, et.String())
	}
	f := set.NewFlagSet("Command Options")
	f.StringVar(&base.StringVar{
		Name:       "resource",
		Target:     &c.flagResource,
		Usage:      `Only refetch the given resource type. Every resource is refetched when it is not set.`,
		Completion: complete.PredictSet(names...),
	})
	return set
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

func (c *Command) Run(args []string) int {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	resource := ""
	if c.flagResource != "" {
		et, err := cache.ParseEntityType(c.flagResource)
		if err != nil {
			c.PrintCliError(fmt.Errorf("The value passed in with -resource is not supported: %w", err))
			return base.CommandUserError
		}
		resource = et.String()
	}

	cl, err := c.Client()
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	apiErr, err := cl.Refresh(c.Context, resource)
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	if apiErr != nil {
		c.PrintApiError(apiErr, "Error from cache when requesting a refresh")
		return base.CommandApiError
	}

	switch c.OutputFormat() {
	case "json":
		item := map[string]string{"resource": resource}
		if resource == "" {
			item["resource"] = "all"
		}
		if ok := c.PrintJsonItem(http.StatusAccepted, item); !ok {
			return base.CommandCliError
		}
	default:
		if resource == "" {
			c.UI.Output("Refresh of all resources requested")
		} else {
			c.UI.Output(fmt.Sprintf("Refresh of %s requested", resource))
		}
	}
	return base.CommandSuccess
}
