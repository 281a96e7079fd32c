// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package status

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/coverline/benefitcache/internal/daemon"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Show the state of the running cache daemon"
}

func (c *Command) Help() string {
	helpText := `
Usage: benefitcache status [options]

  Show the cached collections of the running daemon, their item counts and
  the last error seen while refreshing them:

      $ benefitcache status

` + c.Flags().Help()
	return strings.TrimSpace(helpText)
}

func (c *Command) Flags() *base.FlagSets {
	return c.FlagSet(base.FlagSetDaemon | base.FlagSetOutputFormat)
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

	cl, err := c.Client()
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	result, apiErr, err := cl.Status(c.Context)
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	if apiErr != nil {
		c.PrintApiError(apiErr, "Error from cache when reading its status")
		return base.CommandApiError
	}

	switch c.OutputFormat() {
	case "json":
		if ok := c.PrintJsonItem(http.StatusOK, result); !ok {
			return base.CommandCliError
		}
	default:
		c.UI.Output(printStatus(result))
	}
	return base.CommandSuccess
}

func printStatus(r *daemon.StatusResult) string {
	nonAttributeMap := map[string]any{
		"Listen Address": r.ListenAddress,
		"Version":        r.Version,
		"Uptime":         base.HumanDuration(r.Uptime.Truncate(time.Second)),
	}
	maxLength := base.MaxAttributesLength(nonAttributeMap)
	output := []string{
		"",
		"Cache daemon information:",
		base.WrapMap(2, maxLength+2, nonAttributeMap),
		"",
	}
	if len(r.Resources) == 0 {
		output = append(output, "No collections have been loaded")
		return base.WrapForHelpText(output)
	}

	rows := []string{"Resource|Key|Status|Count|Total|Age|Last Error"}
	for _, rs := range r.Resources {
		age := ""
		if rs.Age > 0 {
			age = base.HumanDuration(rs.Age.Truncate(time.Second))
		}
		status := rs.Status
		if rs.Stale {
			status += " (stale)"
		}
		if rs.InFlight {
			status += " (fetching)"
		}
		lastErr := ""
		if rs.LastError != nil {
			lastErr = strings.ReplaceAll(rs.LastError.Error, "|", "/")
		}
		rows = append(rows, fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s", rs.Name, rs.Key, status, rs.Count, rs.Total, age, lastErr))
	}
	output = append(output, "Cached collections:", "")
	output = append(output, strings.Split(base.TableOutput(rows, nil), "\n")...)

	if len(r.Views) > 0 {
		views := make(map[string]any, len(r.Views))
		for name, v := range r.Views {
			dir := "desc"
			if v.Sort.Ascending {
				dir = "asc"
			}
			parts := []string{fmt.Sprintf("sort=%s %s", v.Sort.Key, dir)}
			if v.SearchTerm != "" {
				parts = append(parts, fmt.Sprintf("term=%q", v.SearchTerm))
			}
			if v.Filter != "" {
				parts = append(parts, fmt.Sprintf("filter=%q", v.Filter))
			}
			views[name] = strings.Join(parts, " ")
		}
		output = append(output, "", "Views:", base.WrapMap(2, base.MaxAttributesLength(views)+2, views))
	}
	return base.WrapForHelpText(output)
}
