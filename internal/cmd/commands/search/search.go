// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package search

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/client"
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/golang-sql/civil"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)

	sortDirections = []string{"asc", "desc"}
)

type Command struct {
	*base.Command
	flagResource      string
	flagTerm          string
	flagFilter        string
	flagSortBy        string
	flagSortDirection string
	flagForceRefresh  bool
}

func (c *Command) Synopsis() string {
	return "Search a collection held by the cache daemon"
}

func (c *Command) Help() string {
	helpText := `
Usage: benefitcache search [options]

  Search the cached users for a name, email or phone number:

      $ benefitcache search -resource users -term lovelace

  Filter the cached insurance plans:

      $ benefitcache search -resource insurance-plans -filter '"/item/plan_type" == "HEALTH"'

  The search term, filter and sort are remembered by the daemon for each
  resource until they are changed. Pass an empty value to clear them.

` + c.Flags().Help()
	return strings.TrimSpace(helpText)
}

func resourceNames() []string {
	var names []string
	for _, et := range cache.AllEntityTypes() {
		names = append(names, et.String())
	}
	return names
}

func sortableKeys() []string {
	var keys []string
	for _, et := range cache.AllEntityTypes() {
		for _, k := range cache.SortKeys(et) {
			if !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetDaemon | base.FlagSetOutputFormat)

	f := set.NewFlagSet("Command Options")
	f.StringVar(&base.StringVar{
		Name:       "resource",
		Target:     &c.flagResource,
		Usage:      `Specifies the resource type to search over.`,
		Completion: complete.PredictSet(resourceNames()...),
	})
	f.StringVar(&base.StringVar{
		Name:   "term",
		Target: &c.flagTerm,
		Usage:  `A case insensitive term matched against the searchable fields of each item. An empty value clears the term kept by the daemon.`,
	})
	f.StringVar(&base.StringVar{
		Name:   "filter",
		Target: &c.flagFilter,
		Usage:  "A boolean expression evaluated against each item. Using single quotes is recommended as filters contain double quotes. An empty value clears the filter kept by the daemon.",
	})
	f.StringVar(&base.StringVar{
		Name:       "sort-by",
		Target:     &c.flagSortBy,
		Usage:      `Specifies which field to sort items by. Use sort-direction to control which direction to sort results by.`,
		Completion: complete.PredictSet(sortableKeys()...),
	})
	f.StringVar(&base.StringVar{
		Name:       "sort-direction",
		Target:     &c.flagSortDirection,
		Usage:      `Specifies which direction to sort results by. Requires sort-by and defaults to asc.`,
		Completion: complete.PredictSet(sortDirections...),
	})
	f.BoolVar(&base.BoolVar{
		Name:   "force-refresh",
		Target: &c.flagForceRefresh,
		Usage:  `Refetch the collection from the benefits API before searching it.`,
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
	ctx := c.Context
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	if c.flagResource == "" {
		c.PrintCliError(stderrors.New("Resource is required but not passed in via -resource"))
		return base.CommandUserError
	}
	et, err := cache.ParseEntityType(c.flagResource)
	if err != nil {
		c.PrintCliError(fmt.Errorf("The value passed in with -resource is not supported: %w", err))
		return base.CommandUserError
	}

	switch {
	case c.flagSortDirection != "" && c.flagSortBy == "":
		c.PrintCliError(stderrors.New("sort-direction requires sort-by"))
		return base.CommandUserError
	case c.flagSortDirection != "" && !slices.Contains(sortDirections, c.flagSortDirection):
		c.PrintCliError(fmt.Errorf("sort-direction must be one of %s", strings.Join(sortDirections, ", ")))
		return base.CommandUserError
	case c.flagSortBy != "" && !slices.Contains(cache.SortKeys(et), c.flagSortBy):
		c.PrintCliError(fmt.Errorf("%s cannot be sorted by %q, use one of %s", et, c.flagSortBy, strings.Join(cache.SortKeys(et), ", ")))
		return base.CommandUserError
	}

	req := &client.SearchRequest{
		Resource:     et.String(),
		SortBy:       c.flagSortBy,
		Descending:   c.flagSortDirection == "desc",
		ForceRefresh: c.flagForceRefresh,
	}
	if f.IsSet("term") {
		req.Term = &c.flagTerm
	}
	if f.IsSet("filter") {
		req.Filter = &c.flagFilter
	}

	cl, err := c.Client()
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	result, apiErr, err := cl.Search(ctx, req)
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	if apiErr != nil {
		c.PrintApiError(apiErr, "Error from cache when performing search")
		return base.CommandApiError
	}

	switch c.OutputFormat() {
	case "json":
		if ok := c.PrintJsonItem(http.StatusOK, result); !ok {
			return base.CommandCliError
		}
	default:
		switch {
		case len(result.Organizations) > 0:
			c.UI.Output(printOrganizationListTable(result.Organizations))
		case len(result.Users) > 0:
			c.UI.Output(printUserListTable(result.Users))
		case len(result.InsurancePlans) > 0:
			c.UI.Output(printInsurancePlanListTable(result.InsurancePlans))
		case len(result.AccessRequests) > 0:
			c.UI.Output(printAccessRequestListTable(result.AccessRequests))
		default:
			c.UI.Output("No items found")
		}

		// Put this at the end or people may not see it as they may not scroll
		// all the way up.
		if result.Error != nil {
			c.UI.Warn(fmt.Sprintf("The last refresh of %s failed, results may be out of date: %s", result.Resource, result.Error.Error))
		} else if result.Stale {
			c.UI.Warn(fmt.Sprintf("The cached %s are stale and being refreshed.", result.Resource))
		}
	}
	return base.CommandSuccess
}

func printOrganizationListTable(items []*organizations.Organization) string {
	output := []string{
		"",
		"Organization information:",
	}
	for i, item := range items {
		if i > 0 {
			output = append(output, "")
		}
		output = append(output,
			fmt.Sprintf("  ID:                    %s", item.Id),
		)
		if item.Name != "" {
			output = append(output,
				fmt.Sprintf("    Name:                %s", item.Name),
			)
		}
		if item.StartDate != (civil.Date{}) {
			output = append(output,
				fmt.Sprintf("    Start Date:          %s", item.StartDate),
			)
		}
		if item.RenewalDate != nil {
			output = append(output,
				fmt.Sprintf("    Renewal Date:        %s", item.RenewalDate),
			)
		}
		output = append(output,
			fmt.Sprintf("    Employee Count:      %d", item.EmployeeCount),
		)
	}

	return base.WrapForHelpText(output)
}

func printUserListTable(items []*users.User) string {
	output := []string{
		"",
		"User information:",
	}
	for i, item := range items {
		if i > 0 {
			output = append(output, "")
		}
		output = append(output,
			fmt.Sprintf("  ID:                    %s", item.Id),
		)
		if name := strings.TrimSpace(item.FirstName + " " + item.LastName); name != "" {
			output = append(output,
				fmt.Sprintf("    Name:                %s", name),
			)
		}
		if item.Email != "" {
			output = append(output,
				fmt.Sprintf("    Email:               %s", item.Email),
			)
		}
		if item.Phone != "" {
			output = append(output,
				fmt.Sprintf("    Phone:               %s", item.Phone),
			)
		}
		if item.Role != "" {
			output = append(output,
				fmt.Sprintf("    Role:                %s", item.Role),
			)
		}
		if item.OrganizationId != "" {
			output = append(output,
				fmt.Sprintf("    Organization ID:     %s", item.OrganizationId),
			)
		}
	}

	return base.WrapForHelpText(output)
}

func printInsurancePlanListTable(items []*insuranceplans.InsurancePlan) string {
	output := []string{
		"",
		"Insurance plan information:",
	}
	for i, item := range items {
		if i > 0 {
			output = append(output, "")
		}
		output = append(output,
			fmt.Sprintf("  ID:                    %s", item.Id),
		)
		if item.Name != "" {
			output = append(output,
				fmt.Sprintf("    Name:                %s", item.Name),
			)
		}
		if item.Provider != "" {
			output = append(output,
				fmt.Sprintf("    Provider:            %s", item.Provider),
			)
		}
		if item.PlanType != "" {
			output = append(output,
				fmt.Sprintf("    Plan Type:           %s", item.PlanType),
			)
		}
		if item.StartDate != (civil.Date{}) {
			output = append(output,
				fmt.Sprintf("    Start Date:          %s", item.StartDate),
			)
		}
		if item.EndDate != nil {
			output = append(output,
				fmt.Sprintf("    End Date:            %s", item.EndDate),
			)
		}
	}

	return base.WrapForHelpText(output)
}

func printAccessRequestListTable(items []*accessrequests.AccessRequest) string {
	output := []string{
		"",
		"Access request information:",
	}
	for i, item := range items {
		if i > 0 {
			output = append(output, "")
		}
		output = append(output,
			fmt.Sprintf("  ID:                    %s", item.Id),
		)
		if item.Status != "" {
			output = append(output,
				fmt.Sprintf("    Status:              %s", item.Status),
			)
		}
		if item.RequesterId != "" {
			output = append(output,
				fmt.Sprintf("    Requester ID:        %s", item.RequesterId),
			)
		}
		if item.ApproverId != nil {
			output = append(output,
				fmt.Sprintf("    Approver ID:         %s", *item.ApproverId),
			)
		}
		if item.OrganizationId != "" {
			output = append(output,
				fmt.Sprintf("    Organization ID:     %s", item.OrganizationId),
			)
		}
		if !item.CreatedTime.IsZero() {
			output = append(output,
				fmt.Sprintf("    Created Time:        %s", item.CreatedTime.Local().Format(time.RFC1123)),
			)
		}
	}

	return base.WrapForHelpText(output)
}
