// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package organizations

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coverline/benefitcache/api"
	"github.com/golang-sql/civil"
)

// Address is a postal address
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Organization is a customer company
type Organization struct {
	Id                  string      `json:"id,omitempty"`
	Name                string      `json:"name,omitempty"`
	Address             *Address    `json:"address,omitempty"`
	BillingContactName  string      `json:"billing_contact_name,omitempty"`
	BillingContactEmail string      `json:"billing_contact_email,omitempty"`
	StartDate           civil.Date  `json:"start_date,omitzero"`
	RenewalDate         *civil.Date `json:"renewal_date,omitempty"`
	EmployeeCount       int         `json:"employee_count"`
}

// GetId returns the organization id
func (o *Organization) GetId() string {
	return o.Id
}

type OrganizationReadResult struct {
	Item     *Organization
	Response *api.Response
}

func (n OrganizationReadResult) GetItem() *Organization {
	return n.Item
}

func (n OrganizationReadResult) GetResponse() *api.Response {
	return n.Response
}

type OrganizationCreateResult = OrganizationReadResult

type OrganizationUpdateResult = OrganizationReadResult

type OrganizationListResult struct {
	Items    []*Organization `json:"result"`
	Total    int             `json:"total"`
	Response *api.Response   `json:"-"`
}

func (n OrganizationListResult) GetItems() []*Organization {
	return n.Items
}

func (n OrganizationListResult) GetResponse() *api.Response {
	return n.Response
}

// Client is a client for the companies collection of the benefits API
type Client struct {
	client *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) ApiClient() *api.Client {
	return c.client
}

func (c *Client) List(ctx context.Context, opt ...Option) (*OrganizationListResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", "companies", nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating List request: %w", err)
	}

	if len(opts.queryMap) > 0 {
		q := url.Values{}
		for k, v := range opts.queryMap {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during List call: %w", err)
	}

	target := new(OrganizationListResult)
	apiErr, err := resp.Decode(target)
	if err != nil {
		return nil, fmt.Errorf("error decoding List response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}
	target.Response = resp
	return target, nil
}

func (c *Client) Read(ctx context.Context, id string, opt ...Option) (*OrganizationReadResult, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id value passed into Read request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	_, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", fmt.Sprintf("companies/%s", url.PathEscape(id)), nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Read request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Read call: %w", err)
	}

	target := new(OrganizationReadResult)
	target.Item = new(Organization)
	apiErr, err := resp.Decode(target.Item)
	if err != nil {
		return nil, fmt.Errorf("error decoding Read response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}
	target.Response = resp
	return target, nil
}

// Create sends item to the API; the returned item is the server's record.
func (c *Client) Create(ctx context.Context, item *Organization, opt ...Option) (*OrganizationCreateResult, error) {
	if item == nil {
		return nil, fmt.Errorf("nil item passed into Create request")
	}
	if item.Id != "" {
		return nil, fmt.Errorf("id must not be set on Create request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	_, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "POST", "companies", item, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Create call: %w", err)
	}

	target := new(OrganizationCreateResult)
	target.Item = new(Organization)
	apiErr, err := resp.Decode(target.Item)
	if err != nil {
		return nil, fmt.Errorf("error decoding Create response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}
	target.Response = resp
	return target, nil
}

// Update sends a partial update built from the WithX options.
func (c *Client) Update(ctx context.Context, id string, opt ...Option) (*OrganizationUpdateResult, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id value passed into Update request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	if len(opts.postMap) == 0 {
		return nil, fmt.Errorf("no fields to update passed into Update request")
	}
	req, err := c.client.NewRequest(ctx, "PATCH", fmt.Sprintf("companies/%s", url.PathEscape(id)), opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Update request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Update call: %w", err)
	}

	target := new(OrganizationUpdateResult)
	target.Item = new(Organization)
	apiErr, err := resp.Decode(target.Item)
	if err != nil {
		return nil, fmt.Errorf("error decoding Update response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}
	target.Response = resp
	return target, nil
}
