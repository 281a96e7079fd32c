// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package users

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coverline/benefitcache/api"
	"github.com/golang-sql/civil"
)

// Role is the access level of a user
type Role string

const (
	RoleSubscriber Role = "subscriber"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleSubscriber, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is a member of an organization
type User struct {
	Id               string     `json:"id,omitempty"`
	FirstName        string     `json:"first_name,omitempty"`
	LastName         string     `json:"last_name,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Role             Role       `json:"role,omitempty"`
	OrganizationId   string     `json:"company_id,omitempty"`
	StartDate        civil.Date `json:"start_date,omitzero"`
	InsurancePlanIds []string   `json:"insurance_plan_ids,omitempty"`
}

// GetId returns the user id
func (u *User) GetId() string {
	return u.Id
}

type UserReadResult struct {
	Item     *User
	Response *api.Response
}

func (n UserReadResult) GetItem() *User {
	return n.Item
}

func (n UserReadResult) GetResponse() *api.Response {
	return n.Response
}

type UserCreateResult = UserReadResult

type UserUpdateResult = UserReadResult

type UserListResult struct {
	Items    []*User       `json:"result"`
	Total    int           `json:"total"`
	Response *api.Response `json:"-"`
}

func (n UserListResult) GetItems() []*User {
	return n.Items
}

func (n UserListResult) GetResponse() *api.Response {
	return n.Response
}

// Client is a client for the users collection of the benefits API
type Client struct {
	client *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) ApiClient() *api.Client {
	return c.client
}

func (c *Client) List(ctx context.Context, opt ...Option) (*UserListResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", "users", nil, apiOpts...)
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

	target := new(UserListResult)
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

func (c *Client) Read(ctx context.Context, id string, opt ...Option) (*UserReadResult, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id value passed into Read request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	_, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", fmt.Sprintf("users/%s", url.PathEscape(id)), nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Read request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Read call: %w", err)
	}

	target := new(UserReadResult)
	target.Item = new(User)
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
func (c *Client) Create(ctx context.Context, item *User, opt ...Option) (*UserCreateResult, error) {
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
	req, err := c.client.NewRequest(ctx, "POST", "users", item, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Create call: %w", err)
	}

	target := new(UserCreateResult)
	target.Item = new(User)
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
func (c *Client) Update(ctx context.Context, id string, opt ...Option) (*UserUpdateResult, error) {
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
	req, err := c.client.NewRequest(ctx, "PATCH", fmt.Sprintf("users/%s", url.PathEscape(id)), opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Update request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Update call: %w", err)
	}

	target := new(UserUpdateResult)
	target.Item = new(User)
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
