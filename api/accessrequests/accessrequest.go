// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package accessrequests

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/coverline/benefitcache/api"
)

// Status is the lifecycle state of an access request
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// AccessRequest is a request by a user to join an organization
type AccessRequest struct {
	Id             string     `json:"id,omitempty"`
	RequesterId    string     `json:"requester_id,omitempty"`
	ApproverId     *string    `json:"approver_id,omitempty"`
	OrganizationId string     `json:"company_id,omitempty"`
	Status         Status     `json:"status,omitempty"`
	CreatedTime    time.Time  `json:"created_time,omitzero"`
	ResolvedTime   *time.Time `json:"resolved_time,omitempty"`
}

// GetId returns the request id
func (r *AccessRequest) GetId() string {
	return r.Id
}

type AccessRequestUpdateResult struct {
	Item     *AccessRequest
	Response *api.Response
}

func (n AccessRequestUpdateResult) GetItem() *AccessRequest {
	return n.Item
}

func (n AccessRequestUpdateResult) GetResponse() *api.Response {
	return n.Response
}

type AccessRequestListResult struct {
	Items    []*AccessRequest `json:"result"`
	Total    int              `json:"total"`
	Response *api.Response    `json:"-"`
}

func (n AccessRequestListResult) GetItems() []*AccessRequest {
	return n.Items
}

func (n AccessRequestListResult) GetResponse() *api.Response {
	return n.Response
}

// Client is a client for the requests collection of the benefits API. The
// API has no create, read-by-id or delete for requests.
type Client struct {
	client *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) ApiClient() *api.Client {
	return c.client
}

func (c *Client) List(ctx context.Context, opt ...Option) (*AccessRequestListResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", "requests", nil, apiOpts...)
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

	target := new(AccessRequestListResult)
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

// Update sends a partial update built from the WithX options.
func (c *Client) Update(ctx context.Context, id string, opt ...Option) (*AccessRequestUpdateResult, error) {
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
	req, err := c.client.NewRequest(ctx, "PATCH", fmt.Sprintf("requests/%s", url.PathEscape(id)), opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Update request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Update call: %w", err)
	}

	target := new(AccessRequestUpdateResult)
	target.Item = new(AccessRequest)
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
