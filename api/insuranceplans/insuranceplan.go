// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package insuranceplans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/url"

	"github.com/coverline/benefitcache/api"
	"github.com/golang-sql/civil"
)

// PlanType is the coverage category of a plan
type PlanType string

const (
	PlanTypeHealth PlanType = "HEALTH"
	PlanTypeDental PlanType = "DENTAL"
	PlanTypeVision PlanType = "VISION"
	PlanTypeOther  PlanType = "OTHER"
)

// Valid reports whether t is a known plan type
func (t PlanType) Valid() bool {
	switch t {
	case PlanTypeHealth, PlanTypeDental, PlanTypeVision, PlanTypeOther:
		return true
	}
	return false
}

// PlanOrganization links a plan to an organization for a period
type PlanOrganization struct {
	OrganizationId string      `json:"company_id"`
	StartDate      civil.Date  `json:"start_date,omitzero"`
	EndDate        *civil.Date `json:"end_date,omitempty"`
}

// DocumentFile is the content of a document that has not been uploaded yet
type DocumentFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Document is either persisted (Url set) or pending upload (File set)
type Document struct {
	Id         string        `json:"id,omitempty"`
	Name       string        `json:"name,omitempty"`
	Url        string        `json:"url,omitempty"`
	UploadDate *civil.Date   `json:"upload_date,omitempty"`
	File       *DocumentFile `json:"-"`
}

// Pending reports whether the document still carries an in-memory file
func (d *Document) Pending() bool {
	return d != nil && d.File != nil
}

// InsurancePlan is a benefits plan offered by a provider
type InsurancePlan struct {
	Id            string              `json:"id,omitempty"`
	Name          string              `json:"name,omitempty"`
	Provider      string              `json:"provider,omitempty"`
	PlanType      PlanType            `json:"plan_type,omitempty"`
	StartDate     civil.Date          `json:"start_date,omitzero"`
	EndDate       *civil.Date         `json:"end_date,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Organizations []*PlanOrganization `json:"companies,omitempty"`
	Documents     []*Document         `json:"documents,omitempty"`
}

// GetId returns the plan id
func (p *InsurancePlan) GetId() string {
	return p.Id
}

func (p *InsurancePlan) hasPendingFiles() bool {
	for _, d := range p.Documents {
		if d.Pending() {
			return true
		}
	}
	return false
}

type InsurancePlanReadResult struct {
	Item     *InsurancePlan
	Response *api.Response
}

func (n InsurancePlanReadResult) GetItem() *InsurancePlan {
	return n.Item
}

func (n InsurancePlanReadResult) GetResponse() *api.Response {
	return n.Response
}

type InsurancePlanCreateResult = InsurancePlanReadResult

type InsurancePlanUpdateResult = InsurancePlanReadResult

type InsurancePlanDeleteResult struct {
	Response *api.Response
}

func (n InsurancePlanDeleteResult) GetResponse() *api.Response {
	return n.Response
}

type InsurancePlanListResult struct {
	Items    []*InsurancePlan `json:"result"`
	Total    int              `json:"total"`
	Response *api.Response    `json:"-"`
}

func (n InsurancePlanListResult) GetItems() []*InsurancePlan {
	return n.Items
}

func (n InsurancePlanListResult) GetResponse() *api.Response {
	return n.Response
}

// Client is a client for the insurance plans collection of the benefits API
type Client struct {
	client *api.Client
}

func NewClient(c *api.Client) *Client {
	return &Client{client: c}
}

func (c *Client) ApiClient() *api.Client {
	return c.client
}

func (c *Client) List(ctx context.Context, opt ...Option) (*InsurancePlanListResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	opts, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", "insurance-plans", nil, apiOpts...)
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

	target := new(InsurancePlanListResult)
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

func (c *Client) Read(ctx context.Context, id string, opt ...Option) (*InsurancePlanReadResult, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id value passed into Read request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	_, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "GET", fmt.Sprintf("insurance-plans/%s", url.PathEscape(id)), nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Read request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Read call: %w", err)
	}

	target := new(InsurancePlanReadResult)
	target.Item = new(InsurancePlan)
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
// When any document carries a pending file the request is sent as
// multipart/form-data with the plan JSON in the "data" part and one
// "documents" part per pending file.
func (c *Client) Create(ctx context.Context, item *InsurancePlan, opt ...Option) (*InsurancePlanCreateResult, error) {
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
	var body any = item
	if item.hasPendingFiles() {
		buf, contentType, err := encodeMultipart(item)
		if err != nil {
			return nil, fmt.Errorf("error encoding Create request: %w", err)
		}
		body = buf
		apiOpts = append(apiOpts, api.WithContentType(contentType))
	}
	req, err := c.client.NewRequest(ctx, "POST", "insurance-plans", body, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Create call: %w", err)
	}

	target := new(InsurancePlanCreateResult)
	target.Item = new(InsurancePlan)
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
func (c *Client) Update(ctx context.Context, id string, opt ...Option) (*InsurancePlanUpdateResult, error) {
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
	req, err := c.client.NewRequest(ctx, "PATCH", fmt.Sprintf("insurance-plans/%s", url.PathEscape(id)), opts.postMap, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Update request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Update call: %w", err)
	}

	target := new(InsurancePlanUpdateResult)
	target.Item = new(InsurancePlan)
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

func (c *Client) Delete(ctx context.Context, id string, opt ...Option) (*InsurancePlanDeleteResult, error) {
	if id == "" {
		return nil, fmt.Errorf("empty id value passed into Delete request")
	}
	if c.client == nil {
		return nil, fmt.Errorf("nil client")
	}

	_, apiOpts := getOpts(opt...)
	req, err := c.client.NewRequest(ctx, "DELETE", fmt.Sprintf("insurance-plans/%s", url.PathEscape(id)), nil, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating Delete request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing client request during Delete call: %w", err)
	}

	apiErr, err := resp.Decode(nil)
	if err != nil {
		return nil, fmt.Errorf("error decoding Delete response: %w", err)
	}
	if apiErr != nil {
		return nil, apiErr
	}
	return &InsurancePlanDeleteResult{Response: resp}, nil
}

func encodeMultipart(item *InsurancePlan) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	data, err := json.Marshal(item)
	if err != nil {
		return nil, "", err
	}
	dataHeader := make(textproto.MIMEHeader)
	dataHeader.Set("Content-Disposition", `form-data; name="data"`)
	dataHeader.Set("Content-Type", "application/json")
	part, err := w.CreatePart(dataHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	for _, d := range item.Documents {
		if !d.Pending() {
			continue
		}
		name := d.File.Name
		if name == "" {
			name = d.Name
		}
		fileHeader := make(textproto.MIMEHeader)
		fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="documents"; filename=%q`, name))
		ct := d.File.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		fileHeader.Set("Content-Type", ct)
		part, err := w.CreatePart(fileHeader)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(d.File.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
