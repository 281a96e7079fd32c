// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/internal/daemon"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/version"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	gvers "github.com/hashicorp/go-version"
)

const (
	hostHeader = "benefitcache.localhost"
	unixScheme = "unix"

	statusPath  = "/v1/status"
	searchPath  = "/v1/search"
	refreshPath = "/v1/refresh"
)

// Client talks to a running cache daemon
type Client struct {
	client *retryablehttp.Client
	base   *url.URL
	addr   string

	mu        sync.Mutex
	daemonVer *gvers.Version
}

// New returns a client for the daemon listening at address. The address is
// either a unix:// socket path, an http(s) URL or a bare host:port.
func New(ctx context.Context, address string, opt ...Option) (*Client, error) {
	const op = "client.New"
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "address is empty")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}

	raw := address
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidParameter))
	}

	c := &retryablehttp.Client{
		HTTPClient:   cleanhttp.DefaultClient(),
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1500 * time.Millisecond,
		RetryMax:     6,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	if opts.withRetryMaxSet {
		c.RetryMax = opts.withRetryMax
	}
	if opts.withLogger != nil {
		c.Logger = opts.withLogger
	}

	base := &url.URL{Scheme: u.Scheme, Host: u.Host}
	switch u.Scheme {
	case unixScheme:
		if u.Path == "" {
			return nil, errors.New(ctx, errors.InvalidParameter, op, "address path is empty")
		}
		socketPath := u.Path
		transport := c.HTTPClient.Transport.(*http.Transport)
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			dialer := net.Dialer{}
			return dialer.DialContext(ctx, "unix", socketPath)
		}
		base = &url.URL{Scheme: "http", Host: hostHeader}
	case "http", "https":
		if u.Host == "" {
			return nil, errors.New(ctx, errors.InvalidParameter, op, "address host is empty")
		}
	default:
		return nil, errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("unsupported address scheme %q", u.Scheme))
	}
	return &Client{client: c, base: base, addr: address}, nil
}

// Addr returns the address the client was created with
func (c *Client) Addr() string {
	return c.addr
}

// Get sends a GET http request to the provided path. The vals provided are
// encoded and attached to the request if present.
func (c *Client) Get(ctx context.Context, path string, vals *url.Values) (*api.Response, error) {
	return c.do(ctx, c.request(ctx, http.MethodGet, path, vals))
}

// Post sends a POST http request to the provided path. The body is marshaled
// to json and added to the request body.
func (c *Client) Post(ctx context.Context, path string, vals *url.Values, body any) (*api.Response, error) {
	req := c.request(ctx, http.MethodPost, path, vals)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling body: %w", err)
		}
		if err := req.SetBody(b); err != nil {
			return nil, fmt.Errorf("error setting body: %w", err)
		}
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *retryablehttp.Request) (*api.Response, error) {
	const op = "client.(Client).do"
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.Canceled))
		}
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.Network), errors.WithMsg("unable to reach the cache daemon at %s", c.addr))
	}
	c.observeVersion(resp.Header.Get(daemon.VersionHeaderKey))
	return api.NewResponse(resp), nil
}

// request returns a retryablehttp.Request addressed to the daemon with the
// client's version attached.
func (c *Client) request(ctx context.Context, method, path string, vals *url.Values) *retryablehttp.Request {
	u := *c.base
	u.Path = path
	if vals != nil {
		u.RawQuery = vals.Encode()
	}
	req := &http.Request{
		Method: method,
		URL:    &u,
		Host:   u.Host,
	}
	req.Header = http.Header{}
	req.Header.Set(daemon.VersionHeaderKey, version.Get().VersionNumber())
	req.Header.Set("content-type", "application/json")

	return &retryablehttp.Request{
		Request: req.Clone(ctx),
	}
}

func (c *Client) observeVersion(v string) {
	if v == "" {
		return
	}
	parsed, err := gvers.NewVersion(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.daemonVer = parsed
}

// DaemonVersion returns the version the daemon reported, asking for its
// status when no response has been seen yet.
func (c *Client) DaemonVersion(ctx context.Context) (*gvers.Version, error) {
	const op = "client.(Client).DaemonVersion"
	c.mu.Lock()
	v := c.daemonVer
	c.mu.Unlock()
	if v != nil {
		return v, nil
	}
	if _, apiErr, err := c.Status(ctx); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	} else if apiErr != nil {
		return nil, errors.Wrap(ctx, apiErr, op, errors.WithCode(errors.Api))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.daemonVer == nil {
		return nil, errors.New(ctx, errors.Unsupported, op, "daemon did not report its version")
	}
	return c.daemonVer, nil
}

func (c *Client) requireFeature(ctx context.Context, f version.Feature, name string) error {
	const op = "client.(Client).requireFeature"
	v, err := c.DaemonVersion(ctx)
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if !version.SupportsFeature(v, f) {
		return errors.New(ctx, errors.Unsupported, op, fmt.Sprintf("the daemon at version %s does not support %s; restart it with a newer release", v, name))
	}
	return nil
}

// Status returns the daemon's status. A non nil *api.Error is returned when
// the daemon answered with an error status.
func (c *Client) Status(ctx context.Context) (*daemon.StatusResult, *api.Error, error) {
	const op = "client.(Client).Status"
	resp, err := c.Get(ctx, statusPath, nil)
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	res := &daemon.StatusResult{}
	apiErr, err := resp.Decode(res)
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	if apiErr != nil {
		return nil, apiErr, nil
	}
	return res, nil, nil
}

// SearchRequest selects a resource view. Term and Filter are only sent when
// set, so the daemon keeps the values from earlier requests otherwise. An
// empty string clears them.
type SearchRequest struct {
	Resource     string
	Term         *string
	Filter       *string
	SortBy       string
	Descending   bool
	ForceRefresh bool
}

func (r *SearchRequest) values() *url.Values {
	vals := &url.Values{}
	vals.Set("resource", r.Resource)
	if r.Term != nil {
		vals.Set("term", *r.Term)
	}
	if r.Filter != nil {
		vals.Set("filter", *r.Filter)
	}
	if r.SortBy != "" {
		vals.Set("sort_by", r.SortBy)
		dir := "asc"
		if r.Descending {
			dir = "desc"
		}
		vals.Set("sort_direction", dir)
	}
	if r.ForceRefresh {
		vals.Set("force_refresh", strconv.FormatBool(true))
	}
	return vals
}

// Search returns the daemon's view of a resource after applying the request's
// search term, filter and sort.
func (c *Client) Search(ctx context.Context, r *SearchRequest) (*daemon.SearchResult, *api.Error, error) {
	const op = "client.(Client).Search"
	switch {
	case r == nil:
		return nil, nil, errors.New(ctx, errors.InvalidParameter, op, "search request is nil")
	case r.Resource == "":
		return nil, nil, errors.New(ctx, errors.InvalidParameter, op, "resource is empty")
	}
	if r.Filter != nil && *r.Filter != "" {
		if err := c.requireFeature(ctx, version.SearchFilterFeature, "filters"); err != nil {
			return nil, nil, errors.Wrap(ctx, err, op)
		}
	}
	resp, err := c.Get(ctx, searchPath, r.values())
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	res := &daemon.SearchResult{}
	apiErr, err := resp.Decode(res)
	if err != nil {
		return nil, nil, errors.Wrap(ctx, err, op)
	}
	if apiErr != nil {
		return nil, apiErr, nil
	}
	return res, nil, nil
}

// Refresh asks the daemon to refetch resource, or every resource when it is
// empty. The daemon answers before the fetches complete.
func (c *Client) Refresh(ctx context.Context, resource string) (*api.Error, error) {
	const op = "client.(Client).Refresh"
	if err := c.requireFeature(ctx, version.RefreshEndpointFeature, "refreshing"); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	var vals *url.Values
	if resource != "" {
		vals = &url.Values{}
		vals.Set("resource", resource)
	}
	resp, err := c.Post(ctx, refreshPath, vals, nil)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	apiErr, err := resp.Decode(nil)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	return apiErr, nil
}
