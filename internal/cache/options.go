// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"time"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/internal/util"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

type options struct {
	withLogger            hclog.Logger
	withApiClient         *api.Client
	withResourceFuncs     map[EntityType]ResourceFuncs
	withFetchTimeout      time.Duration
	withMetricsRegisterer prometheus.Registerer
	withForceRefresh      bool
	withDefaultSort       map[EntityType]SortOrder
	withNowFunc           func() time.Time
}

// Option - how options are passed as args
type Option func(*options) error

func getDefaultOptions() options {
	return options{
		withFetchTimeout:  defaultFetchTimeout,
		withResourceFuncs: make(map[EntityType]ResourceFuncs),
		withNowFunc:       time.Now,
	}
}

func getOpts(opt ...Option) (options, error) {
	opts := getDefaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// WithLogger provides an option for specifying the logger
func WithLogger(l hclog.Logger) Option {
	return func(o *options) error {
		if !util.IsNil(l) {
			o.withLogger = l
		}
		return nil
	}
}

// WithApiClient provides an option for building the resource funcs of every
// entity type from a benefits API client
func WithApiClient(c *api.Client) Option {
	return func(o *options) error {
		o.withApiClient = c
		return nil
	}
}

// WithResourceFuncs provides an option for specifying the API operations of
// one entity type. It takes precedence over funcs built by WithApiClient.
func WithResourceFuncs(et EntityType, fns ResourceFuncs) Option {
	return func(o *options) error {
		if !et.Valid() {
			return errInvalidEntityType(et)
		}
		o.withResourceFuncs[et] = fns
		return nil
	}
}

// WithFetchTimeout provides an option for bounding background list requests
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d > 0 {
			o.withFetchTimeout = d
		}
		return nil
	}
}

// WithMetricsRegisterer provides an option for registering the store's
// collectors
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *options) error {
		o.withMetricsRegisterer = r
		return nil
	}
}

// WithForceRefresh provides an option for issuing a new request even when a
// fresh snapshot is cached or a request is already in flight
func WithForceRefresh(b bool) Option {
	return func(o *options) error {
		o.withForceRefresh = b
		return nil
	}
}

// WithDefaultSort provides an option for the initial sort order of an entity
// type's view
func WithDefaultSort(et EntityType, s SortOrder) Option {
	return func(o *options) error {
		if !et.Valid() {
			return errInvalidEntityType(et)
		}
		if o.withDefaultSort == nil {
			o.withDefaultSort = make(map[EntityType]SortOrder)
		}
		o.withDefaultSort[et] = s
		return nil
	}
}

// withNowFunc provides an option for a test clock
func withNowFunc(fn func() time.Time) Option {
	return func(o *options) error {
		if fn != nil {
			o.withNowFunc = fn
		}
		return nil
	}
}
