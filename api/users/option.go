// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package users

import (
	"strings"

	"github.com/coverline/benefitcache/api"
)

// Option is a func that sets optional attributes for a call. When an API call
// is made options are processed in the order they appear in the function
// call, so for a given argument X, a succession of WithX calls will result in
// the last call taking effect.
type Option func(*options)

type options struct {
	postMap       map[string]any
	queryMap      map[string]string
	withRequestId string
}

func getDefaultOptions() options {
	return options{
		postMap:  make(map[string]any),
		queryMap: make(map[string]string),
	}
}

func getOpts(opt ...Option) (options, []api.Option) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	var apiOpts []api.Option
	if opts.withRequestId != "" {
		apiOpts = append(apiOpts, api.WithRequestId(opts.withRequestId))
	}
	return opts, apiOpts
}

// WithSearch filters a List call by a free-text term matched by the server
func WithSearch(term string) Option {
	return func(o *options) {
		if term = strings.TrimSpace(term); term != "" {
			o.queryMap["search"] = term
		}
	}
}

// WithQuery adds raw query parameters to a List call
func WithQuery(q map[string]string) Option {
	return func(o *options) {
		for k, v := range q {
			o.queryMap[k] = v
		}
	}
}

// WithPatch sets the fields sent by an Update call. Keys are the JSON field
// names of User.
func WithPatch(patch map[string]any) Option {
	return func(o *options) {
		for k, v := range patch {
			o.postMap[k] = v
		}
	}
}

func WithFirstName(name string) Option {
	return func(o *options) {
		o.postMap["first_name"] = name
	}
}

func WithLastName(name string) Option {
	return func(o *options) {
		o.postMap["last_name"] = name
	}
}

func WithEmail(email string) Option {
	return func(o *options) {
		o.postMap["email"] = email
	}
}

func WithRole(role Role) Option {
	return func(o *options) {
		o.postMap["role"] = role
	}
}

// WithRequestId sets the X-Request-Id header of the call
func WithRequestId(id string) Option {
	return func(o *options) {
		o.withRequestId = id
	}
}
