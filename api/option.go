// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

// Option is a func that sets an optional value on a request
type Option func(*options)

type options struct {
	withRequestId   string
	withContentType string
}

func getDefaultOptions() options {
	return options{}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithRequestId overrides the generated X-Request-Id header value
func WithRequestId(id string) Option {
	return func(o *options) {
		o.withRequestId = id
	}
}

// WithContentType overrides the request Content-Type header
func WithContentType(ct string) Option {
	return func(o *options) {
		o.withContentType = ct
	}
}
