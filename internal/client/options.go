// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package client

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

type options struct {
	withRetryMax    int
	withRetryMaxSet bool
	withLogger      hclog.Logger
}

// Option - how options are passed as args
type Option func(*options) error

func getDefaultOptions() options {
	return options{}
}

func getOpts(opt ...Option) (options, error) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if err := o(&opts); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// WithRetryMax overrides how many times a request is retried while the daemon
// is unreachable.
func WithRetryMax(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("retry max %d must not be negative", n)
		}
		o.withRetryMax = n
		o.withRetryMaxSet = true
		return nil
	}
}

// WithLogger provides an optional logger for request retries.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) error {
		o.withLogger = l
		return nil
	}
}
