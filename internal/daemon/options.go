// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
)

type options struct {
	withLogger                         hclog.Logger
	withRefreshInterval                time.Duration
	withIntervalRandomizationFactor    float64
	withIntervalRandomizationFactorSet bool
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

// WithLogger provides an optional logger.
func WithLogger(_ context.Context, l hclog.Logger) Option {
	return func(o *options) error {
		o.withLogger = l
		return nil
	}
}

// withRefreshInterval provides an optional refresh interval.
func withRefreshInterval(_ context.Context, d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return fmt.Errorf("provided refresh interval %q must be positive", d)
		}
		o.withRefreshInterval = d
		return nil
	}
}

// withIntervalRandomizationFactor provides an optional interval randomziation factor.
func withIntervalRandomizationFactor(_ context.Context, f float64) Option {
	return func(o *options) error {
		if f < 0 || f > 1 {
			return fmt.Errorf("withIntervalRandomizationFactor must be between 0 and 1")
		}
		o.withIntervalRandomizationFactor = f
		o.withIntervalRandomizationFactorSet = true
		return nil
	}
}
