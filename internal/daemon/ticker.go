// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
	"github.com/hashicorp/go-hclog"
)

const (
	DefaultRefreshInterval = 5 * time.Minute

	defaultRandomizationFactor = 0.2
)

// refresher refreshes every collection held by the cache
type refresher interface {
	Refresh(context.Context) error
}

// storeRefresher marks every key of every entity type stale and starts a
// background fetch for each of them.
type storeRefresher struct {
	store *cache.Store
}

func (r storeRefresher) Refresh(ctx context.Context) error {
	const op = "daemon.(storeRefresher).Refresh"
	var errs []error
	for _, et := range cache.AllEntityTypes() {
		if err := r.store.Invalidate(ctx, et); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(ctx, errors.Join(errs...), op, errors.WithCode(errors.Closed))
	}
	return nil
}

// refreshTicker periodically asks its refresher to refresh the cache. A
// refresh can also be requested at any time with refresh().
type refreshTicker struct {
	logger                    hclog.Logger
	refresher                 refresher
	refreshInterval           time.Duration
	intervalRandomizationFact float64

	refreshChan chan struct{}
}

func newRefreshTicker(ctx context.Context, r refresher, opt ...Option) (*refreshTicker, error) {
	const op = "daemon.newRefreshTicker"
	if util.IsNil(r) {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "refresher is missing")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.InvalidParameter))
	}

	rt := &refreshTicker{
		logger:                    opts.withLogger,
		refresher:                 r,
		refreshInterval:           DefaultRefreshInterval,
		intervalRandomizationFact: defaultRandomizationFactor,
		refreshChan:               make(chan struct{}, 1),
	}
	if util.IsNil(rt.logger) {
		rt.logger = hclog.NewNullLogger()
	}
	if opts.withRefreshInterval > 0 {
		rt.refreshInterval = opts.withRefreshInterval
	}
	if opts.withIntervalRandomizationFactorSet {
		rt.intervalRandomizationFact = opts.withIntervalRandomizationFactor
	}
	return rt, nil
}

// refresh requests a refresh without waiting for the next tick. Requests made
// while one is already pending are collapsed into it.
func (rt *refreshTicker) refresh() {
	select {
	case rt.refreshChan <- struct{}{}:
	default:
	}
}

// startRefresh blocks, refreshing at a randomized interval around the
// configured one and whenever refresh() is called, until ctx is done.
func (rt *refreshTicker) startRefresh(ctx context.Context) {
	timer := time.NewTimer(rt.nextIntervalWithRandomness(rt.refreshInterval))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			rt.logger.Debug("refresh ticker stopped", "reason", ctx.Err())
			return
		case <-timer.C:
		case <-rt.refreshChan:
		}
		if err := rt.refresher.Refresh(ctx); err != nil {
			rt.logger.Error("refreshing cache", "error", err)
		}
		timer.Reset(rt.nextIntervalWithRandomness(rt.refreshInterval))
	}
}

// nextIntervalWithRandomness returns a duration uniformly distributed in
// [d - d*factor, d + d*factor].
func (rt *refreshTicker) nextIntervalWithRandomness(d time.Duration) time.Duration {
	if rt.intervalRandomizationFact == 0 {
		return d
	}
	delta := rt.intervalRandomizationFact * float64(d)
	min := float64(d) - delta
	return time.Duration(min + rand.Float64()*2*delta)
}
