// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerRefresh(t *testing.T) {
	ctx := context.Background()

	refresher := &fakeRefresher{make(chan struct{})}

	rt, err := newRefreshTicker(ctx, refresher, withRefreshInterval(ctx, time.Hour))
	require.NoError(t, err)

	tickerCtx, tickerCancel := context.WithCancel(ctx)
	go rt.startRefresh(tickerCtx)
	t.Cleanup(func() {
		tickerCancel()
	})

	testCtx, testCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer testCancel()
	rt.refresh()
	select {
	case <-refresher.called:
	case <-testCtx.Done():
		assert.Fail(t, "timed out waiting for the refresh ")
	}

	// wait and make sure we don't get yet another call
	select {
	case <-refresher.called:
		assert.Fail(t, "received an unexpected refresh call")
	case <-testCtx.Done():
	}
}

func TestTickerInterval(t *testing.T) {
	ctx := context.Background()

	refresher := &fakeRefresher{make(chan struct{})}
	rt, err := newRefreshTicker(ctx, refresher,
		withRefreshInterval(ctx, 10*time.Millisecond),
		withIntervalRandomizationFactor(ctx, 0))
	require.NoError(t, err)

	tickerCtx, tickerCancel := context.WithCancel(ctx)
	t.Cleanup(tickerCancel)
	go rt.startRefresh(tickerCtx)

	for i := 0; i < 3; i++ {
		select {
		case <-refresher.called:
		case <-time.After(5 * time.Second):
			require.Fail(t, "timed out waiting for a scheduled refresh")
		}
	}
}

func TestNewRefreshTicker(t *testing.T) {
	ctx := context.Background()
	_, err := newRefreshTicker(ctx, nil)
	assert.ErrorContains(t, err, "refresher is missing")

	_, err = newRefreshTicker(ctx, &fakeRefresher{}, withRefreshInterval(ctx, 0))
	assert.Error(t, err)
	_, err = newRefreshTicker(ctx, &fakeRefresher{}, withIntervalRandomizationFactor(ctx, 1.5))
	assert.Error(t, err)

	rt, err := newRefreshTicker(ctx, &fakeRefresher{})
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshInterval, rt.refreshInterval)
	assert.Equal(t, defaultRandomizationFactor, rt.intervalRandomizationFact)
}

func TestNextIntervalWithRandomness(t *testing.T) {
	ctx := context.Background()
	refresher := &fakeRefresher{make(chan struct{})}
	rt, err := newRefreshTicker(ctx, refresher, withIntervalRandomizationFactor(ctx, .2))
	require.NoError(t, err)

	interval := 10 * time.Second
	max, min := interval, interval
	for i := 0; i < 100; i++ {
		got := rt.nextIntervalWithRandomness(10 * time.Second)
		if got > max {
			max = got
		}
		if got < min {
			min = got
		}
	}
	assert.GreaterOrEqual(t, min, 8*time.Second)
	assert.LessOrEqual(t, max, 12*time.Second)
	assert.Less(t, min, interval)
	assert.Greater(t, max, interval)

	rt, err = newRefreshTicker(ctx, refresher, withIntervalRandomizationFactor(ctx, 0))
	require.NoError(t, err)
	assert.Equal(t, interval, rt.nextIntervalWithRandomness(interval))
}

func TestStoreRefresher(t *testing.T) {
	ctx := context.Background()
	f := newFakeLister()
	var opts []cache.Option
	for _, et := range cache.AllEntityTypes() {
		opts = append(opts, cache.WithResourceFuncs(et, cache.ResourceFuncs{List: f.list(et)}))
	}
	store, err := cache.NewStore(ctx, opts...)
	require.NoError(t, err)
	require.NoError(t, store.LoadAll(ctx))

	r := storeRefresher{store: store}
	require.NoError(t, r.Refresh(ctx))
	require.Eventually(t, func() bool {
		for _, et := range cache.AllEntityTypes() {
			if !store.Get(ctx, et).Fresh() {
				return false
			}
		}
		return f.count(cache.Users) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Close(ctx))
	assert.Error(t, r.Refresh(ctx))
}

type fakeRefresher struct {
	called chan struct{}
}

func (r *fakeRefresher) Refresh(context.Context) error {
	r.called <- struct{}{}
	return nil
}
