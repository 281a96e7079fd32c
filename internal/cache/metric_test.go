// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"testing"

	"github.com/coverline/benefitcache/api/organizations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeStoreCollectors(t *testing.T) {
	r := prometheus.NewRegistry()
	require.NoError(t, InitializeStoreCollectors(r))
	// registering twice is tolerated
	require.NoError(t, InitializeStoreCollectors(r))
	assert.NoError(t, InitializeStoreCollectors(nil))

	// every label combination is exported from the start
	assert.Equal(t, len(AllEntityTypes()), testutil.CollectAndCount(coalescedLoads))
	assert.Equal(t, len(AllEntityTypes())*4*2, testutil.CollectAndCount(mutations))
	assert.Equal(t, len(AllEntityTypes())*3, testutil.CollectAndCount(fetchLatency))
}

func TestStore_mutationMetrics(t *testing.T) {
	ctx := context.Background()
	f := newFakeApi()
	s := testStore(t, f, WithMetricsRegisterer(prometheus.NewRegistry()))

	success := mutations.WithLabelValues(string(Organizations), mutationCreate, outcomeSuccess)
	failure := mutations.WithLabelValues(string(Organizations), mutationUpdate, outcomeError)
	beforeSuccess, beforeFailure := testutil.ToFloat64(success), testutil.ToFloat64(failure)

	_, err := s.Create(ctx, Organizations, &organizations.Organization{Name: "Initech"})
	require.NoError(t, err)
	_, err = s.Update(ctx, Organizations, "o_404", map[string]any{"name": "x"})
	require.Error(t, err)

	assert.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))
}
