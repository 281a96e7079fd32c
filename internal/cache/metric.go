// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "benefitcache"
	storeSubsystem  = "store"

	labelEntity    = "entity"
	labelOutcome   = "outcome"
	labelOperation = "operation"

	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeDiscarded = "discarded"
)

// fetchLatency collects measurements of how long list requests issued by the
// store take, by entity type and outcome.
var fetchLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: metricNamespace,
		Subsystem: storeSubsystem,
		Name:      "fetch_duration_seconds",
		Help:      "Histogram of latencies for list requests issued by the entity store.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{labelEntity, labelOutcome},
)

// coalescedLoads counts loads that joined a request already in flight.
var coalescedLoads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: storeSubsystem,
		Name:      "coalesced_loads_total",
		Help:      "Count of loads served by joining an in-flight request.",
	},
	[]string{labelEntity},
)

// mutations counts create, update and delete calls by outcome.
var mutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: storeSubsystem,
		Name:      "mutations_total",
		Help:      "Count of mutations sent through the entity store.",
	},
	[]string{labelEntity, labelOperation, labelOutcome},
)

// InitializeStoreCollectors registers the store metrics to the prometheus
// registerer and initializes them to 0 for all possible label combinations.
func InitializeStoreCollectors(r prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{fetchLatency, coalescedLoads, mutations} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	for _, et := range AllEntityTypes() {
		for _, o := range []string{outcomeSuccess, outcomeError, outcomeDiscarded} {
			fetchLatency.WithLabelValues(string(et), o)
		}
		coalescedLoads.WithLabelValues(string(et))
		for _, op := range []string{"create", "update", "delete", "read"} {
			for _, o := range []string{outcomeSuccess, outcomeError} {
				mutations.WithLabelValues(string(et), op, o)
			}
		}
	}
	return nil
}
