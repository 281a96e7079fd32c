// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"net/http"

	"github.com/coverline/benefitcache/internal/daemon/metric"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "benefitcache"
	apiSubSystem    = "daemon_api"
)

var expectedPathsToMethods = map[string][]string{
	statusPath:  {http.MethodGet},
	searchPath:  {http.MethodGet},
	refreshPath: {http.MethodPost},
	metricsPath: {http.MethodGet},
}

var universalStatusCodes = []int{
	http.StatusNotFound,
	http.StatusMethodNotAllowed,
	http.StatusBadRequest,
	http.StatusInternalServerError,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

var expectedStatusCodesPerMethod = map[string][]int{
	http.MethodGet:  append(universalStatusCodes, http.StatusOK),
	http.MethodPost: append(universalStatusCodes, http.StatusAccepted),
}

var (
	// 100 bytes, 1kb, 10kb, 100kb, 1mb, 10mb, 100mb, 1gb
	msgSizeBuckets = prometheus.ExponentialBuckets(100, 10, 8)

	// apiCollectors measure how long the daemon takes to answer a request
	// and the size of requests and responses.
	apiCollectors = metric.ApiCollectors{
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Subsystem: apiSubSystem,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			metric.ListHttpLabels,
		),
		RequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Subsystem: apiSubSystem,
				Name:      "http_request_size_bytes",
				Help:      "Histogram of request sizes for HTTP requests.",
				Buckets:   msgSizeBuckets,
			},
			metric.ListHttpLabels,
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Subsystem: apiSubSystem,
				Name:      "http_response_size_bytes",
				Help:      "Histogram of response sizes for HTTP responses.",
				Buckets:   msgSizeBuckets,
			},
			metric.ListHttpLabels,
		),
	}
)

// instrumentApiHandler measures every request served by h
func instrumentApiHandler(h http.Handler) http.Handler {
	return metric.InstrumentApiHandler(apiCollectors, expectedPathsToMethods, h)
}

// initializeApiCollectors registers the api collectors to r and initializes
// them to 0 for all possible label combinations.
func initializeApiCollectors(r prometheus.Registerer) {
	for _, v := range []prometheus.ObserverVec{apiCollectors.RequestLatency, apiCollectors.RequestSize, apiCollectors.ResponseSize} {
		metric.InitializeApiCollectors(r, v, expectedPathsToMethods, expectedStatusCodesPerMethod)
	}
}
