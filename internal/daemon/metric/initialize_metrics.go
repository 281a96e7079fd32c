// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

// Package metric provides functions to initialize the daemon specific
// collectors and hooks to measure metrics and update the relevant collectors.
package metric

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	LabelHttpPath   = "path"
	LabelHttpMethod = "method"
	LabelHttpCode   = "code"

	InvalidPathValue = "invalid"
)

var ListHttpLabels = []string{LabelHttpPath, LabelHttpMethod, LabelHttpCode}

/* The following methods are used to initialize Prometheus histogram vectors for http requests. */

// InitializeApiCollectors registers v with r and zeroes it for every
// combination of the expected paths, their methods and the status codes each
// method may answer with.
func InitializeApiCollectors(r prometheus.Registerer, v prometheus.ObserverVec, expectedPathsToMethods map[string][]string, expectedStatusCodesPerMethod map[string][]int) {
	if r == nil {
		return
	}
	r.MustRegister(v)

	for p, methods := range expectedPathsToMethods {
		for _, m := range methods {
			for _, sc := range expectedStatusCodesPerMethod[m] {
				v.With(prometheus.Labels{LabelHttpPath: p, LabelHttpMethod: strings.ToLower(m), LabelHttpCode: strconv.Itoa(sc)})
			}
		}
	}

	// When an invalid path is found, any method is possible, but we expect
	// an error response.
	p := InvalidPathValue
	for m := range expectedStatusCodesPerMethod {
		for _, sc := range []int{http.StatusNotFound, http.StatusMethodNotAllowed} {
			v.With(prometheus.Labels{LabelHttpPath: p, LabelHttpMethod: strings.ToLower(m), LabelHttpCode: strconv.Itoa(sc)})
		}
	}
}

// PathLabel maps the requested path to the label value recorded for metrics.
// Paths not in known are recorded as InvalidPathValue so the label's
// cardinality stays bounded.
func PathLabel(known map[string][]string, incomingPath string) string {
	if incomingPath == "" || incomingPath[0] != '/' {
		incomingPath = fmt.Sprintf("/%s", incomingPath)
	}
	incomingPath = path.Clean(incomingPath)
	if _, ok := known[incomingPath]; ok {
		return incomingPath
	}
	return InvalidPathValue
}

// ApiCollectors are the histograms measuring an http api
type ApiCollectors struct {
	RequestLatency prometheus.ObserverVec
	RequestSize    prometheus.ObserverVec
	ResponseSize   prometheus.ObserverVec
}

// InstrumentApiHandler provides a handler which measures api
// 1. The response size
// 2. The request size
// 3. The request latency
// and attaches status code, method, and path labels for each of these
// measurements.
func InstrumentApiHandler(c ApiCollectors, known map[string][]string, wrapped http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		l := prometheus.Labels{
			LabelHttpPath: PathLabel(known, req.URL.Path),
		}
		promhttp.InstrumentHandlerDuration(
			c.RequestLatency.MustCurryWith(l),
			promhttp.InstrumentHandlerRequestSize(
				c.RequestSize.MustCurryWith(l),
				promhttp.InstrumentHandlerResponseSize(
					c.ResponseSize.MustCurryWith(l),
					wrapped,
				),
			),
		).ServeHTTP(rw, req)
	})
}
