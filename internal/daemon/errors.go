// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/internal/errors"
)

// writeError writes an error body the api package decodes into an *api.Error
func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	b, err := json.Marshal(&api.Error{Message: msg})
	if err != nil {
		return
	}
	w.Write(b)
}

// httpStatusFor maps the code of err to the status the daemon answers with
func httpStatusFor(err error) int {
	switch {
	case errors.Match(errors.T(errors.InvalidParameter), err),
		errors.Match(errors.T(errors.Validation), err):
		return http.StatusBadRequest
	case errors.Match(errors.T(errors.NotFound), err):
		return http.StatusNotFound
	case errors.Match(errors.T(errors.Unsupported), err):
		return http.StatusNotImplemented
	case errors.Match(errors.T(errors.Closed), err):
		return http.StatusServiceUnavailable
	case errors.Match(errors.T(errors.Canceled), err):
		return http.StatusGatewayTimeout
	case errors.Match(errors.T(errors.Network), err),
		errors.Match(errors.T(errors.Api), err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
