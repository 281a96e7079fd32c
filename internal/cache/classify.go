// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"net/http"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/internal/errors"
)

// Classify maps any error produced while talking to the API onto the cache's
// error taxonomy:
//
//   - errors.Api: the server answered with an error status or a body that
//     could not be decoded
//   - errors.Network: the request never got an answer (transport failure,
//     timeout)
//   - errors.Canceled: the caller's context ended
//
// Errs created by this package keep their own code. A nil error classifies
// as errors.Unknown.
func Classify(err error) errors.Code {
	if err == nil {
		return errors.Unknown
	}
	var domainErr *errors.Err
	if errors.As(err, &domainErr) && domainErr.Code != errors.Unknown {
		return domainErr.Code
	}
	if apiErr := api.AsServerError(err); apiErr != nil {
		switch apiErr.Status {
		case http.StatusMethodNotAllowed, http.StatusNotImplemented:
			return errors.Unsupported
		}
		return errors.Api
	}
	if errors.Is(err, api.ErrUndecodable) {
		return errors.Api
	}
	if errors.Is(err, context.Canceled) {
		return errors.Canceled
	}
	// Transport errors, timeouts and anything else that never produced a
	// server answer.
	return errors.Network
}

// isApiNotFound reports whether err is a 404 answer from the API
func isApiNotFound(err error) bool {
	apiErr := api.AsServerError(err)
	return apiErr != nil && apiErr.Status == http.StatusNotFound
}

// wrapRemote wraps an API error with op, coding it by Classify.
func wrapRemote(ctx context.Context, err error, op errors.Op, opt ...errors.Option) error {
	if err == nil {
		return nil
	}
	opt = append([]errors.Option{errors.WithCode(Classify(err))}, opt...)
	return errors.Wrap(ctx, err, op, opt...)
}
