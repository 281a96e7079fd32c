// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"net/http"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
)

// newRefreshHandlerFunc marks the requested entity type, or every type when
// no resource is given, stale and starts refetching it. It answers once the
// fetches are started, without waiting for them.
func newRefreshHandlerFunc(ctx context.Context, store *cache.Store) (http.HandlerFunc, error) {
	const op = "daemon.newRefreshHandlerFunc"
	switch {
	case util.IsNil(store):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "store is missing")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		types := cache.AllEntityTypes()
		if resource := r.URL.Query().Get(resourceKey); resource != "" {
			et, err := cache.ParseEntityType(resource)
			if err != nil {
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			types = []cache.EntityType{et}
		}
		for _, et := range types {
			if err := store.Invalidate(ctx, et); err != nil {
				writeError(w, err.Error(), httpStatusFor(err))
				return
			}
		}
		w.WriteHeader(http.StatusAccepted)
	}, nil
}
