// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
)

const (
	resourceKey      = "resource"
	termKey          = "term"
	filterKey        = "filter"
	sortByKey        = "sort_by"
	sortDirectionKey = "sort_direction"
	forceRefreshKey  = "force_refresh"

	sortAscending  = "asc"
	sortDescending = "desc"
)

// SearchResult is the struct returned to search requests. Only the slice
// matching Resource is populated.
type SearchResult struct {
	Resource       string                          `json:"resource"`
	Organizations  []*organizations.Organization   `json:"organizations,omitempty"`
	Users          []*users.User                   `json:"users,omitempty"`
	InsurancePlans []*insuranceplans.InsurancePlan `json:"insurance_plans,omitempty"`
	AccessRequests []*accessrequests.AccessRequest `json:"access_requests,omitempty"`
	// Count is the number of items after search and filter
	Count int `json:"count"`
	// Total is the server-reported size of the whole collection
	Total  int             `json:"total"`
	Status string          `json:"status"`
	Stale  bool            `json:"stale,omitempty"`
	Error  *ErrorStatus    `json:"error,omitempty"`
	State  cache.ViewState `json:"state"`
}

func newSearchHandlerFunc(ctx context.Context, store *cache.Store) (http.HandlerFunc, error) {
	const op = "daemon.newSearchHandlerFunc"
	switch {
	case util.IsNil(store):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "store is missing")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodGet {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()

		resource := q.Get(resourceKey)
		if resource == "" {
			writeError(w, fmt.Sprintf("%s is a required field but was empty", resourceKey), http.StatusBadRequest)
			return
		}
		et, err := cache.ParseEntityType(resource)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		force := false
		if v := q.Get(forceRefreshKey); v != "" {
			if force, err = strconv.ParseBool(v); err != nil {
				writeError(w, fmt.Sprintf("%s must be a boolean", forceRefreshKey), http.StatusBadRequest)
				return
			}
		}

		var u cache.ViewUpdate
		if sortBy := q.Get(sortByKey); sortBy != "" {
			u.Sort = &cache.SortOrder{Key: sortBy}
			switch q.Get(sortDirectionKey) {
			case "", sortAscending:
				u.Sort.Ascending = true
			case sortDescending:
			default:
				writeError(w, fmt.Sprintf("%s must be %q or %q", sortDirectionKey, sortAscending, sortDescending), http.StatusBadRequest)
				return
			}
		}
		if q.Has(termKey) {
			term := q.Get(termKey)
			u.SearchTerm = &term
		}
		if q.Has(filterKey) {
			filter := q.Get(filterKey)
			u.Filter = &filter
		}
		if err := store.UpdateView(et, u); err != nil {
			writeError(w, err.Error(), httpStatusFor(err))
			return
		}

		// Wait for the collection so the view is never answered while the
		// first fetch is still running. A failed fetch is reported in the
		// result, not as a request error.
		if _, err := store.Load(ctx, et, nil, cache.WithForceRefresh(force)); err != nil {
			writeError(w, err.Error(), httpStatusFor(err))
			return
		}
		v, err := store.View(ctx, et)
		if err != nil {
			writeError(w, err.Error(), httpStatusFor(err))
			return
		}

		j, err := json.Marshal(toSearchResult(v))
		if err != nil {
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(j)
	}, nil
}

func toSearchResult(v *cache.ViewResult) *SearchResult {
	out := &SearchResult{
		Resource: v.EntityType.String(),
		Count:    len(v.Items),
		Total:    v.Total,
		Status:   v.Status.String(),
		Stale:    v.Stale,
		State:    v.State,
	}
	if v.Err != nil {
		out.Error = &ErrorStatus{Error: v.Err.Error(), Code: cache.Classify(v.Err).String()}
	}
	switch v.EntityType {
	case cache.Organizations:
		out.Organizations = recordsAs[*organizations.Organization](v.Items)
	case cache.Users:
		out.Users = recordsAs[*users.User](v.Items)
	case cache.InsurancePlans:
		out.InsurancePlans = recordsAs[*insuranceplans.InsurancePlan](v.Items)
	case cache.Requests:
		out.AccessRequests = recordsAs[*accessrequests.AccessRequest](v.Items)
	}
	return out
}

func recordsAs[T cache.Record](in []cache.Record) []T {
	out := make([]T, 0, len(in))
	for _, r := range in {
		if t, ok := r.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
