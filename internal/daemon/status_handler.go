// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
	"github.com/coverline/benefitcache/version"
)

type ErrorStatus struct {
	Error string
	Code  string `json:",omitempty"`
}

// ResourceStatus contains the status of one cache key
type ResourceStatus struct {
	Name     string
	Key      string
	Params   map[string]string `json:",omitempty"`
	Status   string
	Count    int
	Total    int
	Stale    bool `json:",omitempty"`
	InFlight bool `json:",omitempty"`
	// Age is how long ago the items were last replaced from the server
	Age       time.Duration `json:",omitempty"`
	LastError *ErrorStatus  `json:",omitempty"`
}

// StatusResult is the struct returned to status requests.
type StatusResult struct {
	Uptime        time.Duration `json:",omitempty"`
	ListenAddress string        `json:",omitempty"`
	Version       string        `json:",omitempty"`
	Resources     []ResourceStatus
	Views         map[string]cache.ViewState `json:",omitempty"`
}

func newStatusHandlerFunc(ctx context.Context, store *cache.Store, listenAddr string) (http.HandlerFunc, error) {
	const op = "daemon.newStatusHandlerFunc"
	switch {
	case util.IsNil(store):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "store is missing")
	}
	started := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodGet {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		res, err := store.Status(ctx)
		if err != nil {
			writeError(w, err.Error(), httpStatusFor(err))
			return
		}
		if res == nil {
			writeError(w, "nil StoreStatus generated", http.StatusInternalServerError)
			return
		}

		apiRes := toApiStatus(res, started, listenAddr)
		j, err := json.Marshal(apiRes)
		if err != nil {
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(j)
	}, nil
}

// toApiStatus converts a domain status result to an api status result
func toApiStatus(in *cache.StoreStatus, started time.Time, listenAddr string) *StatusResult {
	if in == nil {
		return nil
	}

	out := &StatusResult{
		Uptime:        time.Since(started),
		ListenAddress: listenAddr,
		Version:       version.Get().VersionNumber(),
		Resources:     make([]ResourceStatus, 0, len(in.Keys)),
	}
	for _, k := range in.Keys {
		rs := ResourceStatus{
			Name:     k.EntityType.String(),
			Key:      k.Key,
			Status:   k.Status.String(),
			Count:    k.Count,
			Total:    k.Total,
			Stale:    k.Stale,
			InFlight: k.InFlight,
			Age:      k.Age,
		}
		if !k.Params.IsDefault() {
			rs.Params = k.Params.Clone()
		}
		if k.LastError != nil {
			rs.LastError = &ErrorStatus{
				Error: k.LastError.Error,
				Code:  k.LastError.Code.String(),
			}
		}
		out.Resources = append(out.Resources, rs)
	}
	if len(in.Views) > 0 {
		out.Views = make(map[string]cache.ViewState, len(in.Views))
		for et, v := range in.Views {
			out.Views[et.String()] = v
		}
	}
	return out
}
