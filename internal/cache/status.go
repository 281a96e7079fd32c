// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"time"

	"github.com/coverline/benefitcache/internal/errors"
)

type ErrorStatus struct {
	Error string
	Code  errors.Code
}

// KeyStatus contains the status of one cache key
type KeyStatus struct {
	EntityType EntityType
	Key        string
	Params     Params
	Status     Status
	Count      int
	Total      int
	Stale      bool
	InFlight   bool
	// Seq is the number of the latest request issued for the key
	Seq       uint64
	LastError *ErrorStatus
	// Age is how long ago the items were last replaced from the server. It is
	// zero for a key that was never loaded.
	Age time.Duration
}

// StoreStatus contains the status of every key in the store and the view
// state of every entity type.
type StoreStatus struct {
	Keys  []KeyStatus
	Views map[EntityType]ViewState
}

// Status returns the status of every key the store holds, ordered by entity
// type then key.
func (s *Store) Status(ctx context.Context) (*StoreStatus, error) {
	const op = "cache.(Store).Status"
	if ctx == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing context")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ret := &StoreStatus{Views: make(map[EntityType]ViewState, len(s.views))}
	for et, v := range s.views {
		ret.Views[et] = v.public()
	}
	for _, et := range AllEntityTypes() {
		for _, e := range s.entriesLocked(et) {
			ks := KeyStatus{
				EntityType: e.et,
				Key:        e.key,
				Params:     e.params.Clone(),
				Status:     e.snap.Status,
				Count:      len(e.snap.Items),
				Total:      e.snap.Total,
				Stale:      e.snap.Stale,
				InFlight:   e.inflight != nil,
				Seq:        e.seq,
			}
			if e.snap.Err != nil {
				ks.LastError = &ErrorStatus{Error: e.snap.Err.Error(), Code: Classify(e.snap.Err)}
			}
			if !e.snap.UpdatedTime.IsZero() {
				ks.Age = now.Sub(e.snap.UpdatedTime)
			}
			ret.Keys = append(ret.Keys, ks)
		}
	}
	return ret, nil
}

// Keys returns the keys the store holds for et, sorted
func (s *Store) Keys(et EntityType) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, e := range s.entriesLocked(et) {
		keys = append(keys, e.key)
	}
	return keys
}
