// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"time"

	"github.com/coverline/benefitcache/internal/util"
)

// Snapshot is an immutable view of one cache key. Items is never modified
// after the snapshot is published; mutations build a new slice.
type Snapshot struct {
	EntityType EntityType
	Params     Params
	Key        string

	Items []Record
	// Total is the server-reported collection size, which may differ from
	// len(Items).
	Total int

	Status Status
	// Stale marks data that is still served but known to need a refresh.
	Stale bool
	// Err is the error of the last failed fetch while Status is StatusError.
	Err error

	// UpdatedTime is when Items was last replaced from the server
	UpdatedTime time.Time
}

// Len returns the number of cached items
func (s Snapshot) Len() int {
	return len(s.Items)
}

// Find returns the record with the given id
func (s Snapshot) Find(id string) (Record, bool) {
	if i := indexOf(s.Items, id); i >= 0 {
		return s.Items[i], true
	}
	return nil, false
}

// Fresh reports whether the snapshot can be served without a fetch
func (s Snapshot) Fresh() bool {
	return s.Status == StatusLoaded && !s.Stale
}

// ItemsOf converts the records of a snapshot to their concrete type, skipping
// any record of another type.
func ItemsOf[T Record](s Snapshot) []T {
	out := make([]T, 0, len(s.Items))
	for _, r := range s.Items {
		if t, ok := r.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

func indexOf(items []Record, id string) int {
	for i, r := range items {
		if !util.IsNil(r) && r.GetId() == id {
			return i
		}
	}
	return -1
}
