// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"fmt"
	"strings"
)

// EntityType names a collection served by the benefits API
type EntityType string

const (
	UnknownEntityType EntityType = ""
	Organizations     EntityType = "organizations"
	Users             EntityType = "users"
	InsurancePlans    EntityType = "insurance-plans"
	Requests          EntityType = "requests"
)

// AllEntityTypes returns every entity type the cache knows, in display order.
func AllEntityTypes() []EntityType {
	return []EntityType{Organizations, Users, InsurancePlans, Requests}
}

func (e EntityType) String() string {
	return string(e)
}

// Valid reports whether e is a known entity type
func (e EntityType) Valid() bool {
	switch e {
	case Organizations, Users, InsurancePlans, Requests:
		return true
	}
	return false
}

// ParseEntityType accepts the canonical names plus a few aliases used by the
// dashboard ("companies", "plans", "access-requests").
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "organizations", "organization", "companies", "company":
		return Organizations, nil
	case "users", "user":
		return Users, nil
	case "insurance-plans", "insurance-plan", "plans", "plan":
		return InsurancePlans, nil
	case "requests", "request", "access-requests":
		return Requests, nil
	}
	return UnknownEntityType, fmt.Errorf("unknown entity type %q", s)
}

// Record is any item held in a Snapshot. All records carry a server-assigned
// id unique within their collection.
type Record interface {
	GetId() string
}

// Status is the lifecycle state of a cache key
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
