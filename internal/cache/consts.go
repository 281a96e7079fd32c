// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

/*
Package cache contains the session-scoped entity cache that sits between the
benefits API and its consumers.

A Store keeps one Snapshot per (entity type, list params) key. Concurrent
loads of the same key share one API request; a forced refresh issues a new
request whose response supersedes any older one still in flight. Mutations
go to the API first and are folded into the cached snapshots only after the
server answers with its canonical record.
*/
package cache

import "time"

const (
	// defaultFetchTimeout bounds a single background list request
	defaultFetchTimeout = 60 * time.Second

	// paramKeySeparator splits the entity type from the encoded params in a
	// cache key
	paramKeySeparator = "?"
)
