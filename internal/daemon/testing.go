// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/coverline/benefitcache/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLister serves fixed collections to a store and counts the list calls
// made for each entity type.
type TestLister struct {
	mu    sync.Mutex
	items map[cache.EntityType][]cache.Record
	err   map[cache.EntityType]error
	calls map[cache.EntityType]int
}

// NewTestLister returns a TestLister holding a small set of every entity
// type.
func NewTestLister() *TestLister {
	return &TestLister{
		items: map[cache.EntityType][]cache.Record{
			cache.Organizations: {
				&organizations.Organization{Id: "o_1", Name: "Acme", EmployeeCount: 2},
			},
			cache.Users: {
				&users.User{Id: "u_1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: users.RoleAdmin, OrganizationId: "o_1"},
				&users.User{Id: "u_2", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Role: users.RoleSubscriber, OrganizationId: "o_1"},
			},
			cache.InsurancePlans: {
				&insuranceplans.InsurancePlan{Id: "p_1", Name: "Gold Health", Provider: "Aetna", PlanType: insuranceplans.PlanTypeHealth},
			},
			cache.Requests: {
				&accessrequests.AccessRequest{Id: "r_1", RequesterId: "u_2", OrganizationId: "o_1", Status: accessrequests.StatusPending},
			},
		},
		err:   make(map[cache.EntityType]error),
		calls: make(map[cache.EntityType]int),
	}
}

// SetErr makes the following lists of et fail with err. A nil err clears it.
func (l *TestLister) SetErr(et cache.EntityType, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err[et] = err
}

// Count returns how many times et was listed
func (l *TestLister) Count(et cache.EntityType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[et]
}

func (l *TestLister) list(et cache.EntityType) cache.ListFunc {
	return func(_ context.Context, _ cache.Params) ([]cache.Record, int, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls[et]++
		if err := l.err[et]; err != nil {
			return nil, 0, err
		}
		items := append([]cache.Record(nil), l.items[et]...)
		return items, len(items), nil
	}
}

type TestServer struct {
	*CacheServer
	Lister *TestLister
}

// NewTestServer starts a cache server on a random local port backed by the
// lister's collections. The server is shut down when the test finishes.
func NewTestServer(t testing.TB, l *TestLister) *TestServer {
	t.Helper()
	ctx := context.Background()
	if l == nil {
		l = NewTestLister()
	}

	var storeOpts []cache.Option
	for _, et := range cache.AllEntityTypes() {
		storeOpts = append(storeOpts, cache.WithResourceFuncs(et, cache.ResourceFuncs{List: l.list(et)}))
	}
	store, err := cache.NewStore(ctx, storeOpts...)
	require.NoError(t, err)

	s, err := New(ctx, &Config{ListenAddr: "127.0.0.1:0", Store: store})
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(ctx)
	}()
	t.Cleanup(func() {
		assert.NoError(t, s.Shutdown(ctx))
		select {
		case err := <-served:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("cache server did not stop")
		}
	})
	return &TestServer{CacheServer: s, Lister: l}
}
