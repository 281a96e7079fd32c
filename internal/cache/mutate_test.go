// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loaded(t *testing.T, s *Store, et EntityType, p Params) Snapshot {
	t.Helper()
	snap, err := s.Load(context.Background(), et, p)
	require.NoError(t, err)
	require.Equal(t, StatusLoaded, snap.Status)
	return snap
}

func peek(t *testing.T, s *Store, et EntityType, p Params) Snapshot {
	t.Helper()
	snap, ok := s.Peek(et, p)
	require.True(t, ok)
	return snap
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("appends the server record", func(t *testing.T) {
		f := newFakeApi()
		f.set(Organizations, org("o_1", "Acme", date(2020, 1, 1)))
		s := testStore(t, f)
		before := loaded(t, s, Organizations, nil)
		loaded(t, s, Organizations, Params{"search": "ac"})

		r, err := s.Create(ctx, Organizations, &organizations.Organization{Name: "Initech"})
		require.NoError(t, err)
		assert.Equal(t, "new_1", r.GetId())

		after := peek(t, s, Organizations, nil)
		assert.Equal(t, []string{"o_1", "new_1"}, ids(after.Items))
		assert.Equal(t, before.Total+1, after.Total)
		assert.False(t, after.Stale)
		assert.Same(t, r, after.Items[1])
		// the published slice is untouched
		assert.Equal(t, []string{"o_1"}, ids(before.Items))

		searched := peek(t, s, Organizations, Params{"search": "ac"})
		assert.True(t, searched.Stale)
		assert.Equal(t, []string{"o_1"}, ids(searched.Items))
	})

	t.Run("failure leaves the collection untouched", func(t *testing.T) {
		f := newFakeApi()
		f.set(Organizations, org("o_1", "Acme", date(2020, 1, 1)))
		s := testStore(t, f)
		before := loaded(t, s, Organizations, nil)

		f.mu.Lock()
		f.createErr = &api.Error{Status: http.StatusBadRequest, Code: api.ErrInvalidArgument.Code, Message: "bad"}
		f.mu.Unlock()
		r, err := s.Create(ctx, Organizations, &organizations.Organization{Name: "Initech"})
		require.Error(t, err)
		assert.Nil(t, r)
		assert.True(t, errors.Match(errors.T(errors.Api), err))
		assert.ErrorIs(t, err, api.ErrInvalidArgument)

		after := peek(t, s, Organizations, nil)
		assert.True(t, sameBacking(before.Items, after.Items))
		assert.Equal(t, before.Total, after.Total)
		assert.Equal(t, StatusLoaded, after.Status)
	})

	t.Run("network failure", func(t *testing.T) {
		f := newFakeApi()
		f.createErr = fmt.Errorf("connection reset by peer")
		s := testStore(t, f)
		_, err := s.Create(ctx, Users, &usersFixture[0])
		assert.True(t, errors.Match(errors.T(errors.Network), err))
	})

	t.Run("validation", func(t *testing.T) {
		f := newFakeApi()
		s := testStore(t, f)
		end := date(2019, 1, 1)
		tests := []struct {
			name    string
			et      EntityType
			payload Record
			wantMsg string
		}{
			{"org without name", Organizations, &organizations.Organization{}, "name is required"},
			{"wrong payload type", Organizations, planFixture("", "Gold"), "want *organizations.Organization"},
			{"negative employees", Organizations, &organizations.Organization{Name: "a", EmployeeCount: -1}, "must not be negative"},
			{"plan ends before start", InsurancePlans, &insuranceplans.InsurancePlan{Name: "p", StartDate: date(2020, 1, 1), EndDate: &end}, "before start date"},
			{"plan type", InsurancePlans, &insuranceplans.InsurancePlan{Name: "p", PlanType: "GOLD"}, `unknown plan type "GOLD"`},
			{"empty document", InsurancePlans, &insuranceplans.InsurancePlan{Name: "p", Documents: []*insuranceplans.Document{{Name: "x"}}}, "neither a url nor a file"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.Create(ctx, tt.et, tt.payload)
				require.Error(t, err)
				assert.True(t, errors.Match(errors.T(errors.Validation), err))
				assert.ErrorContains(t, err, tt.wantMsg)
			})
		}
		creates, _, _, _ := f.counts()
		assert.Zero(t, creates)
	})

	t.Run("unsupported and invalid", func(t *testing.T) {
		f := newFakeApi()
		s := testStore(t, f)
		_, err := s.Create(ctx, Requests, &accessrequests.AccessRequest{})
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
		assert.ErrorContains(t, err, "requests does not support create")

		_, err = s.Create(ctx, Organizations, nil)
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
		var nilOrg *organizations.Organization
		_, err = s.Create(ctx, Organizations, nilOrg)
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
		_, err = s.Create(ctx, "pets", org("", "a", date(2020, 1, 1)))
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))

		creates, _, _, _ := f.counts()
		assert.Zero(t, creates)
	})

	t.Run("never loaded type", func(t *testing.T) {
		f := newFakeApi()
		s := testStore(t, f)
		_, err := s.Create(ctx, Organizations, &organizations.Organization{Name: "Initech"})
		require.NoError(t, err)
		_, ok := s.Peek(Organizations, nil)
		assert.False(t, ok)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces only the matching record", func(t *testing.T) {
		f := newFakeApi()
		o1, o2, o3 := org("o_1", "Acme", date(2020, 1, 1)), org("o_2", "Globex", date(2020, 1, 1)), org("o_3", "Hooli", date(2020, 1, 1))
		f.set(Organizations, o1, o2, o3)
		s := testStore(t, f)
		before := loaded(t, s, Organizations, nil)
		loaded(t, s, Organizations, Params{"search": "o"})

		r, err := s.Update(ctx, Organizations, "o_2", map[string]any{"name": "Globex Corp"})
		require.NoError(t, err)
		assert.Equal(t, "Globex Corp", r.(*organizations.Organization).Name)

		after := peek(t, s, Organizations, nil)
		assert.Equal(t, []string{"o_1", "o_2", "o_3"}, ids(after.Items))
		assert.Same(t, o1, after.Items[0])
		assert.Same(t, r, after.Items[1])
		assert.Same(t, o3, after.Items[2])
		assert.Equal(t, before.Total, after.Total)
		assert.False(t, after.Stale)
		assert.Same(t, o2, before.Items[1])

		searched := peek(t, s, Organizations, Params{"search": "o"})
		assert.True(t, searched.Stale)
		assert.Same(t, r, searched.Items[1])
	})

	t.Run("failure leaves the collection untouched", func(t *testing.T) {
		f := newFakeApi()
		f.set(Organizations, org("o_1", "Acme", date(2020, 1, 1)))
		s := testStore(t, f)
		before := loaded(t, s, Organizations, nil)

		f.mu.Lock()
		f.updateErr = &api.Error{Status: http.StatusConflict, Code: api.ErrConflict.Code}
		f.mu.Unlock()
		_, err := s.Update(ctx, Organizations, "o_1", map[string]any{"name": "x"})
		assert.True(t, errors.Match(errors.T(errors.Api), err))
		after := peek(t, s, Organizations, nil)
		assert.True(t, sameBacking(before.Items, after.Items))
	})

	t.Run("not found", func(t *testing.T) {
		s := testStore(t, newFakeApi())
		_, err := s.Update(ctx, Users, "u_404", map[string]any{"email": "a@b.c"})
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("access request status", func(t *testing.T) {
		f := newFakeApi()
		f.set(Requests,
			&accessrequests.AccessRequest{Id: "r_1", Status: accessrequests.StatusPending},
			&accessrequests.AccessRequest{Id: "r_2", Status: accessrequests.StatusPending},
		)
		s := testStore(t, f)
		loaded(t, s, Requests, PendingRequests())

		_, err := s.Update(ctx, Requests, "r_1", map[string]any{"status": "maybe"})
		assert.True(t, errors.Match(errors.T(errors.Validation), err))
		_, err = s.Update(ctx, Requests, "r_1", map[string]any{"status": 7})
		assert.True(t, errors.Match(errors.T(errors.Validation), err))

		r, err := s.Update(ctx, Requests, "r_1", map[string]any{"status": "approved"})
		require.NoError(t, err)
		assert.Equal(t, accessrequests.StatusApproved, r.(*accessrequests.AccessRequest).Status)

		// the pending key is stale since r_1 no longer matches its filter
		pending := peek(t, s, Requests, PendingRequests())
		assert.True(t, pending.Stale)
		assert.Same(t, r, pending.Items[0])

		snap, err := s.Load(ctx, Requests, PendingRequests())
		require.NoError(t, err)
		assert.Equal(t, []string{"r_2"}, ids(snap.Items))
		assert.Equal(t, 1, snap.Total)
	})

	t.Run("invalid", func(t *testing.T) {
		f := newFakeApi()
		s := testStore(t, f)
		_, err := s.Update(ctx, Organizations, "", map[string]any{"name": "a"})
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
		_, err = s.Update(ctx, Organizations, "o_1", nil)
		assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
		_, err = s.Update(ctx, Organizations, "o_1", map[string]any{"id": "o_2"})
		assert.True(t, errors.Match(errors.T(errors.Validation), err))
		_, updates, _, _ := f.counts()
		assert.Zero(t, updates)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the record", func(t *testing.T) {
		f := newFakeApi()
		p1, p2 := planFixture("p_1", "Gold"), planFixture("p_2", "Silver")
		f.set(InsurancePlans, p1, p2)
		s := testStore(t, f)
		before := loaded(t, s, InsurancePlans, nil)
		loaded(t, s, InsurancePlans, Params{"company_id": "c_1"})

		require.NoError(t, s.Delete(ctx, InsurancePlans, "p_1"))
		after := peek(t, s, InsurancePlans, nil)
		assert.Equal(t, []string{"p_2"}, ids(after.Items))
		assert.Equal(t, before.Total-1, after.Total)
		assert.Same(t, p2, after.Items[0])
		assert.Equal(t, []string{"p_1", "p_2"}, ids(before.Items))

		byCompany := peek(t, s, InsurancePlans, Params{"company_id": "c_1"})
		assert.Equal(t, []string{"p_2"}, ids(byCompany.Items))
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		f := newFakeApi()
		f.set(InsurancePlans, planFixture("p_1", "Gold"))
		s := testStore(t, f)
		before := loaded(t, s, InsurancePlans, nil)

		// the fake answers 404 for ids it doesn't hold
		require.NoError(t, s.Delete(ctx, InsurancePlans, "p_404"))
		after := peek(t, s, InsurancePlans, nil)
		assert.True(t, sameBacking(before.Items, after.Items))
		assert.Equal(t, before.Total, after.Total)
		_, _, deletes, _ := f.counts()
		assert.Equal(t, 1, deletes)
	})

	t.Run("failure", func(t *testing.T) {
		f := newFakeApi()
		f.set(InsurancePlans, planFixture("p_1", "Gold"))
		s := testStore(t, f)
		before := loaded(t, s, InsurancePlans, nil)
		f.mu.Lock()
		f.deleteErr = &api.Error{Status: http.StatusForbidden, Code: api.ErrPermissionDenied.Code}
		f.mu.Unlock()

		err := s.Delete(ctx, InsurancePlans, "p_1")
		assert.True(t, errors.Match(errors.T(errors.Api), err))
		assert.ErrorIs(t, err, api.ErrPermissionDenied)
		after := peek(t, s, InsurancePlans, nil)
		assert.True(t, sameBacking(before.Items, after.Items))
	})

	t.Run("unsupported", func(t *testing.T) {
		f := newFakeApi()
		f.set(Organizations, org("o_1", "Acme", date(2020, 1, 1)))
		s := testStore(t, f)
		fns := f.funcs(Organizations)
		fns.Delete = nil
		s.funcs[Organizations] = fns
		for _, et := range []EntityType{Organizations, Requests} {
			err := s.Delete(ctx, et, "o_1")
			assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err), et)
			assert.ErrorContains(t, err, "does not support delete")
		}
		_, _, deletes, _ := f.counts()
		assert.Zero(t, deletes)
	})
}

func TestStore_Read(t *testing.T) {
	ctx := context.Background()
	f := newFakeApi()
	o1 := org("o_1", "Acme", date(2020, 1, 1))
	f.set(Organizations, o1)
	s := testStore(t, f)
	loaded(t, s, Organizations, nil)

	renamed := org("o_1", "Acme Inc", date(2020, 1, 1))
	f.set(Organizations, renamed)
	r, err := s.Read(ctx, Organizations, "o_1")
	require.NoError(t, err)
	assert.Same(t, renamed, r)
	assert.Same(t, renamed, peek(t, s, Organizations, nil).Items[0])

	_, err = s.Read(ctx, Organizations, "o_404")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = s.Read(ctx, Requests, "r_1")
	assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
	_, err = s.Read(ctx, Organizations, "")
	assert.True(t, errors.Match(errors.T(errors.InvalidParameter), err))
}

func TestStore_mutationDuringLoad(t *testing.T) {
	ctx := context.Background()
	f := newFakeApi()
	calls := f.gate()
	s := testStore(t, f)

	older := make(chan Snapshot)
	go func() {
		snap, err := s.Load(ctx, Organizations, nil)
		assert.NoError(t, err)
		older <- snap
	}()
	c1 := nextCall(t, calls)

	created, err := s.Create(ctx, Organizations, &organizations.Organization{Name: "Initech"})
	require.NoError(t, err)

	// the commit supersedes the in-flight request with a new one
	c2 := nextCall(t, calls)
	c1.respond([]Record{org("o_1", "Acme", date(2020, 1, 1))}, nil)
	<-older

	cur := peek(t, s, Organizations, nil)
	assert.Equal(t, StatusLoading, cur.Status)
	assert.Equal(t, []string{created.GetId()}, ids(cur.Items))

	c2.respond([]Record{org("o_1", "Acme", date(2020, 1, 1)), created}, nil)
	waitFor(t, func() bool { return peek(t, s, Organizations, nil).Fresh() })
	assert.Equal(t, []string{"o_1", created.GetId()}, ids(peek(t, s, Organizations, nil).Items))
}
