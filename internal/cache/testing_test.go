// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
)

// listCall is a list request held by a gated fakeApi until the test replies.
type listCall struct {
	et     EntityType
	params Params
	reply  chan listReply
}

type listReply struct {
	items []Record
	total int
	err   error
}

func (c *listCall) respond(items []Record, err error) {
	c.reply <- listReply{items: items, total: len(items), err: err}
}

// fakeApi is an in-memory benefits API. Every operation is counted. When
// gated is set, list requests are handed to the test through the channel and
// block until answered.
type fakeApi struct {
	mu      sync.Mutex
	items   map[EntityType][]Record
	gated   chan *listCall
	nextId  int
	lists   map[string]int
	creates int
	updates int
	deletes int
	reads   int

	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func newFakeApi() *fakeApi {
	return &fakeApi{
		items: make(map[EntityType][]Record),
		lists: make(map[string]int),
	}
}

func (f *fakeApi) set(et EntityType, items ...Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[et] = items
}

func (f *fakeApi) gate() chan *listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gated = make(chan *listCall, 16)
	return f.gated
}

func (f *fakeApi) listCount(et EntityType, p Params) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists[Key(et, p)]
}

func (f *fakeApi) counts() (creates, updates, deletes, reads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates, f.deletes, f.reads
}

func (f *fakeApi) list(et EntityType) ListFunc {
	return func(ctx context.Context, params Params) ([]Record, int, error) {
		f.mu.Lock()
		f.lists[Key(et, params)]++
		gated := f.gated
		err := f.listErr
		var items []Record
		for _, r := range f.items[et] {
			if st := params["status"]; st != "" {
				if ar, ok := r.(*accessrequests.AccessRequest); ok && string(ar.Status) != st {
					continue
				}
			}
			items = append(items, r)
		}
		f.mu.Unlock()

		if gated != nil {
			c := &listCall{et: et, params: params, reply: make(chan listReply, 1)}
			select {
			case gated <- c:
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
			select {
			case r := <-c.reply:
				return r.items, r.total, r.err
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}
		if err != nil {
			return nil, 0, err
		}
		return items, len(items), nil
	}
}

func (f *fakeApi) indexLocked(et EntityType, id string) int {
	return indexOf(f.items[et], id)
}

func (f *fakeApi) funcs(et EntityType) ResourceFuncs {
	fns := ResourceFuncs{List: f.list(et)}
	fns.Read = func(ctx context.Context, id string) (Record, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.reads++
		i := f.indexLocked(et, id)
		if i < 0 {
			return nil, notFound()
		}
		return f.items[et][i], nil
	}
	fns.Create = func(ctx context.Context, payload Record) (Record, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.creates++
		if f.createErr != nil {
			return nil, f.createErr
		}
		f.nextId++
		r := withId(payload, fmt.Sprintf("new_%d", f.nextId))
		f.items[et] = append(slices.Clone(f.items[et]), r)
		return r, nil
	}
	fns.Update = func(ctx context.Context, id string, patch map[string]any) (Record, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.updates++
		if f.updateErr != nil {
			return nil, f.updateErr
		}
		i := f.indexLocked(et, id)
		if i < 0 {
			return nil, notFound()
		}
		r := applyPatch(f.items[et][i], patch)
		items := slices.Clone(f.items[et])
		items[i] = r
		f.items[et] = items
		return r, nil
	}
	fns.Delete = func(ctx context.Context, id string) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes++
		if f.deleteErr != nil {
			return f.deleteErr
		}
		i := f.indexLocked(et, id)
		if i < 0 {
			return notFound()
		}
		f.items[et] = slices.Delete(slices.Clone(f.items[et]), i, i+1)
		return nil
	}
	if et == Requests {
		fns.Read, fns.Create, fns.Delete = nil, nil, nil
	}
	return fns
}

func notFound() error {
	return &api.Error{Status: http.StatusNotFound, Code: api.ErrNotFound.Code, Message: "not found"}
}

func withId(r Record, id string) Record {
	switch v := r.(type) {
	case *organizations.Organization:
		c := *v
		c.Id = id
		return &c
	case *users.User:
		c := *v
		c.Id = id
		return &c
	case *insuranceplans.InsurancePlan:
		c := *v
		c.Id = id
		return &c
	}
	panic(fmt.Sprintf("unexpected record %T", r))
}

func applyPatch(r Record, patch map[string]any) Record {
	switch v := r.(type) {
	case *organizations.Organization:
		c := *v
		if n, ok := patch["name"].(string); ok {
			c.Name = n
		}
		if n, ok := patch["employee_count"].(int); ok {
			c.EmployeeCount = n
		}
		return &c
	case *users.User:
		c := *v
		if e, ok := patch["email"].(string); ok {
			c.Email = e
		}
		return &c
	case *insuranceplans.InsurancePlan:
		c := *v
		if n, ok := patch["name"].(string); ok {
			c.Name = n
		}
		return &c
	case *accessrequests.AccessRequest:
		c := *v
		if s, ok := patch["status"].(string); ok {
			c.Status = accessrequests.Status(s)
		}
		return &c
	}
	panic(fmt.Sprintf("unexpected record %T", r))
}

// testStore returns a store backed by api and closes it when the test ends.
func testStore(t *testing.T, f *fakeApi, opt ...Option) *Store {
	t.Helper()
	opts := []Option{withNowFunc(func() time.Time { return testNow })}
	for _, et := range AllEntityTypes() {
		opts = append(opts, WithResourceFuncs(et, f.funcs(et)))
	}
	s, err := NewStore(context.Background(), append(opts, opt...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close(context.Background()))
	})
	return s
}

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func org(id, name string, start civil.Date) *organizations.Organization {
	return &organizations.Organization{Id: id, Name: name, StartDate: start}
}

func planFixture(id, name string) *insuranceplans.InsurancePlan {
	return &insuranceplans.InsurancePlan{Id: id, Name: name, PlanType: insuranceplans.PlanTypeHealth}
}

var usersFixture = []users.User{
	{Id: "u_1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: users.RoleAdmin},
	{Id: "u_2", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Role: users.RoleSubscriber},
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func ids(items []Record) []string {
	out := make([]string, 0, len(items))
	for _, r := range items {
		out = append(out, r.GetId())
	}
	return out
}

// sameBacking reports whether two slices share their backing array
func sameBacking(a, b []Record) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// nextCall waits for the next gated list request
func nextCall(t *testing.T, calls chan *listCall) *listCall {
	t.Helper()
	select {
	case c := <-calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a list request")
	}
	return nil
}

// waitFor polls cond until it holds
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond)
}
