// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/coverline/benefitcache/internal/cache"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeLister serves fixed collections and counts list calls per entity type
type fakeLister struct {
	mu    sync.Mutex
	items map[cache.EntityType][]cache.Record
	err   map[cache.EntityType]error
	calls map[cache.EntityType]int
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		items: map[cache.EntityType][]cache.Record{
			cache.Organizations: {
				&organizations.Organization{Id: "o_1", Name: "Acme"},
				&organizations.Organization{Id: "o_2", Name: "Globex"},
			},
			cache.Users: {
				&users.User{Id: "u_1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: users.RoleAdmin},
				&users.User{Id: "u_2", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Role: users.RoleSubscriber},
				&users.User{Id: "u_3", FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil", Role: users.RoleAdmin},
			},
			cache.Requests: {
				&accessrequests.AccessRequest{Id: "r_1", Status: accessrequests.StatusPending},
			},
		},
		err:   make(map[cache.EntityType]error),
		calls: make(map[cache.EntityType]int),
	}
}

func (f *fakeLister) setErr(et cache.EntityType, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err[et] = err
}

func (f *fakeLister) count(et cache.EntityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[et]
}

func (f *fakeLister) list(et cache.EntityType) cache.ListFunc {
	return func(_ context.Context, _ cache.Params) ([]cache.Record, int, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls[et]++
		if err := f.err[et]; err != nil {
			return nil, 0, err
		}
		items := append([]cache.Record(nil), f.items[et]...)
		return items, len(items), nil
	}
}

type testServer struct {
	*CacheServer
	lister  *fakeLister
	client  *http.Client
	baseUrl string
}

// newTestServer starts a CacheServer on a random local port, backed by a
// store serving the fakeLister's collections.
func newTestServer(t *testing.T, f *fakeLister, opt ...Option) *testServer {
	t.Helper()
	ctx := context.Background()

	var storeOpts []cache.Option
	for _, et := range cache.AllEntityTypes() {
		storeOpts = append(storeOpts, cache.WithResourceFuncs(et, cache.ResourceFuncs{List: f.list(et)}))
	}
	store, err := cache.NewStore(ctx, storeOpts...)
	require.NoError(t, err)

	s, err := New(ctx, &Config{
		ListenAddr: "127.0.0.1:0",
		Store:      store,
		Registry:   prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() {
		served <- s.Serve(ctx, opt...)
	}()
	t.Cleanup(func() {
		require.NoError(t, s.Shutdown(ctx))
		select {
		case err := <-served:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Shutdown")
		}
	})
	return &testServer{
		CacheServer: s,
		lister:      f,
		client:      cleanhttp.DefaultClient(),
		baseUrl:     fmt.Sprintf("http://%s", s.ListenAddress()),
	}
}

func (s *testServer) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseUrl+path, nil)
	require.NoError(t, err)
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// decode reads a json body into out
func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out), string(b))
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}
