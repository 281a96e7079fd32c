// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package organizations_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, h http.Handler) *organizations.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := api.NewClient(&api.Config{Addr: srv.URL})
	require.NoError(t, err)
	c.SetMaxRetries(0)
	return organizations.NewClient(c)
}

func TestOrganizations_List(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	var gotSearch string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/companies", func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		_, _ = w.Write([]byte(`{"result":[{"id":"c_1","name":"Acme","start_date":"2023-01-15","renewal_date":"2024-01-15","employee_count":12},{"id":"c_2","name":"Globex","start_date":"2022-06-01","employee_count":3}],"total":7}`))
	})
	c := testClient(t, mux)

	res, err := c.List(context.Background(), organizations.WithSearch("  ac "))
	require.NoError(err)
	assert.Equal("ac", gotSearch)
	require.Len(res.GetItems(), 2)
	assert.Equal(7, res.Total)
	assert.Equal(civil.Date{Year: 2023, Month: 1, Day: 15}, res.Items[0].StartDate)
	require.NotNil(res.Items[0].RenewalDate)
	assert.Nil(res.Items[1].RenewalDate)
	assert.NotNil(res.GetResponse())
}

func TestOrganizations_CreateReadUpdate(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	var patch map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/companies", func(w http.ResponseWriter, r *http.Request) {
		var in organizations.Organization
		assert.NoError(json.NewDecoder(r.Body).Decode(&in))
		in.Id = "c_new"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	})
	mux.HandleFunc("GET /v1/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c_new" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"c_new","name":"Acme"}`))
	})
	mux.HandleFunc("PATCH /v1/companies/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(json.NewDecoder(r.Body).Decode(&patch))
		_, _ = w.Write([]byte(`{"id":"c_new","name":"Acme Corp","employee_count":40}`))
	})
	c := testClient(t, mux)
	ctx := context.Background()

	created, err := c.Create(ctx, &organizations.Organization{
		Name:      "Acme",
		StartDate: civil.Date{Year: 2024, Month: 3, Day: 1},
	})
	require.NoError(err)
	assert.Equal("c_new", created.GetItem().Id)
	assert.Equal(civil.Date{Year: 2024, Month: 3, Day: 1}, created.Item.StartDate)

	_, err = c.Create(ctx, &organizations.Organization{Id: "set"})
	require.Error(err)

	read, err := c.Read(ctx, "c_new")
	require.NoError(err)
	assert.Equal("Acme", read.Item.Name)

	_, err = c.Read(ctx, "c_gone")
	require.Error(err)
	assert.ErrorIs(err, api.ErrNotFound)

	updated, err := c.Update(ctx, "c_new", organizations.WithName("Acme Corp"), organizations.WithPatch(map[string]any{"employee_count": 40}))
	require.NoError(err)
	assert.Equal("Acme Corp", updated.Item.Name)
	assert.Equal(map[string]any{"name": "Acme Corp", "employee_count": float64(40)}, patch)

	_, err = c.Update(ctx, "c_new")
	require.Error(err)
	_, err = c.Update(ctx, "", organizations.WithName("x"))
	require.Error(err)
}

func TestOrganizations_NilClient(t *testing.T) {
	c := organizations.NewClient(nil)
	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, "nil client", err.Error())
}
