// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"testing"

	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityHandle(t *testing.T) {
	ctx := context.Background()
	f := newFakeApi()
	f.set(InsurancePlans, planFixture("p_1", "Gold"), planFixture("p_2", "Silver"))
	s := testStore(t, f)

	assert.Nil(t, s.Handle("pets"))
	h := s.Handle(InsurancePlans)
	require.NotNil(t, h)
	assert.Equal(t, InsurancePlans, h.EntityType())

	snap, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusLoaded, snap.Status)
	assert.Equal(t, StatusLoaded, h.Status(ctx))
	assert.NoError(t, h.Err(ctx))
	assert.Equal(t, []string{"p_1", "p_2"}, ids(h.Data(ctx)))
	assert.Len(t, ItemsOf[*insuranceplans.InsurancePlan](snap), 2)

	created, err := h.Create(ctx, &insuranceplans.InsurancePlan{Name: "Bronze"})
	require.NoError(t, err)
	_, err = h.Update(ctx, "p_2", map[string]any{"name": "Platinum"})
	require.NoError(t, err)
	require.NoError(t, h.Remove(ctx, "p_1"))

	require.NoError(t, h.Sort("name", false))
	v, err := h.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p_2", created.GetId()}, ids(v.Items))

	require.NoError(t, h.Filter(`"/item/name" == "Bronze"`))
	v, err = h.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{created.GetId()}, ids(v.Items))

	byCompany, err := h.LoadWith(ctx, Params{"company_id": "c_1"})
	require.NoError(t, err)
	assert.Equal(t, "insurance-plans?company_id=c_1", byCompany.Key)
	assert.Equal(t, 1, f.listCount(InsurancePlans, nil))
}
