// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	"testing"

	gvers "github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportsFeature(t *testing.T) {
	t.Parallel()
	tests := []struct {
		version string
		feature Feature
		want    bool
	}{
		{"0.1.0", SearchFilterFeature, false},
		{"0.2.0", SearchFilterFeature, true},
		{"0.2.0", RefreshEndpointFeature, false},
		{"0.3.0-dev", RefreshEndpointFeature, true},
		{"1.0.0+ent", RefreshEndpointFeature, true},
		{"1.0.0", UnknownFeature, false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			v, err := gvers.NewVersion(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SupportsFeature(v, tt.feature))
		})
	}
	assert.False(t, SupportsFeature(nil, SearchFilterFeature))
}

func TestGetReleaseVersion(t *testing.T) {
	t.Parallel()
	v, err := GetReleaseVersion()
	require.NoError(t, err)
	assert.True(t, SupportsFeature(v, RefreshEndpointFeature))
	assert.Contains(t, Get().FullVersionNumber(false), "benefitcache v")
}
