// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package version

import (
	gvers "github.com/hashicorp/go-version"
)

// Feature is a daemon capability that was added in a known release
type Feature int

const (
	UnknownFeature Feature = iota
	// SearchFilterFeature is the filter parameter of the search endpoint
	SearchFilterFeature
	// RefreshEndpointFeature is the forced refresh endpoint
	RefreshEndpointFeature
)

var featureMap map[Feature]gvers.Constraints

func init() {
	featureMap = make(map[Feature]gvers.Constraints)
	for f, c := range map[Feature]string{
		SearchFilterFeature:    ">= 0.2.0",
		RefreshEndpointFeature: ">= 0.3.0",
	} {
		constraints, err := gvers.NewConstraint(c)
		if err != nil {
			panic(err)
		}
		featureMap[f] = constraints
	}
}

// SupportsFeature reports whether a binary of the given version offers the
// feature. Prerelease builds are compared by their core version.
func SupportsFeature(version *gvers.Version, feature Feature) bool {
	if version == nil {
		return false
	}
	constraints, found := featureMap[feature]
	if !found {
		return false
	}
	return constraints.Check(version.Core())
}

// GetReleaseVersion returns the version of the running binary
func GetReleaseVersion() (*gvers.Version, error) {
	ver := Get()
	return gvers.NewVersion(ver.Version)
}
