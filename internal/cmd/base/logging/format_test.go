// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    LogFormat
		wantErr bool
	}{
		{in: "", want: UnspecifiedFormat},
		{in: "standard", want: StandardFormat},
		{in: " JSON ", want: JSONFormat},
		{in: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "json", JSONFormat.String())
}
