// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupEnv(t *testing.T) {
	tests := []struct {
		name       string
		in         []string
		env        string
		wantArgs   []string
		wantFormat string
	}{
		{name: "default", in: []string{"status"}, wantArgs: []string{"status"}, wantFormat: "table"},
		{name: "flag with equals", in: []string{"status", "-format=JSON"}, wantArgs: []string{"status", "-format=JSON"}, wantFormat: "json"},
		{name: "flag without equals", in: []string{"search", "-format", "json"}, wantArgs: []string{"search", "-format", "json"}, wantFormat: "json"},
		{name: "env", in: []string{"status"}, env: "json", wantArgs: []string{"status"}, wantFormat: "json"},
		{name: "flag wins over env", in: []string{"status", "-format", "table"}, env: "json", wantArgs: []string{"status", "-format", "table"}, wantFormat: "table"},
		{name: "stops at double dash", in: []string{"status", "--", "-format=json"}, wantArgs: []string{"status", "--", "-format=json"}, wantFormat: "table"},
		{name: "version shortcut", in: []string{"-v"}, wantArgs: []string{"version"}, wantFormat: "table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(base.EnvCacheCLIFormat, tt.env)
			args, format := setupEnv(tt.in)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestRunCustom(t *testing.T) {
	t.Setenv(base.EnvCacheCLIFormat, "")
	t.Setenv("COMP_LINE", "")

	t.Run("help", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := RunCustom([]string{"-h"}, &RunOptions{Stdout: &stdout, Stderr: &stderr})
		assert.Equal(t, 0, code)
		help := stderr.String()
		assert.Contains(t, help, "Usage: benefitcache <command> [args]")
		assert.Contains(t, help, "Daemon Commands:")
		for _, c := range []string{"start", "status", "search", "refresh", "version"} {
			assert.Contains(t, help, c)
		}
	})

	t.Run("version json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := RunCustom([]string{"version", "-format", "json"}, &RunOptions{Stdout: &stdout, Stderr: &stderr})
		require.Equal(t, 0, code, stderr.String())
		var got map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
		assert.NotEmpty(t, got["Version"])
	})

	t.Run("invalid format", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := RunCustom([]string{"status", "-format", "yaml"}, &RunOptions{Stdout: &stdout, Stderr: &stderr})
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "Invalid output format: yaml")
	})

	t.Run("user error", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		code := RunCustom([]string{"search"}, &RunOptions{Stdout: &stdout, Stderr: &stderr})
		assert.Equal(t, base.CommandUserError, code)
		assert.Contains(t, stderr.String(), "Resource is required")
	})
}
