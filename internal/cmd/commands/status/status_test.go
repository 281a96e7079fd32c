// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package status

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/client"
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/coverline/benefitcache/internal/daemon"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	ctx := context.Background()
	srv := daemon.NewTestServer(t, nil)
	addr := srv.ListenAddress()

	ui := cli.NewMockUi()
	cmd := &Command{Command: base.NewCommand(ui)}
	require.Equal(t, base.CommandSuccess, cmd.Run([]string{"-daemon-addr", addr}), ui.ErrorWriter.String())
	out := ui.OutputWriter.String()
	assert.Contains(t, out, "Cache daemon information:")
	assert.Contains(t, out, addr)

	srv.Lister.SetErr(cache.Organizations, stderrors.New("benefits api unavailable"))
	c, err := client.New(ctx, addr)
	require.NoError(t, err)
	_, _, err = c.Search(ctx, &client.SearchRequest{Resource: "users"})
	require.NoError(t, err)
	_, _, err = c.Search(ctx, &client.SearchRequest{Resource: "organizations", Term: ptr("acme")})
	require.NoError(t, err)

	ui = cli.NewMockUi()
	cmd = &Command{Command: base.NewCommand(ui)}
	require.Equal(t, base.CommandSuccess, cmd.Run([]string{"-daemon-addr", addr}), ui.ErrorWriter.String())
	out = ui.OutputWriter.String()
	assert.Contains(t, out, "Cached collections:")
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "benefits api unavailable")
	assert.Contains(t, out, `term="acme"`)

	ui = cli.NewMockUi()
	cmd = &Command{Command: base.NewCommand(ui)}
	require.Equal(t, base.CommandSuccess, cmd.Run([]string{"-daemon-addr", addr, "-format", "json"}), ui.ErrorWriter.String())
	var got struct {
		StatusCode int                 `json:"status_code"`
		Item       daemon.StatusResult `json:"item"`
	}
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &got))
	assert.Equal(t, addr, got.Item.ListenAddress)
	var names []string
	for _, rs := range got.Item.Resources {
		names = append(names, rs.Name)
	}
	assert.ElementsMatch(t, []string{"users", "organizations"}, names)
}

func TestStatus_daemonNotRunning(t *testing.T) {
	ui := cli.NewMockUi()
	cmd := &Command{Command: base.NewCommand(ui)}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	cmd.Context = ctx
	assert.Equal(t, base.CommandCliError, cmd.Run([]string{"-daemon-addr", "127.0.0.1:1"}))
	assert.NotEmpty(t, ui.ErrorWriter.String())
}

func TestPrintStatus(t *testing.T) {
	out := printStatus(&daemon.StatusResult{
		ListenAddress: "127.0.0.1:9209",
		Version:       "0.3.0",
		Uptime:        90 * time.Second,
		Resources: []daemon.ResourceStatus{
			{Name: "users", Key: "users", Status: "loaded", Count: 2, Total: 2, Age: 5 * time.Second},
			{Name: "requests", Key: "requests?status=pending", Status: "error", Stale: true, LastError: &daemon.ErrorStatus{Error: "a | b"}},
		},
		Views: map[string]cache.ViewState{
			"users": {Sort: cache.SortOrder{Key: "email", Ascending: false}},
		},
	})
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "error (stale)")
	assert.Contains(t, out, "a / b")
	assert.Contains(t, out, "sort=email desc")

	out = printStatus(&daemon.StatusResult{ListenAddress: "127.0.0.1:9209"})
	assert.Contains(t, out, "No collections have been loaded")
}

func ptr(s string) *string { return &s }
