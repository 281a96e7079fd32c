// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package start

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coverline/benefitcache/internal/client"
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/coverline/benefitcache/internal/config"
	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fakeBenefitsApi(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"result":[`+
			`{"id":"u_1","first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","role":"admin","company_id":"o_1"},`+
			`{"id":"u_2","first_name":"Alan","last_name":"Turing","email":"alan@example.com","role":"subscriber","company_id":"o_1"}`+
			`],"total":2}`)
	})
	mux.HandleFunc("/v1/companies", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"result":[{"id":"o_1","name":"Acme","start_date":"2024-01-01","employee_count":2}],"total":1}`)
	})
	empty := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"result":[],"total":0}`)
	}
	mux.HandleFunc("/v1/insurance-plans", empty)
	mux.HandleFunc("/v1/requests", empty)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func socketDir(t *testing.T) string {
	t.Helper()
	// unix socket paths are limited in length, so avoid the long test temp dir
	dir, err := os.MkdirTemp("", "bcs")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestCommand_Run(t *testing.T) {
	apiSrv := fakeBenefitsApi(t)
	t.Setenv("BENEFITS_ADDR", "")
	dir := socketDir(t)
	listenAddr := "unix://" + filepath.Join(dir, "d.sock")
	logPath := filepath.Join(t.TempDir(), "logs", "daemon.log")

	cfgPath := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
api {
	addr = %q
	max_retries = 1
}
daemon {
	listen_addr = %q
	refresh_interval = "1h"
	disable_metrics = true
}
log {
	level = "debug"
	file = %q
}
`, apiSrv.URL, listenAddr, logPath)), 0o600))

	ui := cli.NewMockUi()
	logs := &syncBuffer{}
	cmd := &Command{Command: base.NewCommand(ui), LogOutput: logs}

	code := make(chan int, 1)
	go func() {
		code <- cmd.Run([]string{"-config", cfgPath})
	}()

	ctx := context.Background()
	var c *client.Client
	require.Eventually(t, func() bool {
		var err error
		if c == nil {
			if c, err = client.New(ctx, listenAddr, client.WithRetryMax(0)); err != nil {
				return false
			}
		}
		res, apiErr, err := c.Search(ctx, &client.SearchRequest{Resource: "users"})
		if err != nil || apiErr != nil {
			return false
		}
		return res.Status == "loaded" && len(res.Users) == 2
	}, 10*time.Second, 50*time.Millisecond)

	st, apiErr, err := c.Status(ctx)
	require.NoError(t, err)
	require.Nil(t, apiErr)
	assert.Equal(t, listenAddr, st.ListenAddress)

	out := ui.OutputWriter.String()
	assert.Contains(t, out, "==> Benefits cache configuration:")
	assert.Contains(t, out, "Listen Address: "+listenAddr)
	assert.Contains(t, out, "Metrics: disabled")

	cmd.ContextCancel()
	select {
	case got := <-code:
		assert.Equal(t, base.CommandSuccess, got, ui.ErrorWriter.String())
	case <-time.After(10 * time.Second):
		t.Fatal("start command did not return after cancellation")
	}

	assert.Contains(t, logs.String(), "cache daemon listening")
	fileLogs, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(fileLogs), "cache daemon listening")
}

func TestCommand_RunErrors(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`daemon { refresh_interval = "10ms" }`), 0o600))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "dev-and-config",
			args:    []string{"-dev", "-config", cfgPath},
			wantErr: "cannot be used together",
		},
		{
			name:    "missing-config",
			args:    []string{"-config", filepath.Join(t.TempDir(), "nope.hcl")},
			wantErr: "Error loading configuration",
		},
		{
			name:    "invalid-config",
			args:    []string{"-config", cfgPath},
			wantErr: "refresh_interval must be at least 1s",
		},
		{
			name:    "invalid-flag-override",
			args:    []string{"-dev", "-refresh-interval", "1ms"},
			wantErr: "refresh_interval must be at least 1s",
		},
		{
			name:    "bad-log-level",
			args:    []string{"-dev", "-log-level", "loud"},
			wantErr: "unknown log level",
		},
		{
			name:    "unknown-flag",
			args:    []string{"-nope"},
			wantErr: "flag provided but not defined",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := cli.NewMockUi()
			cmd := &Command{Command: base.NewCommand(ui), LogOutput: &syncBuffer{}}
			assert.Equal(t, base.CommandUserError, cmd.Run(tt.args))
			assert.Contains(t, ui.ErrorWriter.String(), tt.wantErr)
		})
	}
}

func TestCommand_loadConfigOverrides(t *testing.T) {
	t.Setenv("BENEFITS_CACHE_LISTEN_ADDR", "127.0.0.1:9300")
	cmd := &Command{Command: base.NewCommand(cli.NewMockUi())}
	require.NoError(t, cmd.Flags().Parse([]string{"-dev", "-refresh-interval", "2m", "-disable-prefetch"}))

	cfg, err := cmd.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9300", cfg.Daemon.ListenAddr)
	assert.Equal(t, 2*time.Minute, cfg.Daemon.RefreshInterval)
	assert.True(t, cfg.Daemon.DisablePrefetch)

	cmd = &Command{Command: base.NewCommand(cli.NewMockUi())}
	require.NoError(t, cmd.Flags().Parse([]string{"-dev", "-listen-addr", "127.0.0.1:9400"}))
	cfg, err = cmd.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9400", cfg.Daemon.ListenAddr)
	assert.Equal(t, time.Minute, cfg.Daemon.RefreshInterval)
	assert.False(t, cfg.Daemon.DisablePrefetch)
}

func TestLogFileRotation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.log")
	w, err := logFile(ctx, &config.Log{File: path, MaxSizeMb: 1, MaxBackups: 2})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	line := strings.Repeat("x", 1023) + "\n"
	for i := 0; i < 1100; i++ {
		_, err := w.Write([]byte(line))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	// rotated files are compressed in the background
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil || len(entries) != 2 {
			return false
		}
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".gz") {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Listen Address", titleCase("listen address"))
	assert.Equal(t, "Version Sha", titleCase("version sha"))
	assert.Equal(t, "", titleCase(""))
}
