// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package start

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/cmd/base"
	"github.com/coverline/benefitcache/internal/config"
	"github.com/coverline/benefitcache/internal/daemon"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/version"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	shutdownTimeout = 5 * time.Second
	defaultLogMaxMb = 5
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command

	// LogOutput receives the log lines besides the optional log file. It
	// defaults to stderr.
	LogOutput io.Writer

	flagConfig          string
	flagDev             bool
	flagListenAddr      string
	flagLogLevel        string
	flagLogFormat       string
	flagRefreshInterval time.Duration
	flagDisablePrefetch bool

	logger hclog.Logger
}

func (c *Command) Synopsis() string {
	return "Start the benefits cache daemon"
}

func (c *Command) Help() string {
	helpText := `
Usage: benefitcache start [options]

  Start the cache daemon with a configuration file:

      $ benefitcache start -config=/etc/benefitcache.hcl

  Start the cache daemon with the development defaults:

      $ benefitcache start -dev

  The daemon keeps running until it is interrupted.

` + c.Flags().Help()
	return strings.TrimSpace(helpText)
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetNone)

	f := set.NewFlagSet("Command Options")
	f.StringVar(&base.StringVar{
		Name:       "config",
		Target:     &c.flagConfig,
		Completion: complete.PredictOr(complete.PredictFiles("*.hcl"), complete.PredictFiles("*.json")),
		Usage:      "Path to the HCL configuration file.",
	})
	f.BoolVar(&base.BoolVar{
		Name:   "dev",
		Target: &c.flagDev,
		Usage:  "Use the development configuration. Cannot be combined with -config.",
	})
	f.StringVar(&base.StringVar{
		Name:       "listen-addr",
		Target:     &c.flagListenAddr,
		Completion: complete.PredictAnything,
		Usage:      "Address the daemon listens on, either host:port or a unix:// socket path. Overrides the configuration.",
	})
	f.StringVar(&base.StringVar{
		Name:       "log-level",
		Target:     &c.flagLogLevel,
		EnvVar:     base.EnvLogLevel,
		Completion: complete.PredictSet("trace", "debug", "info", "warn", "err"),
		Usage: "Log verbosity level. Supported values (in order of more detail to less) are " +
			"\"trace\", \"debug\", \"info\", \"warn\", and \"err\".",
	})
	f.StringVar(&base.StringVar{
		Name:       "log-format",
		Target:     &c.flagLogFormat,
		EnvVar:     base.EnvLogFormat,
		Completion: complete.PredictSet("standard", "json"),
		Usage:      `Log format. Supported values are "standard" and "json".`,
	})
	f.DurationVar(&base.DurationVar{
		Name:   "refresh-interval",
		Target: &c.flagRefreshInterval,
		Usage:  "Interval between background refreshes of every cached collection. Overrides the configuration.",
	})
	f.BoolVar(&base.BoolVar{
		Name:   "disable-prefetch",
		Target: &c.flagDisablePrefetch,
		Usage:  "Do not load the default collections at startup.",
	})

	return set
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictNothing
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

func (c *Command) Run(args []string) int {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	writers := []io.Writer{c.LogOutput}
	if c.LogOutput == nil {
		writers[0] = os.Stderr
	}
	if cfg.Log.File != "" {
		lf, err := logFile(ctx, cfg.Log)
		if err != nil {
			c.PrintCliError(err)
			return base.CommandCliError
		}
		defer lf.Close()
		writers = append(writers, lf)
	}
	gl, err := base.SetupLogging(io.MultiWriter(writers...), c.flagLogLevel, c.flagLogFormat, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}
	c.logger = gl.Logger

	apiClient, err := cfg.ApiClient()
	if err != nil {
		c.PrintCliError(fmt.Errorf("Error creating the benefits API client: %w", err))
		return base.CommandUserError
	}

	var registry *prometheus.Registry
	storeOpts := []cache.Option{
		cache.WithApiClient(apiClient),
		cache.WithLogger(c.logger.Named("cache")),
		cache.WithFetchTimeout(cfg.Daemon.FetchTimeout),
	}
	if !cfg.Daemon.DisableMetrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		storeOpts = append(storeOpts, cache.WithMetricsRegisterer(registry))
	}
	store, err := cache.NewStore(ctx, storeOpts...)
	if err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}

	srv, err := daemon.New(ctx, &daemon.Config{
		ListenAddr:      cfg.Daemon.ListenAddr,
		RefreshInterval: cfg.Daemon.RefreshInterval,
		RefreshJitter:   cfg.Daemon.RefreshJitter,
		Store:           store,
		Logger:          c.logger,
		Registry:        registry,
	})
	if err != nil {
		_ = store.Close(ctx)
		c.PrintCliError(err)
		return base.CommandCliError
	}

	c.printInfo(cfg, gl, apiClient.Addr(), srv.ListenAddress())
	if err := gl.ReleaseLogGate(); err != nil {
		c.UI.Warn(fmt.Sprintf("Error releasing the log gate: %s", err))
	}

	var wg sync.WaitGroup
	if !cfg.Daemon.DisablePrefetch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.prefetch(ctx, store)
		}()
	}

	var srvErr error
	served := make(chan struct{})
	go func() {
		defer close(served)
		srvErr = srv.Serve(ctx)
	}()

	// This is a blocking call. We rely on the c.ShutdownCh to cancel this
	// context when sigterm or sigint is received.
	select {
	case <-ctx.Done():
	case <-served:
	}
	cancel()
	c.logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.PrintCliError(err)
		return base.CommandCliError
	}
	<-served
	wg.Wait()
	if srvErr != nil {
		c.PrintCliError(srvErr)
		return base.CommandCliError
	}
	return base.CommandSuccess
}

// loadConfig reads the file or development configuration, overlays the
// environment and then the flags given on the command line.
func (c *Command) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case c.flagDev && c.flagConfig != "":
		return nil, stderrors.New("The -dev and -config flags cannot be used together")
	case c.flagDev:
		cfg, err = config.Dev()
	case c.flagConfig != "":
		cfg, err = config.LoadFile(c.flagConfig)
	default:
		cfg, err = config.Parse("")
	}
	if err != nil {
		return nil, fmt.Errorf("Error loading configuration: %w", err)
	}
	if err := cfg.ApplyEnvironment(); err != nil {
		return nil, fmt.Errorf("Error reading environment: %w", err)
	}

	f := c.Flags()
	if f.IsSet("listen-addr") {
		cfg.Daemon.ListenAddr = c.flagListenAddr
	}
	if f.IsSet("refresh-interval") {
		cfg.Daemon.RefreshInterval = c.flagRefreshInterval
	}
	if f.IsSet("disable-prefetch") {
		cfg.Daemon.DisablePrefetch = c.flagDisablePrefetch
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Command) prefetch(ctx context.Context, store *cache.Store) {
	start := time.Now()
	if err := store.LoadAll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("prefetch finished with errors", "error", err, "elapsed", time.Since(start))
		return
	}
	c.logger.Info("prefetch complete", "elapsed", time.Since(start))
}

func (c *Command) printInfo(cfg *config.Config, gl *base.GatedLogger, apiAddr, listenAddr string) {
	info := map[string]string{
		"listen address":   listenAddr,
		"api address":      apiAddr,
		"refresh interval": base.HumanDuration(cfg.Daemon.RefreshInterval),
		"fetch timeout":    base.HumanDuration(cfg.Daemon.FetchTimeout),
		"log level":        gl.LogLevel.String(),
		"log format":       gl.LogFormat.String(),
		"metrics":          "enabled",
		"prefetch":         "enabled",
	}
	if cfg.Daemon.DisableMetrics {
		info["metrics"] = "disabled"
	}
	if cfg.Daemon.DisablePrefetch {
		info["prefetch"] = "disabled"
	}
	if cfg.Log.File != "" {
		info["log file"] = cfg.Log.File
	}
	verInfo := version.Get()
	if verInfo.Version != "" {
		info["version"] = verInfo.FullVersionNumber(false)
	}
	if verInfo.Revision != "" {
		info["version sha"] = strings.Trim(verInfo.Revision, "'")
	}

	infoKeys := make([]string, 0, len(info))
	padding := 0
	for k := range info {
		infoKeys = append(infoKeys, k)
		if len(k)+2 > padding {
			padding = len(k) + 2
		}
	}
	sort.Strings(infoKeys)

	c.UI.Output("==> Benefits cache configuration:\n")
	for _, k := range infoKeys {
		c.UI.Output(fmt.Sprintf(
			"%s%s: %s",
			strings.Repeat(" ", padding-len(k)),
			titleCase(k),
			info[k]))
	}
	c.UI.Output("")
	c.UI.Output("==> Benefits cache started! Log data will stream in below:\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// logFile returns a log file which is rotated after it reaches the configured
// maximum size in mb. The rotated out log file gets a suffix that matches the
// time that the rotation happened.
func logFile(ctx context.Context, l *config.Log) (io.WriteCloser, error) {
	const op = "start.logFile"
	if err := os.MkdirAll(filepath.Dir(l.File), 0o700); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	{
		// Ensure the file is created with the desired permissions.
		f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, errors.Wrap(ctx, err, op)
		}
		f.Close()
	}

	maxSize := l.MaxSizeMb
	if maxSize == 0 {
		maxSize = defaultLogMaxMb
	}
	return &lumberjack.Logger{
		Filename:   l.File,
		MaxSize:    maxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAgeDays,
		Compress:   true,
	}, nil
}
