// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package daemon serves a cache.Store over a local http api: status, search,
// forced refresh and prometheus metrics. It refreshes the cache in the
// background at a randomized interval.
package daemon

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coverline/benefitcache/internal/cache"
	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	statusPath  = "/v1/status"
	searchPath  = "/v1/search"
	refreshPath = "/v1/refresh"
	metricsPath = "/metrics"

	readHeaderTimeout = 10 * time.Second
)

// Config is the configuration of a CacheServer
type Config struct {
	// ListenAddr is a host:port or a unix:// socket path
	ListenAddr      string
	RefreshInterval time.Duration
	// RefreshJitter is the randomization factor of RefreshInterval
	RefreshJitter float64
	// Store is owned by the server once New succeeds and is closed by
	// Shutdown.
	Store  *cache.Store
	Logger hclog.Logger
	// Registry receives the daemon's collectors and is served on /metrics.
	// Metrics are not served when it is nil.
	Registry *prometheus.Registry
}

func (c *Config) validate(ctx context.Context) error {
	const op = "daemon.(Config).validate"
	switch {
	case c == nil:
		return errors.New(ctx, errors.InvalidParameter, op, "missing config")
	case util.IsNil(c.Store):
		return errors.New(ctx, errors.InvalidParameter, op, "missing store")
	case c.ListenAddr == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing listen address")
	case c.RefreshInterval < 0:
		return errors.New(ctx, errors.InvalidParameter, op, "refresh interval must not be negative")
	case c.RefreshJitter < 0 || c.RefreshJitter > 1:
		return errors.New(ctx, errors.InvalidParameter, op, "refresh jitter must be between 0 and 1")
	}
	return nil
}

type CacheServer struct {
	conf   *Config
	logger hclog.Logger
	store  *cache.Store

	listener net.Listener
	httpSrv  *http.Server

	tickerWg sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	tickerCancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// New returns a CacheServer listening on the configured address. Requests
// are not answered until Serve is called.
func New(ctx context.Context, conf *Config) (*CacheServer, error) {
	const op = "daemon.New"
	if err := conf.validate(ctx); err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	logger := conf.Logger
	if util.IsNil(logger) {
		logger = hclog.NewNullLogger()
	}

	l, err := listener(ctx, conf.ListenAddr)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	s := &CacheServer{
		conf:     conf,
		logger:   logger.Named("daemon"),
		store:    conf.Store,
		listener: l,
	}

	h, err := s.handler(ctx)
	if err != nil {
		l.Close()
		return nil, errors.Wrap(ctx, err, op)
	}
	s.httpSrv = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
	}
	return s, nil
}

func (s *CacheServer) handler(ctx context.Context) (http.Handler, error) {
	const op = "daemon.(CacheServer).handler"
	mux := http.NewServeMux()

	statusFn, err := newStatusHandlerFunc(ctx, s.store, s.ListenAddress())
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	mux.HandleFunc(statusPath, statusFn)

	searchFn, err := newSearchHandlerFunc(ctx, s.store)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	mux.HandleFunc(searchPath, searchFn)

	refreshFn, err := newRefreshHandlerFunc(ctx, s.store)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}
	mux.HandleFunc(refreshPath, refreshFn)

	if s.conf.Registry != nil {
		initializeApiCollectors(s.conf.Registry)
		mux.Handle(metricsPath, promhttp.HandlerFor(s.conf.Registry, promhttp.HandlerOpts{
			ErrorLog: s.logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true}),
		}))
	}
	mux.HandleFunc("/", new404Func(ctx))

	var h http.Handler = mux
	if s.conf.Registry != nil {
		h = instrumentApiHandler(h)
	}
	return versionInterceptor(h), nil
}

// ListenAddress returns the address clients reach the server on, either a
// host:port or a unix:// socket path.
func (s *CacheServer) ListenAddress() string {
	return listenAddress(s.listener)
}

// Serve runs the cache server and its refresh ticker. This is a blocking
// call and returns when the server is shutdown or stops for any other
// reason.
func (s *CacheServer) Serve(ctx context.Context, opt ...Option) error {
	const op = "daemon.(CacheServer).Serve"
	tickerOpts := []Option{
		WithLogger(ctx, s.logger.Named("ticker")),
		withIntervalRandomizationFactor(ctx, s.conf.RefreshJitter),
	}
	if s.conf.RefreshInterval > 0 {
		tickerOpts = append(tickerOpts, withRefreshInterval(ctx, s.conf.RefreshInterval))
	}
	rt, err := newRefreshTicker(ctx, storeRefresher{store: s.store}, append(tickerOpts, opt...)...)
	if err != nil {
		return errors.Wrap(ctx, err, op)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New(ctx, errors.Closed, op, "server is shut down")
	}
	tickerCtx, tickerCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.tickerCancel = tickerCancel
	s.tickerWg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.tickerWg.Done()
		rt.startRefresh(tickerCtx)
	}()

	s.logger.Info("cache daemon listening", "address", s.ListenAddress(), "refresh_interval", rt.refreshInterval)
	if err := s.httpSrv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(ctx, err, op)
	}
	return nil
}

// Shutdown stops the refresh ticker, stops accepting requests, waits for
// the in-flight ones until ctx is done, and closes the store. It is safe to
// call more than once.
func (s *CacheServer) Shutdown(ctx context.Context) error {
	const op = "daemon.(CacheServer).Shutdown"
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		if s.tickerCancel != nil {
			s.tickerCancel()
		}
		s.mu.Unlock()

		var errs []error
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		// Serve may never have been called, in which case the listener is
		// still open.
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
		s.tickerWg.Wait()
		if err := s.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.shutdownErr = errors.Wrap(ctx, errors.Join(errs...), op)
		}
		s.logger.Info("cache daemon stopped")
	})
	return s.shutdownErr
}
