// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
)

// PendingRequests returns the params of the pending access requests key
func PendingRequests() Params {
	return Params{"status": "pending"}
}

// entry is the state of one cache key. et, params and key never change after
// the entry is created; everything else is guarded by Store.mu.
type entry struct {
	et     EntityType
	params Params
	key    string

	snap Snapshot
	// seq is the number of the latest request issued for the key. Only a
	// response carrying this number may be committed.
	seq      uint64
	inflight *call
}

// call is one list request. Every load that waits on it receives result.
type call struct {
	seq    uint64
	done   chan struct{}
	result Snapshot
}

// Store caches entity collections fetched from the benefits API. It is safe
// for concurrent use.
type Store struct {
	logger       hclog.Logger
	funcs        map[EntityType]ResourceFuncs
	fetchTimeout time.Duration
	now          func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	entries map[string]*entry
	views   map[EntityType]*viewState
}

// NewStore returns a Store. Either WithApiClient or WithResourceFuncs for
// every entity type must be given. ctx is the parent of every background
// request the store issues; Close cancels them.
func NewStore(ctx context.Context, opt ...Option) (*Store, error) {
	const op = "cache.NewStore"
	if ctx == nil {
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing context")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return nil, errors.Wrap(ctx, err, op)
	}

	funcs := make(map[EntityType]ResourceFuncs, len(descriptors))
	if opts.withApiClient != nil {
		maps.Copy(funcs, defaultResourceFuncs(opts.withApiClient))
	}
	maps.Copy(funcs, opts.withResourceFuncs)
	for _, et := range AllEntityTypes() {
		if funcs[et].List == nil {
			return nil, errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("no list operation for %s", et))
		}
	}

	logger := opts.withLogger
	if util.IsNil(logger) {
		logger = hclog.NewNullLogger()
	}
	if err := InitializeStoreCollectors(opts.withMetricsRegisterer); err != nil {
		return nil, errors.Wrap(ctx, err, op, errors.WithMsg("registering metrics"))
	}

	views := make(map[EntityType]*viewState, len(descriptors))
	for et, d := range descriptors {
		sort := d.defaultSort
		if s, ok := opts.withDefaultSort[et]; ok {
			if _, known := d.sortKeys[s.Key]; !known {
				return nil, errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("unknown sort key %q for %s", s.Key, et))
			}
			sort = s
		}
		views[et] = &viewState{sort: sort}
	}

	baseCtx, cancel := context.WithCancel(ctx)
	return &Store{
		logger:       logger,
		funcs:        funcs,
		fetchTimeout: opts.withFetchTimeout,
		now:          opts.withNowFunc,
		baseCtx:      baseCtx,
		cancel:       cancel,
		entries:      make(map[string]*entry),
		views:        views,
	}, nil
}

func errInvalidEntityType(et EntityType) error {
	return errors.E(context.Background(), errors.WithoutEvent(), errors.WithCode(errors.InvalidParameter), errors.WithMsg("unknown entity type %q", et))
}

func (s *Store) entryLocked(et EntityType, p Params) *entry {
	key := Key(et, p)
	e, ok := s.entries[key]
	if !ok {
		params := p.Clone()
		if params.IsDefault() {
			params = nil
		}
		e = &entry{
			et:     et,
			params: params,
			key:    key,
			snap: Snapshot{
				EntityType: et,
				Params:     params,
				Key:        key,
				Status:     StatusIdle,
			},
		}
		s.entries[key] = e
	}
	return e
}

// entriesLocked returns the entries of et ordered by key
func (s *Store) entriesLocked(et EntityType) []*entry {
	var out []*entry
	for _, e := range s.entries {
		if e.et == et {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *entry) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	return out
}

// startFetchLocked issues a new request for e, superseding any request still
// in flight. It returns nil once the store is closed.
func (s *Store) startFetchLocked(e *entry) *call {
	if s.closed {
		return nil
	}
	e.seq++
	c := &call{seq: e.seq, done: make(chan struct{})}
	e.inflight = c
	e.snap.Status = StatusLoading
	e.snap.Err = nil
	s.wg.Add(1)
	go s.fetch(e, c)
	return c
}

func (s *Store) fetch(e *entry, c *call) {
	const op = "cache.(Store).fetch"
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	items, total, err := s.funcs[e.et].List(ctx, e.params.Clone())
	elapsed := time.Since(start)
	items = dropNil(items)
	if err != nil {
		err = wrapRemote(ctx, err, op, errors.WithMsg("listing %s", e.key), errors.WithoutEvent())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(c.done)

	if c.seq != e.seq {
		// A newer request was issued for this key; its response wins. Loads
		// that joined this request still get what it returned.
		fetchLatency.WithLabelValues(string(e.et), outcomeDiscarded).Observe(elapsed.Seconds())
		s.logger.Debug("discarding superseded response", "key", e.key, "seq", c.seq, "latest", e.seq)
		res := e.snap
		res.Status = StatusLoaded
		res.Err = nil
		if err != nil {
			res.Status = StatusError
			res.Err = err
		} else {
			res.Items = items
			res.Total = total
			res.Stale = false
			res.UpdatedTime = s.now()
		}
		c.result = res
		return
	}

	e.inflight = nil
	if err != nil {
		fetchLatency.WithLabelValues(string(e.et), outcomeError).Observe(elapsed.Seconds())
		s.logger.Error("fetch failed", "key", e.key, "seq", c.seq, "error", err)
		e.snap.Status = StatusError
		e.snap.Err = err
	} else {
		fetchLatency.WithLabelValues(string(e.et), outcomeSuccess).Observe(elapsed.Seconds())
		s.logger.Debug("fetch committed", "key", e.key, "seq", c.seq, "count", len(items), "total", total)
		e.snap.Items = items
		e.snap.Total = total
		e.snap.Status = StatusLoaded
		e.snap.Stale = false
		e.snap.Err = nil
		e.snap.UpdatedTime = s.now()
	}
	c.result = e.snap
}

// dropNil removes nil records from a list response, reusing items when it
// holds none.
func dropNil(items []Record) []Record {
	i := slices.IndexFunc(items, func(r Record) bool { return util.IsNil(r) })
	if i < 0 {
		return items
	}
	out := slices.Clone(items[:i])
	for _, r := range items[i+1:] {
		if !util.IsNil(r) {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the current snapshot of the default key of et without blocking.
// If the key was never fetched a background fetch is started and the loading
// snapshot is returned.
func (s *Store) Get(ctx context.Context, et EntityType) Snapshot {
	if !et.Valid() {
		return Snapshot{EntityType: et, Key: string(et), Status: StatusError, Err: errInvalidEntityType(et)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entryLocked(et, nil)
	if e.snap.Status == StatusIdle && e.inflight == nil {
		s.startFetchLocked(e)
	}
	return e.snap
}

// Peek returns the snapshot of a key without starting any fetch. ok is false
// if the key has never been requested.
func (s *Store) Peek(et EntityType, params Params) (snap Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[Key(et, params)]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// Load returns the snapshot of the key (et, params). A fresh snapshot is
// returned from memory, a request in flight for the key is joined, otherwise
// a new request is issued. WithForceRefresh(true) always issues a new request.
//
// Fetch failures are reported in the returned snapshot (StatusError and Err),
// never as the returned error, which is reserved for invalid arguments, a
// closed store and ctx ending before the response arrived.
func (s *Store) Load(ctx context.Context, et EntityType, params Params, opt ...Option) (Snapshot, error) {
	const op = "cache.(Store).Load"
	switch {
	case ctx == nil:
		return Snapshot{}, errors.New(ctx, errors.InvalidParameter, op, "missing context")
	case !et.Valid():
		return Snapshot{}, errors.Wrap(ctx, errInvalidEntityType(et), op)
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return Snapshot{}, errors.Wrap(ctx, err, op)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, errors.New(ctx, errors.Closed, op, "store is closed")
	}
	e := s.entryLocked(et, params)
	var c *call
	switch {
	case !opts.withForceRefresh && e.inflight == nil && e.snap.Fresh():
		snap := e.snap
		s.mu.Unlock()
		return snap, nil
	case !opts.withForceRefresh && e.inflight != nil:
		c = e.inflight
		coalescedLoads.WithLabelValues(string(et)).Inc()
	default:
		c = s.startFetchLocked(e)
	}
	s.mu.Unlock()

	select {
	case <-c.done:
		return c.result, nil
	case <-ctx.Done():
		snap, _ := s.Peek(et, params)
		return snap, errors.Wrap(ctx, ctx.Err(), op, errors.WithCode(errors.Canceled), errors.WithoutEvent())
	}
}

// Invalidate marks every snapshot of et stale, keeping its items, and starts
// a background refresh of each.
func (s *Store) Invalidate(ctx context.Context, et EntityType) error {
	const op = "cache.(Store).Invalidate"
	if !et.Valid() {
		return errors.Wrap(ctx, errInvalidEntityType(et), op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(ctx, errors.Closed, op, "store is closed")
	}
	for _, e := range s.entriesLocked(et) {
		e.snap.Stale = true
		s.startFetchLocked(e)
	}
	return nil
}

// LoadAll loads the default key of every entity type and the pending
// requests key concurrently. It returns the joined errors of every key that
// ended in StatusError.
func (s *Store) LoadAll(ctx context.Context, opt ...Option) error {
	const op = "cache.(Store).LoadAll"
	type target struct {
		et     EntityType
		params Params
	}
	var targets []target
	for _, et := range AllEntityTypes() {
		targets = append(targets, target{et: et})
	}
	targets = append(targets, target{et: Requests, params: PendingRequests()})

	errs := make([]error, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			snap, err := s.Load(gctx, t.et, t.params, opt...)
			if err != nil {
				return err
			}
			if snap.Status == StatusError {
				errs[i] = snap.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(ctx, err, op)
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Wrap(ctx, err, op, errors.WithCode(Classify(err)))
	}
	return nil
}

// Close cancels every background request and waits for them to finish. Loads
// waiting on a request receive its (failed) result.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx, ctx.Err(), "cache.(Store).Close", errors.WithCode(errors.Canceled))
	}
}
