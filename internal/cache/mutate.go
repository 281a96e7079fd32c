// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"

	"github.com/coverline/benefitcache/internal/errors"
	"github.com/coverline/benefitcache/internal/util"
)

const (
	mutationCreate = "create"
	mutationRead   = "read"
	mutationUpdate = "update"
	mutationDelete = "delete"
)

// Create sends payload to the API and, once the server answers, appends the
// server's record to the default snapshot of et. Parameterised snapshots of
// et are marked stale since the new record may or may not match their
// server-side filters. On failure nothing cached changes.
func (s *Store) Create(ctx context.Context, et EntityType, payload Record) (Record, error) {
	const op = "cache.(Store).Create"
	fns, err := s.mutationFuncs(ctx, op, et)
	if err != nil {
		return nil, err
	}
	switch {
	case fns.Create == nil:
		return nil, errUnsupported(ctx, op, et, mutationCreate)
	case util.IsNil(payload):
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing payload")
	}
	if err := descriptors[et].validate(payload); err != nil {
		return nil, errors.New(ctx, errors.Validation, op, err.Error())
	}

	created, err := fns.Create(ctx, payload)
	if err == nil && util.IsNil(created) {
		err = errors.New(ctx, errors.Api, op, "empty response to create")
	}
	if err != nil {
		mutations.WithLabelValues(string(et), mutationCreate, outcomeError).Inc()
		return nil, wrapRemote(ctx, err, op, errors.WithMsg("creating %s", et))
	}
	mutations.WithLabelValues(string(et), mutationCreate, outcomeSuccess).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesLocked(et) {
		if e.params != nil {
			e.snap.Stale = true
		} else if e.snap.Status != StatusIdle {
			if i := indexOf(e.snap.Items, created.GetId()); i >= 0 {
				e.snap.Items = replaceAt(e.snap.Items, i, created)
			} else {
				e.snap.Items = appendRecord(e.snap.Items, created)
				e.snap.Total++
			}
		}
		s.refreshInflightLocked(e)
	}
	s.logger.Debug("created record", "entity", et, "id", created.GetId())
	return created, nil
}

// Update sends patch to the API and replaces the record with the matching id
// in every snapshot of et with the server's copy, keeping its position. Other
// records keep their identity. Parameterised snapshots are marked stale.
func (s *Store) Update(ctx context.Context, et EntityType, id string, patch map[string]any) (Record, error) {
	const op = "cache.(Store).Update"
	fns, err := s.mutationFuncs(ctx, op, et)
	if err != nil {
		return nil, err
	}
	switch {
	case fns.Update == nil:
		return nil, errUnsupported(ctx, op, et, mutationUpdate)
	case id == "":
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing id")
	case len(patch) == 0:
		return nil, errors.New(ctx, errors.InvalidParameter, op, "empty patch")
	}
	if _, ok := patch["id"]; ok {
		return nil, errors.New(ctx, errors.Validation, op, "id cannot be updated")
	}
	if v := descriptors[et].validatePatch; v != nil {
		if err := v(patch); err != nil {
			return nil, errors.New(ctx, errors.Validation, op, err.Error())
		}
	}

	updated, err := fns.Update(ctx, id, patch)
	if err == nil && util.IsNil(updated) {
		err = errors.New(ctx, errors.Api, op, "empty response to update")
	}
	if err != nil {
		mutations.WithLabelValues(string(et), mutationUpdate, outcomeError).Inc()
		if isApiNotFound(err) {
			return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.NotFound), errors.WithMsg("%s %s", et, id))
		}
		return nil, wrapRemote(ctx, err, op, errors.WithMsg("updating %s %s", et, id))
	}
	mutations.WithLabelValues(string(et), mutationUpdate, outcomeSuccess).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesLocked(et) {
		if i := indexOf(e.snap.Items, id); i >= 0 {
			e.snap.Items = replaceAt(e.snap.Items, i, updated)
		}
		if e.params != nil {
			e.snap.Stale = true
		}
		s.refreshInflightLocked(e)
	}
	s.logger.Debug("updated record", "entity", et, "id", id)
	return updated, nil
}

// Delete removes the record from the API and from every snapshot of et. A
// record the API no longer knows is treated as already deleted, and deleting
// an id that is not cached leaves the snapshots as they are.
func (s *Store) Delete(ctx context.Context, et EntityType, id string) error {
	const op = "cache.(Store).Delete"
	fns, err := s.mutationFuncs(ctx, op, et)
	if err != nil {
		return err
	}
	switch {
	case fns.Delete == nil:
		return errUnsupported(ctx, op, et, mutationDelete)
	case id == "":
		return errors.New(ctx, errors.InvalidParameter, op, "missing id")
	}

	if err := fns.Delete(ctx, id); err != nil {
		if !isApiNotFound(err) {
			mutations.WithLabelValues(string(et), mutationDelete, outcomeError).Inc()
			return wrapRemote(ctx, err, op, errors.WithMsg("deleting %s %s", et, id))
		}
		s.logger.Debug("record already gone", "entity", et, "id", id)
	}
	mutations.WithLabelValues(string(et), mutationDelete, outcomeSuccess).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesLocked(et) {
		if i := indexOf(e.snap.Items, id); i >= 0 {
			e.snap.Items = removeAt(e.snap.Items, i)
			if e.snap.Total > 0 {
				e.snap.Total--
			}
		}
		s.refreshInflightLocked(e)
	}
	return nil
}

// Read fetches one record by id and replaces the cached copy, in place, in
// every snapshot that holds it. A record missing from the API is reported as
// errors.NotFound.
func (s *Store) Read(ctx context.Context, et EntityType, id string) (Record, error) {
	const op = "cache.(Store).Read"
	fns, err := s.mutationFuncs(ctx, op, et)
	if err != nil {
		return nil, err
	}
	switch {
	case fns.Read == nil:
		return nil, errUnsupported(ctx, op, et, mutationRead)
	case id == "":
		return nil, errors.New(ctx, errors.InvalidParameter, op, "missing id")
	}

	r, err := fns.Read(ctx, id)
	if err == nil && util.IsNil(r) {
		err = errors.New(ctx, errors.Api, op, "empty response to read")
	}
	if err != nil {
		mutations.WithLabelValues(string(et), mutationRead, outcomeError).Inc()
		if isApiNotFound(err) {
			return nil, errors.Wrap(ctx, err, op, errors.WithCode(errors.NotFound), errors.WithMsg("%s %s", et, id))
		}
		return nil, wrapRemote(ctx, err, op, errors.WithMsg("reading %s %s", et, id))
	}
	mutations.WithLabelValues(string(et), mutationRead, outcomeSuccess).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entriesLocked(et) {
		if i := indexOf(e.snap.Items, id); i >= 0 {
			e.snap.Items = replaceAt(e.snap.Items, i, r)
		}
	}
	return r, nil
}

func (s *Store) mutationFuncs(ctx context.Context, op errors.Op, et EntityType) (ResourceFuncs, error) {
	switch {
	case ctx == nil:
		return ResourceFuncs{}, errors.New(ctx, errors.InvalidParameter, op, "missing context")
	case !et.Valid():
		return ResourceFuncs{}, errors.Wrap(ctx, errInvalidEntityType(et), op)
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ResourceFuncs{}, errors.New(ctx, errors.Closed, op, "store is closed")
	}
	return s.funcs[et], nil
}

func errUnsupported(ctx context.Context, op errors.Op, et EntityType, mutation string) error {
	return errors.New(ctx, errors.InvalidParameter, op, fmt.Sprintf("%s does not support %s", et, mutation))
}

// refreshInflightLocked starts a forced fetch for e when one is in flight, so
// the older response cannot overwrite a committed mutation.
func (s *Store) refreshInflightLocked(e *entry) {
	if e.inflight == nil {
		return
	}
	s.logger.Debug("superseding in-flight fetch after mutation", "key", e.key, "seq", e.seq)
	s.startFetchLocked(e)
}

func appendRecord(items []Record, r Record) []Record {
	out := make([]Record, len(items), len(items)+1)
	copy(out, items)
	return append(out, r)
}

func replaceAt(items []Record, i int, r Record) []Record {
	out := make([]Record, len(items))
	copy(out, items)
	out[i] = r
	return out
}

func removeAt(items []Record, i int) []Record {
	out := make([]Record, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
