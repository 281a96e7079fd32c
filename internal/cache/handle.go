// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
)

// EntityHandle is the accessor consumers use for one entity type. All
// handles of a type share the store's snapshots and view state.
type EntityHandle struct {
	store *Store
	et    EntityType
}

// Handle returns the accessor for et. It returns nil for an unknown type.
func (s *Store) Handle(et EntityType) *EntityHandle {
	if !et.Valid() {
		return nil
	}
	return &EntityHandle{store: s, et: et}
}

// EntityType returns the type the handle serves
func (h *EntityHandle) EntityType() EntityType {
	return h.et
}

// Data returns the cached items of the default snapshot, starting a fetch if
// the type was never requested.
func (h *EntityHandle) Data(ctx context.Context) []Record {
	return h.store.Get(ctx, h.et).Items
}

// Status returns the status of the default snapshot
func (h *EntityHandle) Status(ctx context.Context) Status {
	return h.store.Get(ctx, h.et).Status
}

// Err returns the error of the last failed fetch of the default snapshot
func (h *EntityHandle) Err(ctx context.Context) error {
	return h.store.Get(ctx, h.et).Err
}

// Load loads the default snapshot, see Store.Load
func (h *EntityHandle) Load(ctx context.Context, opt ...Option) (Snapshot, error) {
	return h.store.Load(ctx, h.et, nil, opt...)
}

// LoadWith loads the snapshot of params, see Store.Load
func (h *EntityHandle) LoadWith(ctx context.Context, params Params, opt ...Option) (Snapshot, error) {
	return h.store.Load(ctx, h.et, params, opt...)
}

func (h *EntityHandle) Create(ctx context.Context, payload Record) (Record, error) {
	return h.store.Create(ctx, h.et, payload)
}

func (h *EntityHandle) Update(ctx context.Context, id string, patch map[string]any) (Record, error) {
	return h.store.Update(ctx, h.et, id, patch)
}

// Remove deletes the record with id, see Store.Delete
func (h *EntityHandle) Remove(ctx context.Context, id string) error {
	return h.store.Delete(ctx, h.et, id)
}

func (h *EntityHandle) Sort(key string, ascending bool) error {
	return h.store.SetSort(h.et, key, ascending)
}

func (h *EntityHandle) Search(term string) error {
	return h.store.SetSearchTerm(h.et, term)
}

func (h *EntityHandle) Filter(expr string) error {
	return h.store.SetFilter(h.et, expr)
}

func (h *EntityHandle) View(ctx context.Context) (*ViewResult, error) {
	return h.store.View(ctx, h.et)
}
