// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/coverline/benefitcache/internal/errors"
	"github.com/hashicorp/go-bexpr"
)

// SortOrder is the sort key and direction of a view
type SortOrder struct {
	Key       string `json:"key"`
	Ascending bool   `json:"ascending"`
}

// ViewState is the sort, search and filter state of an entity type, shared by
// every consumer of the store.
type ViewState struct {
	Sort       SortOrder `json:"sort"`
	SearchTerm string    `json:"search_term,omitempty"`
	Filter     string    `json:"filter,omitempty"`
}

type viewState struct {
	sort   SortOrder
	search string
	filter string
	eval   *bexpr.Evaluator
}

func (v *viewState) public() ViewState {
	return ViewState{Sort: v.sort, SearchTerm: v.search, Filter: v.filter}
}

// ViewResult is the derived, filtered and sorted content of an entity type's
// default snapshot.
type ViewResult struct {
	EntityType EntityType
	Items      []Record
	// Total is the server-reported size of the unfiltered collection
	Total  int
	Status Status
	Stale  bool
	Err    error
	State  ViewState
}

// ViewUpdate changes some of the view state of an entity type. Nil fields
// are left as they are.
type ViewUpdate struct {
	Sort       *SortOrder
	SearchTerm *string
	// Filter is a boolean expression over the JSON fields of the records, for
	// example `"/item/role" == "admin"`. An empty expression clears it.
	Filter *string
}

// UpdateView validates every field of u and then applies them together, so
// an invalid update leaves et's view state as it was.
func (s *Store) UpdateView(et EntityType, u ViewUpdate) error {
	const op = "cache.(Store).UpdateView"
	ctx := context.Background()
	if !et.Valid() {
		return errors.Wrap(ctx, errInvalidEntityType(et), op)
	}
	if u.Sort != nil {
		if _, ok := descriptors[et].sortKeys[u.Sort.Key]; !ok {
			return errors.New(ctx, errors.InvalidParameter, op,
				fmt.Sprintf("unknown sort key %q for %s, valid keys are %s", u.Sort.Key, et, strings.Join(SortKeys(et), ", ")))
		}
	}
	var filter string
	var eval *bexpr.Evaluator
	if u.Filter != nil {
		filter = strings.TrimSpace(*u.Filter)
		if filter != "" {
			var err error
			eval, err = bexpr.CreateEvaluator(filter, bexpr.WithTagName("json"))
			if err != nil {
				return errors.Wrap(ctx, err, op, errors.WithMsg("couldn't build filter"), errors.WithCode(errors.InvalidParameter))
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.views[et]
	if u.Sort != nil {
		v.sort = *u.Sort
	}
	if u.SearchTerm != nil {
		v.search = strings.TrimSpace(*u.SearchTerm)
	}
	if u.Filter != nil {
		v.filter = filter
		v.eval = eval
	}
	return nil
}

// SetSort sets the sort key and direction of et's view.
func (s *Store) SetSort(et EntityType, key string, ascending bool) error {
	return s.UpdateView(et, ViewUpdate{Sort: &SortOrder{Key: key, Ascending: ascending}})
}

// SetSearchTerm sets the case-insensitive search term of et's view. An empty
// term matches everything.
func (s *Store) SetSearchTerm(et EntityType, term string) error {
	return s.UpdateView(et, ViewUpdate{SearchTerm: &term})
}

// SetFilter sets the filter expression of et's view. An empty expr clears the
// filter.
func (s *Store) SetFilter(et EntityType, expr string) error {
	return s.UpdateView(et, ViewUpdate{Filter: &expr})
}

// ViewStateOf returns the current view state of et
func (s *Store) ViewStateOf(et EntityType) (ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[et]
	if !ok {
		return ViewState{}, false
	}
	return v.public(), true
}

// View derives the items of et's default snapshot under the current view
// state. It never waits on the network: like Get it only starts a fetch when
// the type was never requested.
func (s *Store) View(ctx context.Context, et EntityType) (*ViewResult, error) {
	const op = "cache.(Store).View"
	if !et.Valid() {
		return nil, errors.Wrap(ctx, errInvalidEntityType(et), op)
	}
	snap := s.Get(ctx, et)

	s.mu.Lock()
	v := *s.views[et]
	s.mu.Unlock()

	return &ViewResult{
		EntityType: et,
		Items:      derive(descriptors[et], v, snap.Items),
		Total:      snap.Total,
		Status:     snap.Status,
		Stale:      snap.Stale,
		Err:        snap.Err,
		State:      v.public(),
	}, nil
}

type filterItem struct {
	Item any `json:"item"`
}

// derive returns a new slice holding the records of items that match the
// search term and filter of v, ordered by v's sort. Ties fall back to id
// ascending whatever the direction.
func derive(d *descriptor, v viewState, items []Record) []Record {
	term := strings.ToLower(v.search)
	out := make([]Record, 0, len(items))
	for _, r := range items {
		if term != "" && !matchesTerm(d.searchFields(r), term) {
			continue
		}
		if v.eval != nil {
			// Records the expression cannot be evaluated against are left
			// out the same as records that don't match.
			if m, err := v.eval.Evaluate(filterItem{r}); err != nil || !m {
				continue
			}
		}
		out = append(out, r)
	}

	compare, ok := d.sortKeys[v.sort.Key]
	if !ok {
		compare = d.sortKeys[d.defaultSort.Key]
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		c := compare(a, b)
		if !v.sort.Ascending {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.GetId(), b.GetId())
	})
	return out
}

func matchesTerm(fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
