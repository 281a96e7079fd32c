// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/golang-sql/civil"
)

type compareFunc func(a, b Record) int

// descriptor holds the per entity type knowledge the store needs beyond the
// API operations: which payloads it accepts, what search looks at and how
// records sort.
type descriptor struct {
	accepts      func(Record) bool
	validate     func(Record) error
	searchFields func(Record) []string
	sortKeys     map[string]compareFunc
	defaultSort  SortOrder
	// validatePatch checks fields of an update beyond the generic rules. It
	// may be nil.
	validatePatch func(map[string]any) error
}

func typedCompare[T Record](f func(a, b T) int) compareFunc {
	return func(a, b Record) int {
		return f(a.(T), b.(T))
	}
}

func typedFields[T Record](f func(T) []string) func(Record) []string {
	return func(r Record) []string {
		t, ok := r.(T)
		if !ok {
			return nil
		}
		return f(t)
	}
}

func typedValidate[T Record](f func(T) error) (func(Record) bool, func(Record) error) {
	accepts := func(r Record) bool {
		_, ok := r.(T)
		return ok
	}
	validate := func(r Record) error {
		t, ok := r.(T)
		if !ok {
			var zero T
			return fmt.Errorf("payload of type %T, want %T", r, zero)
		}
		if f == nil {
			return nil
		}
		return f(t)
	}
	return accepts, validate
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareDate(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// compareDatePtr orders missing dates first
func compareDatePtr(a, b *civil.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return compareDate(*a, *b)
}

// compareTimePtr orders missing times first
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

var descriptors = map[EntityType]*descriptor{
	Organizations:  organizationDescriptor(),
	Users:          userDescriptor(),
	InsurancePlans: insurancePlanDescriptor(),
	Requests:       accessRequestDescriptor(),
}

func organizationDescriptor() *descriptor {
	type o = *organizations.Organization
	accepts, validate := typedValidate(func(in o) error {
		if strings.TrimSpace(in.Name) == "" {
			return fmt.Errorf("name is required")
		}
		if in.EmployeeCount < 0 {
			return fmt.Errorf("employee count must not be negative")
		}
		return nil
	})
	return &descriptor{
		accepts:  accepts,
		validate: validate,
		searchFields: typedFields(func(in o) []string {
			return []string{in.Name, in.BillingContactName, in.BillingContactEmail}
		}),
		sortKeys: map[string]compareFunc{
			"name":        typedCompare(func(a, b o) int { return compareFold(a.Name, b.Name) }),
			"startdate":   typedCompare(func(a, b o) int { return compareDate(a.StartDate, b.StartDate) }),
			"renewaldate": typedCompare(func(a, b o) int { return compareDatePtr(a.RenewalDate, b.RenewalDate) }),
			"employees":   typedCompare(func(a, b o) int { return cmp.Compare(a.EmployeeCount, b.EmployeeCount) }),
			"billingname": typedCompare(func(a, b o) int { return compareFold(a.BillingContactName, b.BillingContactName) }),
		},
		defaultSort: SortOrder{Key: "name", Ascending: true},
	}
}

func userDescriptor() *descriptor {
	type u = *users.User
	accepts, validate := typedValidate(func(in u) error {
		if strings.TrimSpace(in.Email) == "" {
			return fmt.Errorf("email is required")
		}
		if in.Role != "" && !in.Role.Valid() {
			return fmt.Errorf("unknown role %q", in.Role)
		}
		return nil
	})
	return &descriptor{
		accepts:  accepts,
		validate: validate,
		searchFields: typedFields(func(in u) []string {
			return []string{in.FirstName, in.LastName, in.Email, in.Phone}
		}),
		sortKeys: map[string]compareFunc{
			"name": typedCompare(func(a, b u) int {
				if c := compareFold(a.LastName, b.LastName); c != 0 {
					return c
				}
				return compareFold(a.FirstName, b.FirstName)
			}),
			"email":     typedCompare(func(a, b u) int { return compareFold(a.Email, b.Email) }),
			"role":      typedCompare(func(a, b u) int { return strings.Compare(string(a.Role), string(b.Role)) }),
			"startdate": typedCompare(func(a, b u) int { return compareDate(a.StartDate, b.StartDate) }),
		},
		defaultSort: SortOrder{Key: "name", Ascending: true},
	}
}

func insurancePlanDescriptor() *descriptor {
	type p = *insuranceplans.InsurancePlan
	accepts, validate := typedValidate(func(in p) error {
		if strings.TrimSpace(in.Name) == "" {
			return fmt.Errorf("name is required")
		}
		if in.PlanType != "" && !in.PlanType.Valid() {
			return fmt.Errorf("unknown plan type %q", in.PlanType)
		}
		if in.EndDate != nil && !in.StartDate.IsValid() {
			return fmt.Errorf("end date requires a start date")
		}
		if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
			return fmt.Errorf("end date %s is before start date %s", in.EndDate, in.StartDate)
		}
		for i, d := range in.Documents {
			if d == nil || (d.Url == "" && d.File == nil) {
				return fmt.Errorf("document %d has neither a url nor a file", i)
			}
		}
		return nil
	})
	return &descriptor{
		accepts:  accepts,
		validate: validate,
		searchFields: typedFields(func(in p) []string {
			return []string{in.Name, in.Provider, string(in.PlanType)}
		}),
		sortKeys: map[string]compareFunc{
			"name":      typedCompare(func(a, b p) int { return compareFold(a.Name, b.Name) }),
			"provider":  typedCompare(func(a, b p) int { return compareFold(a.Provider, b.Provider) }),
			"type":      typedCompare(func(a, b p) int { return strings.Compare(string(a.PlanType), string(b.PlanType)) }),
			"startdate": typedCompare(func(a, b p) int { return compareDate(a.StartDate, b.StartDate) }),
			"enddate":   typedCompare(func(a, b p) int { return compareDatePtr(a.EndDate, b.EndDate) }),
		},
		defaultSort: SortOrder{Key: "name", Ascending: true},
	}
}

func accessRequestDescriptor() *descriptor {
	type r = *accessrequests.AccessRequest
	accepts, validate := typedValidate[r](nil)
	return &descriptor{
		accepts:  accepts,
		validate: validate,
		searchFields: typedFields(func(in r) []string {
			return []string{in.RequesterId, in.OrganizationId, string(in.Status)}
		}),
		sortKeys: map[string]compareFunc{
			"created":  typedCompare(func(a, b r) int { return a.CreatedTime.Compare(b.CreatedTime) }),
			"status":   typedCompare(func(a, b r) int { return strings.Compare(string(a.Status), string(b.Status)) }),
			"resolved": typedCompare(func(a, b r) int { return compareTimePtr(a.ResolvedTime, b.ResolvedTime) }),
		},
		defaultSort: SortOrder{Key: "created", Ascending: false},
		validatePatch: func(patch map[string]any) error {
			raw, ok := patch["status"]
			if !ok {
				return nil
			}
			var st accessrequests.Status
			switch v := raw.(type) {
			case string:
				st = accessrequests.Status(v)
			case accessrequests.Status:
				st = v
			default:
				return fmt.Errorf("status must be a string, got %T", raw)
			}
			if !st.Valid() {
				return fmt.Errorf("unknown status %q", st)
			}
			return nil
		},
	}
}

// SortKeys returns the sort keys accepted for an entity type
func SortKeys(et EntityType) []string {
	d, ok := descriptors[et]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(d.sortKeys))
	for k := range d.sortKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
