// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"context"
	"fmt"

	"github.com/coverline/benefitcache/api"
	"github.com/coverline/benefitcache/api/accessrequests"
	"github.com/coverline/benefitcache/api/insuranceplans"
	"github.com/coverline/benefitcache/api/organizations"
	"github.com/coverline/benefitcache/api/users"
	"github.com/coverline/benefitcache/internal/util"
)

// ListFunc returns the items of a collection and the server-reported total
type ListFunc func(ctx context.Context, params Params) ([]Record, int, error)

// ReadFunc returns one record by id
type ReadFunc func(ctx context.Context, id string) (Record, error)

// CreateFunc sends a new record and returns the server's canonical copy
type CreateFunc func(ctx context.Context, payload Record) (Record, error)

// UpdateFunc sends a partial update and returns the server's canonical copy
type UpdateFunc func(ctx context.Context, id string, patch map[string]any) (Record, error)

// DeleteFunc removes a record
type DeleteFunc func(ctx context.Context, id string) error

// ResourceFuncs are the API operations the store uses for one entity type.
// A nil func means the API does not offer the operation.
type ResourceFuncs struct {
	List   ListFunc
	Read   ReadFunc
	Create CreateFunc
	Update UpdateFunc
	Delete DeleteFunc
}

func defaultResourceFuncs(c *api.Client) map[EntityType]ResourceFuncs {
	return map[EntityType]ResourceFuncs{
		Organizations:  organizationFuncs(organizations.NewClient(c)),
		Users:          userFuncs(users.NewClient(c)),
		InsurancePlans: insurancePlanFuncs(insuranceplans.NewClient(c)),
		Requests:       accessRequestFuncs(accessrequests.NewClient(c)),
	}
}

func toRecords[T Record](in []T) []Record {
	out := make([]Record, 0, len(in))
	for _, t := range in {
		if util.IsNil(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func payloadAs[T Record](payload Record) (T, error) {
	t, ok := payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("payload of type %T, want %T", payload, zero)
	}
	return t, nil
}

func organizationFuncs(c *organizations.Client) ResourceFuncs {
	return ResourceFuncs{
		List: func(ctx context.Context, params Params) ([]Record, int, error) {
			res, err := c.List(ctx, organizations.WithQuery(params))
			if err != nil {
				return nil, 0, err
			}
			return toRecords(res.Items), res.Total, nil
		},
		Read: func(ctx context.Context, id string) (Record, error) {
			res, err := c.Read(ctx, id)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Create: func(ctx context.Context, payload Record) (Record, error) {
			o, err := payloadAs[*organizations.Organization](payload)
			if err != nil {
				return nil, err
			}
			res, err := c.Create(ctx, o)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Update: func(ctx context.Context, id string, patch map[string]any) (Record, error) {
			res, err := c.Update(ctx, id, organizations.WithPatch(patch))
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
	}
}

func userFuncs(c *users.Client) ResourceFuncs {
	return ResourceFuncs{
		List: func(ctx context.Context, params Params) ([]Record, int, error) {
			res, err := c.List(ctx, users.WithQuery(params))
			if err != nil {
				return nil, 0, err
			}
			return toRecords(res.Items), res.Total, nil
		},
		Read: func(ctx context.Context, id string) (Record, error) {
			res, err := c.Read(ctx, id)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Create: func(ctx context.Context, payload Record) (Record, error) {
			u, err := payloadAs[*users.User](payload)
			if err != nil {
				return nil, err
			}
			res, err := c.Create(ctx, u)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Update: func(ctx context.Context, id string, patch map[string]any) (Record, error) {
			res, err := c.Update(ctx, id, users.WithPatch(patch))
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
	}
}

func insurancePlanFuncs(c *insuranceplans.Client) ResourceFuncs {
	return ResourceFuncs{
		List: func(ctx context.Context, params Params) ([]Record, int, error) {
			res, err := c.List(ctx, insuranceplans.WithQuery(params))
			if err != nil {
				return nil, 0, err
			}
			return toRecords(res.Items), res.Total, nil
		},
		Read: func(ctx context.Context, id string) (Record, error) {
			res, err := c.Read(ctx, id)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Create: func(ctx context.Context, payload Record) (Record, error) {
			p, err := payloadAs[*insuranceplans.InsurancePlan](payload)
			if err != nil {
				return nil, err
			}
			res, err := c.Create(ctx, p)
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Update: func(ctx context.Context, id string, patch map[string]any) (Record, error) {
			res, err := c.Update(ctx, id, insuranceplans.WithPatch(patch))
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
		Delete: func(ctx context.Context, id string) error {
			_, err := c.Delete(ctx, id)
			return err
		},
	}
}

func accessRequestFuncs(c *accessrequests.Client) ResourceFuncs {
	return ResourceFuncs{
		List: func(ctx context.Context, params Params) ([]Record, int, error) {
			res, err := c.List(ctx, accessrequests.WithQuery(params))
			if err != nil {
				return nil, 0, err
			}
			return toRecords(res.Items), res.Total, nil
		},
		Update: func(ctx context.Context, id string, patch map[string]any) (Record, error) {
			res, err := c.Update(ctx, id, accessrequests.WithPatch(patch))
			if err != nil {
				return nil, err
			}
			return res.Item, nil
		},
	}
}
