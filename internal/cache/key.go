// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package cache

import (
	"net/url"
	"strings"
)

// Params are the server-side list parameters of a load, for example
// status=pending for the pending requests badge. A nil or empty Params is the
// default key of the entity type.
type Params map[string]string

// Encode returns the canonical form of p: keys sorted, values URL encoded.
// Empty values are dropped so {"search": ""} and nil share a key.
func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	v := url.Values{}
	for k, val := range p {
		if k == "" || val == "" {
			continue
		}
		v.Set(k, val)
	}
	return v.Encode()
}

// IsDefault reports whether p addresses the default key
func (p Params) IsDefault() bool {
	return p.Encode() == ""
}

// Clone returns a copy of p that does not share storage. Like Encode it drops
// empty keys and values, so the copy is what gets sent to the server.
func (p Params) Clone() Params {
	var out Params
	for k, v := range p {
		if k == "" || v == "" {
			continue
		}
		if out == nil {
			out = make(Params, len(p))
		}
		out[k] = v
	}
	return out
}

// Key returns the cache key for an entity type and its params
func Key(et EntityType, p Params) string {
	enc := p.Encode()
	if enc == "" {
		return string(et)
	}
	return string(et) + paramKeySeparator + enc
}

// ParseParams parses the encoded params part of a cache key or a query
// string.
func ParseParams(s string) (Params, error) {
	s = strings.TrimPrefix(s, paramKeySeparator)
	if s == "" {
		return nil, nil
	}
	v, err := url.ParseQuery(s)
	if err != nil {
		return nil, err
	}
	p := make(Params, len(v))
	for k := range v {
		p[k] = v.Get(k)
	}
	return p, nil
}
