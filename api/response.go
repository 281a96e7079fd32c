// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUndecodable is wrapped by Decode when a successful response carries a
// body that does not decode into the target.
var ErrUndecodable = errors.New("undecodable response body")

// Response wraps an HTTP response with its fully read body
type Response struct {
	resp *http.Response

	Body *bytes.Buffer
	Map  map[string]any
}

// NewResponse wraps resp. The body is consumed by Decode.
func NewResponse(resp *http.Response) *Response {
	return &Response{resp: resp}
}

// HttpResponse returns the underlying HTTP response
func (r *Response) HttpResponse() *http.Response {
	return r.resp
}

// StatusCode returns the HTTP status code or 0 for a nil response
func (r *Response) StatusCode() int {
	if r == nil || r.resp == nil {
		return 0
	}
	return r.resp.StatusCode
}

func (r *Response) readBody() error {
	if r.Body != nil {
		return nil
	}
	r.Body = new(bytes.Buffer)
	if r.resp == nil || r.resp.Body == nil {
		return nil
	}
	defer r.resp.Body.Close()
	if _, err := r.Body.ReadFrom(r.resp.Body); err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	return nil
}

// Decode unmarshals the body into inStruct. When the server answered with an
// error status the returned *Error is populated instead and inStruct is left
// untouched.
func (r *Response) Decode(inStruct any) (*Error, error) {
	if r == nil || r.resp == nil {
		return nil, fmt.Errorf("nil response, cannot decode")
	}
	if err := r.readBody(); err != nil {
		return nil, err
	}

	if r.resp.StatusCode >= 400 {
		apiErr := &Error{
			Status:   r.resp.StatusCode,
			response: r,
		}
		if r.Body.Len() > 0 {
			if err := json.Unmarshal(r.Body.Bytes(), apiErr); err != nil {
				// Non-JSON error bodies are kept as the message.
				apiErr.Message = r.Body.String()
			}
		}
		if apiErr.Code == "" {
			apiErr.Code = codeForStatus(r.resp.StatusCode)
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(r.resp.StatusCode)
		}
		if apiErr.Details == nil {
			apiErr.Details = &ErrorDetails{}
		}
		if apiErr.Details.RequestId == "" && r.resp.Request != nil {
			apiErr.Details.RequestId = r.resp.Request.Header.Get(RequestIdHeader)
		}
		return apiErr, nil
	}

	if r.Body.Len() == 0 || inStruct == nil {
		return nil, nil
	}
	if err := json.Unmarshal(r.Body.Bytes(), inStruct); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if err := json.Unmarshal(r.Body.Bytes(), &r.Map); err != nil {
		// Bodies that are JSON arrays or scalars have no map form.
		r.Map = nil
	}
	return nil, nil
}
