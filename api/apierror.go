// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
)

var (
	ErrNotFound         = &Error{Status: http.StatusNotFound, Code: codes.NotFound.String()}
	ErrInvalidArgument  = &Error{Status: http.StatusBadRequest, Code: codes.InvalidArgument.String()}
	ErrPermissionDenied = &Error{Status: http.StatusForbidden, Code: codes.PermissionDenied.String()}
	ErrUnauthorized     = &Error{Status: http.StatusUnauthorized, Code: codes.Unauthenticated.String()}
	ErrConflict         = &Error{Status: http.StatusConflict, Code: codes.AlreadyExists.String()}
	ErrInternal         = &Error{Status: http.StatusInternalServerError, Code: codes.Internal.String()}
)

// Error is an error returned by the benefits API
type Error struct {
	Status  int           `json:"-"`
	Code    string        `json:"kind,omitempty"`
	Message string        `json:"message,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`

	response *Response
}

// ErrorDetails carries optional structured information about an API error
type ErrorDetails struct {
	RequestId     string       `json:"request_id,omitempty"`
	TraceId       string       `json:"trace_id,omitempty"`
	RequestFields []FieldError `json:"request_fields,omitempty"`
}

// FieldError names an input field the server rejected
type FieldError struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Response returns the response the error was decoded from, if any
func (e *Error) Response() *Response {
	return e.response
}

// AsServerError returns an api *Error from the provided error.  If the provided error
// is not an api Error nil is returned instead.
func AsServerError(in error) *Error {
	var serverErr *Error
	if !errors.As(in, &serverErr) {
		return nil
	}
	return serverErr
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	msg := []string{fmt.Sprintf("%s\n", e.Message), fmt.Sprintf("  %d, %s\n", e.Status, e.Code)}

	if e.Details != nil {
		if e.Details.RequestId != "" {
			msg = append(msg, fmt.Sprintf("  Request ID: %s\n", e.Details.RequestId))
		}
		if e.Details.TraceId != "" {
			msg = append(msg, fmt.Sprintf("  Trace ID: %s\n", e.Details.TraceId))
		}
		for _, rf := range e.Details.RequestFields {
			msg = append(msg, fmt.Sprintf("  '-%s': %s\n", strings.ReplaceAll(rf.Name, "_", "-"), rf.Description))
		}
	}

	return strings.TrimSuffix(strings.Join(msg, ""), "\n")
}

// Errors are considered the same iff they are both api.Errors and their
// statuses and codes are the same.
func (e *Error) Is(target error) bool {
	tApiErr := AsServerError(target)
	return tApiErr != nil && tApiErr.Code == e.Code && tApiErr.Status == e.Status
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return codes.NotFound.String()
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument.String()
	case http.StatusForbidden:
		return codes.PermissionDenied.String()
	case http.StatusUnauthorized:
		return codes.Unauthenticated.String()
	case http.StatusConflict:
		return codes.AlreadyExists.String()
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted.String()
	case http.StatusServiceUnavailable:
		return codes.Unavailable.String()
	default:
		if status >= 500 {
			return codes.Internal.String()
		}
		return codes.Unknown.String()
	}
}
