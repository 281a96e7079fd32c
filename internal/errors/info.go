// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package errors

// Info contains details of the specific error code
type Info struct {
	// Kind specifies the kind of error (unknown, parameter, state, etc).
	Kind Kind

	// Message provides a default message for the error code
	Message string
}

// errorCodeInfo provides a map of unique Codes (IDs) to their
// corresponding Kind and a default Message.
var errorCodeInfo = map[Code]Info{
	Unknown: {
		Message: "unknown",
		Kind:    Other,
	},
	InvalidParameter: {
		Message: "invalid parameter",
		Kind:    Parameter,
	},
	Validation: {
		Message: "validation failed",
		Kind:    Parameter,
	},
	Unsupported: {
		Message: "operation not supported",
		Kind:    Parameter,
	},
	NotFound: {
		Message: "record not found",
		Kind:    State,
	},
	Closed: {
		Message: "closed",
		Kind:    State,
	},
	Network: {
		Message: "network failure",
		Kind:    Transport,
	},
	Api: {
		Message: "api error",
		Kind:    Remote,
	},
	Canceled: {
		Message: "canceled",
		Kind:    Transport,
	},
}
