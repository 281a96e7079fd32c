// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package errors

// Code specifies a code for the error.
type Code uint32

// String will return the Code's Info.Message
func (c Code) String() string {
	return c.Info().Message
}

// Info will look up the Code's Info.  If the Info is not found, it will return
// Info for an Unknown Code.
func (c Code) Info() Info {
	if info, ok := errorCodeInfo[c]; ok {
		return info
	}
	return errorCodeInfo[Unknown]
}

const (
	Unknown Code = 0 // Unknown will be equal to a zero value for Codes

	// General function errors are reserved Codes 100-999
	InvalidParameter Code = 100 // InvalidParameter represents an invalid parameter for an operation.
	Validation       Code = 101 // Validation represents a payload rejected before it was sent
	Unsupported      Code = 102 // Unsupported represents an operation the entity type does not offer

	// State errors are reserved Codes from 1000-1999
	NotFound Code = 1100 // NotFound represents that a record was not found
	Closed   Code = 1200 // Closed represents use of a closed store

	// Remote errors are reserved Codes from 3000-3999
	Network  Code = 3000 // Network represents a request that never got an answer from the server
	Api      Code = 3001 // Api represents an error status or body returned by the server
	Canceled Code = 3002 // Canceled represents a caller's context ending before completion
)
