// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package errors

// Kind specifies the kind of error (unknown, parameter, state, etc).
type Kind uint32

const (
	Other Kind = iota
	Parameter
	State
	Transport
	Remote
)

func (e Kind) String() string {
	return map[Kind]string{
		Other:     "unknown",
		Parameter: "parameter violation",
		State:     "state violation",
		Transport: "transport error",
		Remote:    "remote error",
	}[e]
}
