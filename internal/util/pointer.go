// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package util

// Pointer returns a pointer to a copy of input
func Pointer[T any](input T) *T {
	ret := input
	return &ret
}
