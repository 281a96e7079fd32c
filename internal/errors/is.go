// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package errors

import (
	"context"
	"errors"
)

// Is is the equivalent of the std errors.Is, but allows callers to only
// import this package for the capability.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is the equivalent of the std errors.As, and allows devs to only import
// this package for the capability.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is the equivalent of the std errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsNotFoundError returns a boolean indicating whether the error is known to
// report a not found error.
func IsNotFoundError(err error) bool {
	return Match(T(NotFound), err)
}

// IsCanceledError reports whether the error is a Canceled Err or a context
// cancellation/deadline error.
func IsCanceledError(err error) bool {
	if err == nil {
		return false
	}
	if Match(T(Canceled), err) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
