// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Op represents an operation (package.function).
// For example iam.CreateRole
type Op string

// Err provides the ability to specify a Msg, Op, Code and Wrapped error.
// Errs must have a Code and all other fields are optional. We've chosen Err
// over Error for the identifier to support the easy embedding of Errs.  Errs
// can be embedded without a conflict between the embedded Err and Err.Error().
type Err struct {
	// Code is the error's code, which can be used to get the error's
	// errorCodeInfo, which contains the error's Kind and Message
	Code Code

	// Msg for the error
	Msg string

	// Op represents the operation raising/propagating an error and is optional.
	Op Op

	// Wrapped is the error which this Err wraps and will be nil if there's no
	// error being wrapped.
	Wrapped error
}

// E creates a new Err with provided code and supports the options of:
//
// * WithOp() - allows you to specify an optional Op (operation).
//
// * WithMsg() - allows you to specify an optional error msg, if the default
// msg for the error Code is not sufficient.
//
// * WithWrap() - allows you to specify an error to wrap. If the wrapped error
// is an *Err and no code was given, the wrapped error's code is used.
//
// * WithoutEvent() - suppresses the debug log entry which is otherwise written
// to the hclog.Logger carried by ctx.
func E(ctx context.Context, opt ...Option) error {
	opts := GetOpts(opt...)
	var code Code
	if opts.withCode != Unknown {
		code = opts.withCode
	} else {
		var wrapped *Err
		if errors.As(opts.withErrWrapped, &wrapped) {
			code = wrapped.Code
		}
	}

	err := &Err{
		Code:    code,
		Op:      opts.withOp,
		Wrapped: opts.withErrWrapped,
		Msg:     opts.withErrMsg,
	}

	if !opts.withoutEvent && ctx != nil {
		if l := hclog.FromContext(ctx); l.IsDebug() {
			l.Debug("error", "op", string(err.Op), "code", err.Code.String(), "error", err.Error())
		}
	}
	return err
}

// New creates a new Err with the provided code, op and msg. Supported options
// are WithWrap and WithoutEvent; WithCode, WithOp and WithMsg are ignored.
func New(ctx context.Context, c Code, op Op, msg string, opt ...Option) error {
	opt = append(opt, WithCode(c), WithOp(op), WithMsg(msg))
	return E(ctx, opt...)
}

// Wrap creates a new Err from the provided err and op, preserving the code
// from the originating error. Supported options are WithCode, WithMsg and
// WithoutEvent; WithWrap and WithOp are ignored.
func Wrap(ctx context.Context, e error, op Op, opt ...Option) error {
	if e == nil {
		return nil
	}
	opt = append(opt, WithWrap(e), WithOp(op))
	return E(ctx, opt...)
}

// Info about the Err
func (e *Err) Info() Info {
	if e == nil {
		return errorCodeInfo[Unknown]
	}
	return e.Code.Info()
}

// Error satisfies the error interface and returns a string representation of
// the Err
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	var s strings.Builder
	if e.Op != "" {
		join(&s, ": ", string(e.Op))
	}
	if e.Msg != "" {
		join(&s, ": ", e.Msg)
	}

	var skipInfo bool
	var wrapped *Err
	if errors.As(e.Wrapped, &wrapped) {
		// The wrapped Err carries the same code info, so print it once.
		skipInfo = wrapped.Code == e.Code
	} else if e.Wrapped != nil && e.Code == Unknown {
		skipInfo = true
	}

	if !skipInfo {
		info, ok := errorCodeInfo[e.Code]
		if !ok {
			info = errorCodeInfo[Unknown]
		}
		if e.Msg == "" && e.Op == "" {
			join(&s, ": ", info.Message)
			join(&s, ", ", info.Kind.String())
		} else {
			join(&s, ": ", info.Kind.String())
		}
		join(&s, ": ", fmt.Sprintf("error #%d", e.Code))
	}

	if e.Wrapped != nil {
		join(&s, ": ", e.Wrapped.Error())
	}
	return s.String()
}

func join(s *strings.Builder, delim string, str string) {
	if s.Len() == 0 {
		_, _ = s.WriteString(str)
		return
	}
	_, _ = s.WriteString(delim)
	_, _ = s.WriteString(str)
}

// Unwrap implements the errors.Unwrap interface and allows callers to use the
// errors.Is() and errors.As() functions effectively for any wrapped errors.
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}
