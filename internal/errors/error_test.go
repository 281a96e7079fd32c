// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: BUSL-1.1

package errors_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/coverline/benefitcache/internal/errors"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ErrorE(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	errNotFound := errors.E(ctx, errors.WithoutEvent(), errors.WithCode(errors.NotFound))
	tests := []struct {
		name string
		opt  []errors.Option
		want error
	}{
		{
			name: "all-options",
			opt: []errors.Option{
				errors.WithCode(errors.InvalidParameter),
				errors.WithOp("alice.Bob"),
				errors.WithWrap(errNotFound),
				errors.WithMsg("test msg"),
			},
			want: &errors.Err{
				Op:      "alice.Bob",
				Wrapped: errNotFound,
				Msg:     "test msg",
				Code:    errors.InvalidParameter,
			},
		},
		{
			name: "no-options",
			want: &errors.Err{
				Code: errors.Unknown,
			},
		},
		{
			name: "uses-wrapped-code",
			opt: []errors.Option{
				errors.WithWrap(errNotFound),
			},
			want: &errors.Err{
				Code:    errors.NotFound,
				Wrapped: errNotFound,
			},
		},
		{
			name: "conflicting-withCode-withWrap",
			opt: []errors.Option{
				errors.WithCode(errors.Api),
				errors.WithWrap(errNotFound),
			},
			want: &errors.Err{
				Code:    errors.Api,
				Wrapped: errNotFound,
			},
		},
		{
			name: "formatted-msg",
			opt: []errors.Option{
				errors.WithMsg("unknown entity type %q", "pets"),
			},
			want: &errors.Err{
				Msg: `unknown entity type "pets"`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			err := errors.E(ctx, tt.opt...)
			require.Error(err)
			assert.Equal(tt.want, err)
		})
	}
	t.Run("nil-context", func(t *testing.T) {
		//nolint SA1012 intentionally passing a nil context.
		err := errors.E(nil, errors.WithCode(errors.InvalidParameter))
		require.Error(t, err)
		assert.Equal(t, &errors.Err{Code: errors.InvalidParameter}, err)
	})
}

func Test_NewAndWrap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	err := errors.New(ctx, errors.InvalidParameter, "cache.(Store).Load", "missing entity type", errors.WithCode(errors.Api))
	assert.Equal(t, &errors.Err{
		Code: errors.InvalidParameter,
		Op:   "cache.(Store).Load",
		Msg:  "missing entity type",
	}, err)

	wrapped := errors.Wrap(ctx, err, "cache.(Store).View", errors.WithOp("ignored"))
	assert.Equal(t, &errors.Err{
		Code:    errors.InvalidParameter,
		Op:      "cache.(Store).View",
		Wrapped: err,
	}, wrapped)

	std := fmt.Errorf("dial tcp: connection refused")
	netErr := errors.Wrap(ctx, std, "cache.fetch", errors.WithCode(errors.Network))
	assert.True(t, errors.Match(errors.T(errors.Network), netErr))
	assert.True(t, stderrors.Is(netErr, std))

	assert.Nil(t, errors.Wrap(ctx, nil, "nothing"))
}

func TestError_Error(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "msg",
			err:  errors.E(ctx, errors.WithoutEvent(), errors.WithMsg("test msg")),
			want: "test msg: unknown: error #0",
		},
		{
			name: "code",
			err:  errors.E(ctx, errors.WithoutEvent(), errors.WithCode(errors.NotFound)),
			want: "record not found, state violation: error #1100",
		},
		{
			name: "op-msg-and-code",
			err:  errors.E(ctx, errors.WithoutEvent(), errors.WithCode(errors.Network), errors.WithOp("alice.bob"), errors.WithMsg("test msg")),
			want: "alice.bob: test msg: transport error: error #3000",
		},
		{
			name: "unknown",
			err:  errors.E(ctx),
			want: "unknown, unknown: error #0",
		},
		{
			name: "wrapped-no-code",
			err:  errors.E(ctx, errors.WithoutEvent(), errors.WithWrap(errors.E(ctx, errors.WithCode(errors.InvalidParameter), errors.WithMsg("wrapped msg"))), errors.WithMsg("test msg")),
			want: "test msg: wrapped msg: parameter violation: error #100",
		},
		{
			name: "wrapped-different-error-codes",
			err:  errors.E(ctx, errors.WithoutEvent(), errors.WithCode(errors.Api), errors.WithWrap(errors.E(ctx, errors.WithCode(errors.InvalidParameter), errors.WithMsg("wrapped msg"))), errors.WithMsg("test msg")),
			want: "test msg: remote error: error #3001: wrapped msg: parameter violation: error #100",
		},
		{
			name: "wrapped-std-error-unknown-code",
			err:  errors.Wrap(ctx, fmt.Errorf("boom"), "alice.bob", errors.WithoutEvent()),
			want: "alice.bob: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
	t.Run("nil *Err", func(t *testing.T) {
		var err *errors.Err
		assert.Equal(t, "", err.Error())
		assert.Nil(t, err.Unwrap())
		assert.Equal(t, errors.Unknown.Info(), err.Info())
	})
}

func TestError_Event(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Debug})
	ctx := hclog.WithContext(context.Background(), logger)

	_ = errors.New(ctx, errors.Validation, "alice.bob", "name is required")
	assert.Contains(t, buf.String(), "name is required")
	assert.Contains(t, buf.String(), "op=alice.bob")

	buf.Reset()
	_ = errors.New(ctx, errors.Validation, "alice.bob", "quiet", errors.WithoutEvent())
	assert.Empty(t, buf.String())
}

func TestIsCanceledError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.True(t, errors.IsCanceledError(context.Canceled))
	assert.True(t, errors.IsCanceledError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, errors.IsCanceledError(errors.New(ctx, errors.Canceled, "op", "gone", errors.WithoutEvent())))
	assert.False(t, errors.IsCanceledError(nil))
	assert.False(t, errors.IsCanceledError(fmt.Errorf("other")))
	assert.True(t, errors.IsNotFoundError(errors.New(ctx, errors.NotFound, "op", "missing", errors.WithoutEvent())))
}
