package ctxutil_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/internal/ctxutil"
)

func TestWithCause(t *testing.T) {
	cause := errors.New("shutting down")

	t.Run("adds the cause to the context error", func(t *testing.T) {
		ctx, cancel := context.WithCancelCause(t.Context())
		cancel(cause)

		err := ctxutil.WithCause(ctx, fmt.Errorf("uploading edit: %w", ctx.Err()))
		require.ErrorIs(t, err, context.Canceled)
		require.ErrorIs(t, err, cause)
		require.EqualError(t, err, "uploading edit: context canceled: shutting down")
	})

	t.Run("leaves unrelated errors alone", func(t *testing.T) {
		ctx, cancel := context.WithCancelCause(t.Context())
		cancel(cause)

		other := errors.New("boom")
		require.Same(t, other, ctxutil.WithCause(ctx, other))
	})

	t.Run("live context", func(t *testing.T) {
		other := errors.New("boom")
		require.Same(t, other, ctxutil.WithCause(t.Context(), other))
		require.NoError(t, ctxutil.WithCause(t.Context(), nil))
	})

	t.Run("plain cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		require.Equal(t, context.Canceled, ctxutil.WithCause(ctx, ctx.Err()))
	})
}

func TestNotifyContextStop(t *testing.T) {
	ctx, stop := ctxutil.NotifyContext(t.Context(), os.Interrupt)
	require.NoError(t, ctx.Err())
	stop()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
	require.NotErrorIs(t, context.Cause(ctx), ctxutil.ErrInterrupted)
}
