package logutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core).With(zap.String("trace_id", "abc"))

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("hello", Values(zap.Int("n", 1)))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "abc", fields["trace_id"])
	require.Equal(t, map[string]any{"n": int64(1)}, fields["values"])

	require.Same(t, zap.L(), FromContext(context.Background()))
}
