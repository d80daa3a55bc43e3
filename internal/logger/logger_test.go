package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := zap.New(core)

	ctx := NewContext(context.Background(), l)
	L(ctx).Info("hello", zap.String("doc", "d1"))

	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "d1", logs.All()[0].ContextMap()["doc"])
}

func TestFallsBackToGlobal(t *testing.T) {
	assert.Same(t, zap.L(), L(context.Background()))
	assert.Same(t, zap.L(), L(nil)) //nolint:staticcheck
}
