package workflow

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewContext_Defaults tests the auto-generated defaults.
func TestNewContext_Defaults(t *testing.T) {
	ctx := NewContext(context.Background())

	assert.NotNil(t, ctx.Logger())
	assert.NotEmpty(t, ctx.RunID())
	assert.Empty(t, ctx.NodeID())
}

// TestNewContext_Options tests explicit logger and run ID.
func TestNewContext_Options(t *testing.T) {
	logger := slog.Default().With("component", "test")
	ctx := NewContext(context.Background(),
		WithLogger(logger),
		WithContextRunID("run-1"))

	assert.Same(t, logger, ctx.Logger())
	assert.Equal(t, "run-1", ctx.RunID())
}

// TestNewContext_UniqueRunIDs tests that generated run IDs differ.
func TestNewContext_UniqueRunIDs(t *testing.T) {
	a := NewContext(context.Background())
	b := NewContext(context.Background())

	assert.NotEqual(t, a.RunID(), b.RunID())
}

// TestContext_WithNodeID tests the per-step derived context.
func TestContext_WithNodeID(t *testing.T) {
	ctx := NewContext(context.Background(), WithContextRunID("run-2")).(*executionContext)
	derived := ctx.withNodeID("step-a")

	assert.Equal(t, "step-a", derived.NodeID())
	assert.Equal(t, "run-2", derived.RunID())
	assert.Empty(t, ctx.NodeID()) // original untouched
}

// TestContext_CancellationPropagates tests context.Context embedding.
func TestContext_CancellationPropagates(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	ctx := NewContext(base)

	cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
