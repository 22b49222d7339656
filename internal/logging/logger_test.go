package logging

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

func TestWithOperation(t *testing.T) {
	ctx, id := WithOperation(context.Background())

	got, ok := OperationID(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	_, ok = OperationID(context.Background())
	assert.False(t, ok)
}

func TestWithOperationIDFallsBack(t *testing.T) {
	l := Nop()
	assert.Same(t, l.Logger, l.WithOperationID(context.Background()))
	assert.NotSame(t, l.Logger, l.WithOperationID(func() context.Context {
		ctx, _ := WithOperation(context.Background())
		return ctx
	}()))
}
