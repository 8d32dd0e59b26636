package obstracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsDisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "stdout", cfg.ExporterType)
	assert.Equal(t, 1.0, cfg.SamplingRate)
}

func TestInitDisabledReturnsNoopProvider(t *testing.T) {
	p, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	_, err := Init(Config{Enabled: true, ExporterType: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestStartEvaluationAndInvocationProduceSpans(t *testing.T) {
	ctx, span := StartEvaluation(context.Background(), "run-1", 42)
	require.NotNil(t, span)
	defer span.End()

	_, invSpan := StartInvocation(ctx, 7)
	require.NotNil(t, invSpan)
	defer invSpan.End()

	RecordFailure(span, "invalid operator", 7, 1)
}

func TestSpanStackPushPopNestsAndUnwinds(t *testing.T) {
	ctx, span := StartEvaluation(context.Background(), "run-2", 10)
	defer span.End()

	stack := NewSpanStack(ctx)
	stack.Push(3)  // outer `!`
	stack.Push(11) // `!` nested inside the outer one's body
	stack.Pop(false)
	stack.Pop(true)

	// Popping past empty must not panic.
	stack.Pop(false)
}
