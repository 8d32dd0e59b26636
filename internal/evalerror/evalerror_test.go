package evalerror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComputesLineOnDemand(t *testing.T) {
	program := []byte("a\nb\nc{\n}")
	err := New(program, 6, nil, nil, "invalid operator")
	require.Equal(t, 2, err.Line)
	require.Equal(t, 6, err.Offset)
}

func TestWrapInvocationPreservesInnerPosition(t *testing.T) {
	inner := New([]byte("x"), 3, nil, nil, "variable not found")
	wrapped := WrapInvocation(inner, 42)

	assert.Equal(t, inner.Offset, wrapped.Offset)
	assert.Equal(t, inner.Line, wrapped.Line)
	assert.NotEqual(t, inner.Message, wrapped.Message, "wrapped message should note the outer invocation offset")
}

func TestUnderrunMessage(t *testing.T) {
	err := Underrun([]byte(""), 0, nil, nil, 2)
	assert.Equal(t, "stack depth underrun at index 2", err.Message)
}
