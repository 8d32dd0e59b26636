package linecache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestIsStableAndKeyed(t *testing.T) {
	a := Digest([]byte("hello"))
	b := Digest([]byte("hello"))
	c := Digest([]byte("world"))

	require.Equal(t, a, b, "digest must be deterministic")
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "qrt:linecache:"))
}

func TestOffsetsRoundTripThroughEncoding(t *testing.T) {
	program := []byte("a\nbc\nd\n")
	offsets := computeOffsets(program)
	require.Equal(t, []int{1, 4, 6}, offsets)

	decoded := decodeOffsets(encodeOffsets(offsets))
	assert.Equal(t, offsets, decoded)
}

func TestLineAt(t *testing.T) {
	offsets := []int{1, 4, 6}
	assert.Equal(t, 0, LineAt(offsets, 0))
	assert.Equal(t, 1, LineAt(offsets, 2))
	assert.Equal(t, 2, LineAt(offsets, 5))
	assert.Equal(t, 3, LineAt(offsets, 7))
}
