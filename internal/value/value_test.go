package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClone(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "gestalt is independent of its source",
			run: func(t *testing.T) {
				original := Gestalt{B: []byte("hello")}
				clone := Clone(original).(Gestalt)
				clone.B[0] = 'H'
				assert.Equal(t, byte('h'), original.B[0], "mutating clone must not affect original")
			},
		},
		{
			name: "set clone is deep",
			run: func(t *testing.T) {
				original := Set{Elems: []Value{Linear{N: 1}, Gestalt{B: []byte("a")}}}
				clone := Clone(original).(Set)
				clone.Elems[1].(Gestalt).B[0] = 'z'
				require.Equal(t, "a", string(original.Elems[1].(Gestalt).B))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.run)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"void equals void", Void{}, Void{}, true},
		{"linear compares by value", Linear{N: 1}, Linear{N: 1}, true},
		{"linear mismatch", Linear{N: 1}, Linear{N: 2}, false},
		{
			"structurally equal sets",
			Set{Elems: []Value{Linear{N: 1}, Gestalt{B: []byte("x")}}},
			Set{Elems: []Value{Linear{N: 1}, Gestalt{B: []byte("x")}}},
			true,
		},
		{
			"structurally different sets",
			Set{Elems: []Value{Linear{N: 1}, Gestalt{B: []byte("x")}}},
			Set{Elems: []Value{Linear{N: 1}, Gestalt{B: []byte("y")}}},
			false,
		},
		{"different kinds never equal", Void{}, Linear{N: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestLinearTruthy(t *testing.T) {
	assert.False(t, (Linear{N: 0.0}).Truthy())
	assert.True(t, (Linear{N: 0.5}).Truthy())
	assert.False(t, (Linear{N: -1}).Truthy())
}

func TestFormatLinear(t *testing.T) {
	require.Equal(t, "4", FormatLinear(4.0))
	require.Equal(t, "4.5", FormatLinear(4.5))
}

func TestRender(t *testing.T) {
	v := Set{Elems: []Value{Linear{N: 1}, Set{Elems: []Value{Gestalt{B: []byte("hi")}}}}}
	assert.Equal(t, `[1, ["hi"]]`, Render(v))
	assert.Equal(t, "Void", Render(Void{}))
	assert.Equal(t, "Kill(3)", Render(Kill{LoopID: 3}))
}
