package replloop

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrtlang/qrt/internal/value"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestBalanced(t *testing.T) {
	tests := []struct {
		name    string
		program string
		want    bool
	}{
		{"flat complete", "+2{2};", true},
		{"unterminated", "+2{2", false},
		{"brace inside a gestalt literal does not count", `"{"`, true},
		{"escaped quote inside a closed literal still balances", `"\""`, true},
		{"escaped quote with no closing quote leaves the string open", `"\"`, false},
		{"loop with kill", "~done{(done)}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, balanced([]byte(tt.program)))
		})
	}
}

func TestStartEvaluatesLineAndPersistsVariables(t *testing.T) {
	input := strings.NewReader("#x{3}(x);\n(x);\n.quit\n")
	var out bytes.Buffer

	repl := New(input, &out, 0)
	require.NoError(t, repl.Start())

	output := out.String()
	assert.Equal(t, 2, strings.Count(output, "3"), "both lines print x's value 3; an unbound (x) on line two would print an error instead")
	assert.Contains(t, output, "goodbye")
}

func TestRunCommandVarsAndReset(t *testing.T) {
	var out bytes.Buffer
	repl := New(strings.NewReader(""), &out, 0)
	repl.vars["x"] = value.Linear{N: 1}

	repl.runCommand(".reset")
	assert.Empty(t, repl.vars)
	assert.Contains(t, out.String(), "variable table cleared")
}
