package display

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/qrtlang/qrt/internal/evalerror"
	"github.com/qrtlang/qrt/internal/stackentry"
	"github.com/qrtlang/qrt/internal/value"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintSuccess(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf, "4")
	assert.Equal(t, "=> 4\n", buf.String())
}

func TestPrintErrorRespectsDebugBits(t *testing.T) {
	err := &evalerror.EvalError{
		Message: "invalid operator",
		Offset:  5,
		Line:    0,
		Stack:   []stackentry.Entry{stackentry.ValueEntry{V: value.Linear{N: 1}}},
		Vars:    map[string]value.Value{"x": value.Linear{N: 2}},
	}

	var plain bytes.Buffer
	PrintError(&plain, err, 0)
	assert.NotContains(t, plain.String(), "variables:")
	assert.NotContains(t, plain.String(), "stack (bottom to top):")
	assert.Contains(t, plain.String(), "error at offset 5, line 0: invalid operator")

	var withStack bytes.Buffer
	PrintError(&withStack, err, DebugStack)
	assert.Contains(t, withStack.String(), "stack (bottom to top):")
	assert.Contains(t, withStack.String(), "Var(1)")

	var withVars bytes.Buffer
	PrintError(&withVars, err, DebugVars)
	assert.Contains(t, withVars.String(), "x = 2")
}

func TestPrintErrorCachedWithNilCacheMatchesPrintError(t *testing.T) {
	err := &evalerror.EvalError{Message: "invalid operator", Offset: 5, Line: 2}

	var plain bytes.Buffer
	PrintError(&plain, err, 0)

	var cached bytes.Buffer
	PrintErrorCached(context.Background(), &cached, err, 0, []byte("some\nprogram"), nil)

	assert.Equal(t, plain.String(), cached.String())
}
