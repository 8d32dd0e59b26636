// Package display renders evaluator results and error envelopes to a
// terminal, with fatih/color for the same warm/cool palette the teacher's
// CLI uses for its own diagnostic output.
package display

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/qrtlang/qrt/internal/evalerror"
	"github.com/qrtlang/qrt/internal/linecache"
	"github.com/qrtlang/qrt/internal/stackentry"
	"github.com/qrtlang/qrt/internal/value"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	grayColor    = color.New(color.FgHiBlack)
)

// PrintSuccess renders a resulting value's debug form.
func PrintSuccess(w io.Writer, rendered string) {
	successColor.Fprintf(w, "=> %s\n", rendered)
}

// debugLevel is a two-bit field: bit0 selects the stack dump, bit1 the
// variable table dump, matching the CLI's documented encoding.
const (
	DebugStack = 1 << 0
	DebugVars  = 1 << 1
)

// PrintError renders an *evalerror.EvalError the way the host is specified
// to: the variable table and stack (bottom-to-top) when the matching debug
// bits are set, then the byte offset, line number, and message.
func PrintError(w io.Writer, err *evalerror.EvalError, debugLevel int) {
	printError(w, err, debugLevel, err.Line)
}

// PrintErrorCached behaves like PrintError, except the displayed line number
// comes from cache instead of the envelope's own snapshot. The evaluator's
// own err.Line is still authoritative and unaffected — this only saves the
// display layer a repeat newline scan when the same program is re-rendered
// (e.g. `qrt run --watch` stuck re-printing the same failure). cache may be
// nil, in which case this is exactly PrintError.
func PrintErrorCached(ctx context.Context, w io.Writer, err *evalerror.EvalError, debugLevel int, program []byte, cache *linecache.Cache) {
	line := err.Line
	if cache != nil {
		if offsets, cacheErr := cache.Offsets(ctx, program); cacheErr == nil {
			line = linecache.LineAt(offsets, err.Offset)
		}
	}
	printError(w, err, debugLevel, line)
}

func printError(w io.Writer, err *evalerror.EvalError, debugLevel int, line int) {
	if debugLevel&DebugVars != 0 && len(err.Vars) > 0 {
		infoColor.Fprintln(w, "variables:")
		names := make([]string, 0, len(err.Vars))
		for name := range err.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %s\n", name, value.Render(err.Vars[name]))
		}
	}

	if debugLevel&DebugStack != 0 {
		infoColor.Fprintln(w, "stack (bottom to top):")
		for i, e := range err.Stack {
			fmt.Fprintf(w, "  [%d] %s\n", i, stackentry.Render(e))
		}
	}

	errorColor.Fprintf(w, "error at offset %d, line %d: %s\n", err.Offset, line, err.Message)
}

// PrintWarning and PrintInfo cover the ambient CLI chatter (hot-reload
// notices, connection events) that isn't part of an evaluation result.
func PrintWarning(w io.Writer, format string, args ...interface{}) {
	warningColor.Fprintf(w, format+"\n", args...)
}

func PrintInfo(w io.Writer, format string, args ...interface{}) {
	infoColor.Fprintf(w, format+"\n", args...)
}
