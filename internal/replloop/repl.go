// Package replloop provides an interactive line-oriented Read-Eval-Print
// Loop for QRT, run locally by `qrt repl`.
package replloop

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/qrtlang/qrt/internal/display"
	"github.com/qrtlang/qrt/internal/evaluator"
	"github.com/qrtlang/qrt/internal/value"
)

// REPL is an interactive QRT session. Variables persist across lines
// within one REPL process via evaluator.EvaluateSession.
type REPL struct {
	reader     *bufio.Reader
	writer     io.Writer
	vars       map[string]value.Value
	running    bool
	debugLevel int
	inputBuf   strings.Builder
}

// New builds a REPL reading from r and writing prompts/results to w.
// debugLevel follows the CLI's two-bit stack/map dump convention.
func New(r io.Reader, w io.Writer, debugLevel int) *REPL {
	return &REPL{
		reader:     bufio.NewReader(r),
		writer:     w,
		vars:       make(map[string]value.Value),
		debugLevel: debugLevel,
	}
}

// Start runs the loop until EOF or a `.quit` command.
func (repl *REPL) Start() error {
	repl.running = true
	fmt.Fprintln(repl.writer, color.CyanString("qrt repl — :quit-style jumps are yours; .quit exits"))

	for repl.running {
		repl.printPrompt()
		line, err := repl.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			fmt.Fprintln(repl.writer, color.RedString("read error: %v", err))
			continue
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" && repl.inputBuf.Len() == 0 {
			continue
		}

		if strings.HasPrefix(line, ".") && repl.inputBuf.Len() == 0 {
			repl.runCommand(line)
			continue
		}

		if repl.inputBuf.Len() > 0 {
			repl.inputBuf.WriteString("\n")
		}
		repl.inputBuf.WriteString(line)

		program := repl.inputBuf.String()
		if !balanced([]byte(program)) {
			continue
		}
		repl.inputBuf.Reset()
		repl.evalAndPrint(program)
	}

	fmt.Fprintln(repl.writer, color.CyanString("goodbye"))
	return nil
}

func (repl *REPL) printPrompt() {
	if repl.inputBuf.Len() > 0 {
		fmt.Fprint(repl.writer, color.YellowString("... "))
		return
	}
	fmt.Fprint(repl.writer, color.GreenString("qrt> "))
}

func (repl *REPL) runCommand(line string) {
	switch strings.TrimSpace(line) {
	case ".quit", ".exit":
		repl.running = false
	case ".vars":
		for name, v := range repl.vars {
			fmt.Fprintf(repl.writer, "%s = %s\n", name, value.Render(v))
		}
	case ".reset":
		repl.vars = make(map[string]value.Value)
		fmt.Fprintln(repl.writer, "variable table cleared")
	default:
		fmt.Fprintln(repl.writer, color.RedString("unknown command: %s", line))
	}
}

func (repl *REPL) evalAndPrint(program string) {
	result, vars, evalErr := evaluator.EvaluateSession([]byte(program), value.Void{}, repl.vars)
	repl.vars = vars
	if evalErr != nil {
		display.PrintError(repl.writer, evalErr, repl.debugLevel)
		return
	}
	fmt.Fprintln(repl.writer, color.GreenString(value.Render(result)))
}

// balanced reports whether program has no unmatched `{`, ignoring braces
// inside quoted Gestalt literals and respecting the evaluator's one-byte
// escape rule, so the REPL knows when to keep reading continuation lines.
func balanced(program []byte) bool {
	depth := 0
	inString := false
	escape := false

	for _, b := range program {
		if escape {
			escape = false
			continue
		}
		switch b {
		case '\\':
			escape = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}

	return depth <= 0 && !inString
}
