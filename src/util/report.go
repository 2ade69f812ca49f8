// report.go classifies and prints the compiler's three kinds of failure:
// input errors (bad source), stage invariants (a bug in an earlier pass),
// and register exhaustion (a soft resource-limit warning). Severity is
// colourised the same way the teacher's own diagnostics are, falling back
// to plain text when the Reporter's output file is not a terminal.

package util

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind distinguishes the three error taxonomies the pipeline can raise.
type Kind int

const (
	// InputErrorKind covers lexical/syntactic errors and misplaced
	// constructs the surface parser is expected to reject -- reported with
	// line and column and fatal.
	InputErrorKind Kind = iota
	// StageInvariantKind covers an IR that is ill-formed for the stage
	// consuming it: a bug in an earlier pass. Always fatal.
	StageInvariantKind
	// RegisterExhaustionKind covers the allocator running out of physical
	// registers. Non-fatal (spec leaves rm = -1); Reporter prints it as a
	// warning and has no option that makes it an error.
	RegisterExhaustionKind
)

func (k Kind) String() string {
	switch k {
	case InputErrorKind:
		return "input error"
	case StageInvariantKind:
		return "stage invariant violated"
	case RegisterExhaustionKind:
		return "register exhaustion"
	default:
		return "error"
	}
}

// CompileError is the single error type returned out of any pipeline stage.
type CompileError struct {
	Kind       Kind
	Line, Col  int    // Only meaningful for InputErrorKind; 0 otherwise.
	Stage      string // Only meaningful for StageInvariantKind.
	Msg        string
	cause      error
}

func (e *CompileError) Error() string {
	switch e.Kind {
	case InputErrorKind:
		if e.Line > 0 {
			return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
		}
		return e.Msg
	case StageInvariantKind:
		return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
	default:
		return e.Msg
	}
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *CompileError) Unwrap() error {
	return e.cause
}

// ---------------------
// ----- Functions -----
// ---------------------

// NewInputError constructs a fatal, line/column-tagged input error.
func NewInputError(line, col int, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Kind: InputErrorKind,
		Line: line,
		Col:  col,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// NewStageInvariant wraps cause (which may be nil) as a fatal assertion
// failure attributed to stage.
func NewStageInvariant(stage string, cause error, format string, args ...interface{}) *CompileError {
	msg := fmt.Sprintf(format, args...)
	var wrapped error
	if cause != nil {
		wrapped = errors.Wrap(cause, msg)
	} else {
		wrapped = errors.New(msg)
	}
	return &CompileError{
		Kind:  StageInvariantKind,
		Stage: stage,
		Msg:   msg,
		cause: wrapped,
	}
}

// NewRegisterExhaustion constructs the non-fatal register-exhaustion
// warning for function fn.
func NewRegisterExhaustion(fn string) *CompileError {
	return &CompileError{
		Kind: RegisterExhaustionKind,
		Msg:  fmt.Sprintf("ran out of physical registers while allocating %s", fn),
	}
}

// Reporter prints CompileErrors to an output stream, colourising severity
// the way the teacher colourises its own diagnostics, and falling back to
// plain text when the stream is not a terminal.
type Reporter struct {
	w       io.Writer
	noColor bool
}

// NewReporter returns a Reporter writing to w. If w is *os.File and is not a
// terminal (per go-isatty), colour escapes are suppressed; a Windows-safe
// colorable writer is installed otherwise, mirroring the teacher's own
// terminal-detection gate in util/args.go.
func NewReporter(w io.Writer) *Reporter {
	r := &Reporter{w: w}
	if f, ok := w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			r.w = colorable.NewColorable(f)
		} else {
			r.noColor = true
		}
	}
	return r
}

// Report prints err with a severity-appropriate colour: red for input
// errors and stage invariants, yellow for register exhaustion.
func (r *Reporter) Report(err *CompileError) {
	var c *color.Color
	switch err.Kind {
	case RegisterExhaustionKind:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed, color.Bold)
	}
	if r.noColor {
		c.DisableColor()
	}
	_, _ = c.Fprintf(r.w, "%s: %s\n", err.Kind, err.Error())
}
