package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// SyntaxError reports source text the parser could not accept.
type SyntaxError struct {
	Pos Position
	Msg string
	// AtEOF is set when the input ended before the construct was complete.
	AtEOF bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Msg)
}

// SyntaxErrors collects every error found in one parse.
type SyntaxErrors []*SyntaxError

func (es SyntaxErrors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d syntax errors:\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.As.
func (es SyntaxErrors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// IsIncomplete reports whether err was caused only by input ending early,
// meaning more text could still make it valid.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	if !errors.As(err, &se) {
		return false
	}
	return se.AtEOF
}

// StandardizeError reports a node whose shape violates the precondition of
// a rewrite rule. It aborts the whole build.
type StandardizeError struct {
	Rule string // construct being rewritten: "let", "within", ...
	Pos  Position
	Msg  string
}

func (e *StandardizeError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("standardize %s at %s: %s", e.Rule, e.Pos, e.Msg)
	}
	return fmt.Sprintf("standardize %s: %s", e.Rule, e.Msg)
}

func malformed(rule string, n *Node, format string, args ...any) *StandardizeError {
	return &StandardizeError{Rule: rule, Pos: n.Pos, Msg: fmt.Sprintf(format, args...)}
}

// BuildError reports a standardized tree that cannot be linearized into
// control structures.
type BuildError struct {
	Pos Position
	Msg string
}

func (e *BuildError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("control structure at %s: %s", e.Pos, e.Msg)
	}
	return "control structure: " + e.Msg
}
