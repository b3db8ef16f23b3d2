package server

import (
	"errors"

	"github.com/chazu/rpal/compiler"
)

// Diagnostic is one problem found in a program. Line and Column are
// 1-based; zero means the position is unknown.
type Diagnostic struct {
	Kind    string
	Line    int
	Column  int
	Message string
}

// Diagnostics flattens err into one Diagnostic per reported problem.
func Diagnostics(err error) []Diagnostic {
	if err == nil {
		return nil
	}

	var errs compiler.SyntaxErrors
	if errors.As(err, &errs) {
		diags := make([]Diagnostic, len(errs))
		for i, e := range errs {
			diags[i] = Diagnostic{Kind: "syntax", Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Msg}
		}
		return diags
	}

	var (
		se *compiler.SyntaxError
		st *compiler.StandardizeError
		be *compiler.BuildError
	)
	switch {
	case errors.As(err, &se):
		return []Diagnostic{{Kind: "syntax", Line: se.Pos.Line, Column: se.Pos.Column, Message: se.Msg}}
	case errors.As(err, &st):
		return []Diagnostic{{Kind: "standardize", Line: st.Pos.Line, Column: st.Pos.Column, Message: st.Rule + ": " + st.Msg}}
	case errors.As(err, &be):
		return []Diagnostic{{Kind: "build", Line: be.Pos.Line, Column: be.Pos.Column, Message: be.Msg}}
	}
	return []Diagnostic{{Kind: ErrorKind(err), Message: err.Error()}}
}

// Check runs every static stage on src without evaluating it.
func Check(src string) error {
	_, err := compiler.Compile(src)
	return err
}
