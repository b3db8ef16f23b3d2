package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/rpal/compiler"
)

// run evaluates src and returns the final value and everything printed.
func run(t *testing.T, src string) (Value, string) {
	t.Helper()
	var out strings.Builder
	v, err := Eval(src, Options{Out: &out})
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v, out.String()
}

func TestEvalValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"let", "let x = 5 in x + 1", "6"},
		{"factorial", "let rec fact n = (n eq 0) -> 1 | n * fact (n-1) in fact 5", "120"},
		{"function form", "let f x y = x + y in f 3 4", "7"},
		{"where", "x + 1 where x = 4", "5"},
		{"within", "let x = 2 within y = x * 3 in y", "6"},
		{"simultaneous", "let x = 1 and y = 2 in x - y", "-1"},
		{"at", "let add x y = x + y in 2 @ add 3", "5"},
		{"tuple pattern", "let f (a, b) = a - b in f (5, 3)", "2"},
		{"tuple", "(1, 2, 3)", "(1, 2, 3)"},
		{"nested tuple", "(1, ('a', nil), true)", "(1, (a, nil), true)"},
		{"empty tuple", "nil", "nil"},
		{"selection", "let t = (10, 20, 30) in t 2", "20"},
		{"aug", "nil aug 1 aug 2", "(1, 2)"},
		{"aug tuple", "(1, 2) aug (3, 4)", "(1, 2, (3, 4))"},
		{"precedence", "1 + 2 * 3 ** 2", "19"},
		{"negation", "-(2 - 5)", "3"},
		{"division", "7 / 2", "3"},
		{"comparison", "(3 gr 2, 3 < 2, 2 le 2, 'a' eq 'a', true ne false)", "(true, false, true, true, true)"},
		{"logic", "not (true & false) or false", "true"},
		{"conditional", "let abs n = n ls 0 -> -n | n in (abs (-4), abs 4)", "(4, 4)"},
		{"curried closure", "let add x y = x + y in let inc = add 1 in (inc 1, inc 2)", "(2, 3)"},
		{"lexical scope", "let x = 1 in let f y = x + y in let x = 100 in f 1", "2"},
		{"unit parameter", "let f () = 42 in f 0", "42"},
		{"recursion on tuples", "let rec sum (t, n) = n eq 0 -> 0 | t n + sum (t, n - 1) in sum ((1, 2, 3), 3)", "6"},
		{"higher order", "let twice f x = f (f x) in twice (fn n. n * n) 3", "81"},
		{"dummy", "dummy", "dummy"},
		{"closure", "fn x. x", "[lambda closure: x: 1]"},
		{"eta", "let rec f n = f n in f", "[eta closure: f: 2]"},
		{"shadowed built-in", "let Print = 3 in Print", "3"},
		{"mutual recursion", "let rec (even n = n eq 0 -> true | odd (n - 1) and odd n = n eq 0 -> false | even (n - 1)) in (even 10, odd 7, even 3)", "(true, true, false)"},
		{"recursive tuple of values", "let rec (f n = n eq 0 -> 'f' | g (n - 1) and g n = n eq 0 -> 'g' | f (n - 1)) in Conc (f 3) (g 3)", "gf"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, _ := run(t, tc.input)
			if got := v.String(); got != tc.want {
				t.Errorf("Eval(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestEvalBuiltins(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Stem 'abc'", "a"},
		{"Stern 'abc'", "bc"},
		{"Conc 'ab' 'cd'", "abcd"},
		{"conc (1, 2) (3, nil)", "(1, 2, 3, nil)"},
		{"Order (1, 2, 3)", "3"},
		{"Order nil", "0"},
		{"Null nil", "true"},
		{"Null (1, 2)", "false"},
		{"ItoS 42", "42"},
		{"Isinteger 3", "true"},
		{"Isinteger '3'", "false"},
		{"Istruthvalue false", "true"},
		{"Isstring 'x'", "true"},
		{"Istuple nil", "true"},
		{"Isfunction Print", "true"},
		{"Isfunction (fn x. x)", "true"},
		{"Isfunction 1", "false"},
		{"Isdummy dummy", "true"},
		{"let c = Conc 'x' in c 'y'", "xy"},
		{"Print 1", "dummy"},
	}

	for _, tc := range tests {
		v, _ := run(t, tc.input)
		if got := v.String(); got != tc.want {
			t.Errorf("Eval(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestEvalOutput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Print (1, 2, 3)", "(1, 2, 3)"},
		{"Print nil", "nil"},
		{`Print 'a\tb\n'`, "a\tb\n"},
		{`Print 'it\'s'`, "it's"},
		{"let p = (Print 1, Print 2) in p", "21"},
		{"Print (fn x. fn y. x)", "[lambda closure: x: 1]"},
		{"let rec rev s = s eq '' -> '' | Conc (rev (Stern s)) (Stem s) in Print (rev 'abc')", "cba"},
	}

	for _, tc := range tests {
		_, out := run(t, tc.input)
		if out != tc.want {
			t.Errorf("output of %q = %q, want %q", tc.input, out, tc.want)
		}
	}
}

func TestEvalRuntimeErrors(t *testing.T) {
	tests := []struct {
		input string
		op    string
	}{
		{"Print (1 & true)", "&"},
		{"x", "lookup"},
		{"1 2", "gamma"},
		{"(1, 2) 3", "tuple selection"},
		{"(1, 2) 0", "tuple selection"},
		{"(1, 2) 'a'", "tuple selection"},
		{"1 / 0", "/"},
		{"2 ** (0 - 1)", "**"},
		{"'a' + 1", "+"},
		{"1 -> 2 | 3", "->"},
		{"not 1", "not"},
		{"-'a'", "neg"},
		{"1 aug 2", "aug"},
		{"(1, 2) eq (1, 2)", "eq"},
		{"'a' gr 'b'", "gr"},
		{"(fn (a, b). a) (1, 2, 3)", "gamma"},
		{"(fn (a, b). a) 1", "gamma"},
		{"Stem ''", "Stem"},
		{"Stern 1", "Stern"},
		{"Conc 'a' (1, 2)", "Conc"},
		{"Order 'abc'", "Order"},
		{"Null 0", "Null"},
		{"ItoS 'a'", "ItoS"},
	}

	for _, tc := range tests {
		var out strings.Builder
		_, err := Eval(tc.input, Options{Out: &out})
		var re *RuntimeError
		if !errors.As(err, &re) {
			t.Errorf("Eval(%q) error = %v, want *RuntimeError", tc.input, err)
			continue
		}
		if re.Op != tc.op {
			t.Errorf("Eval(%q) op = %q, want %q (%v)", tc.input, re.Op, tc.op, err)
		}
		if out.Len() != 0 {
			t.Errorf("Eval(%q) printed %q before failing", tc.input, out.String())
		}
	}
}

func TestEvalCompileErrors(t *testing.T) {
	_, err := Eval("let x = in 1", Options{})
	var se compiler.SyntaxErrors
	if !errors.As(err, &se) {
		t.Errorf("Eval error = %v, want SyntaxErrors", err)
	}
}

func TestMaxSteps(t *testing.T) {
	prog, err := compiler.Compile("let rec loop x = loop x in loop 1")
	if err != nil {
		t.Fatal(err)
	}
	m := NewMachine(prog, Options{MaxSteps: 1000})
	_, err = m.Run()
	if err == nil || !strings.Contains(err.Error(), "step limit of 1000 exceeded") {
		t.Errorf("Run error = %v, want step limit", err)
	}
	if m.Steps() != 1000 {
		t.Errorf("Steps() = %d, want 1000", m.Steps())
	}
}

func TestRunCountsSteps(t *testing.T) {
	prog, err := compiler.Compile("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	m := NewMachine(prog, Options{})
	v, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if v != Integer(3) {
		t.Errorf("result = %v, want 3", v)
	}
	// 2, 1, +
	if m.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", m.Steps())
	}
}

func TestRunEmptyProgram(t *testing.T) {
	if _, err := NewMachine(&compiler.Program{}, Options{}).Run(); err == nil {
		t.Error("expected error for empty program")
	}
}
