package compiler

import (
	"strings"
	"testing"
)

// dump renders a tree as dot-indented lines joined by spaces so that
// expectations fit on one line.
func dump(n *Node) string {
	return strings.Join(strings.Fields(Sprint(n)), " ")
}

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	root, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return root
}

func TestParserExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"x", "<ID:x>"},
		{"42", "<INT:42>"},
		{"'hi'", "<STR:'hi'>"},
		{"true", "<true>"},
		{"nil", "<nil>"},
		{"dummy", "<dummy>"},
		{"1 + 2 * 3", "+ .<INT:1> .* ..<INT:2> ..<INT:3>"},
		{"1 - 2 - 3", "- .- ..<INT:1> ..<INT:2> .<INT:3>"},
		{"2 ** 3 ** 2", "** .<INT:2> .** ..<INT:3> ..<INT:2>"},
		{"-x", "neg .<ID:x>"},
		{"+x", "<ID:x>"},
		{"(1 + 2) * 3", "* .+ ..<INT:1> ..<INT:2> .<INT:3>"},
		{"f x y", "gamma .gamma ..<ID:f> ..<ID:x> .<ID:y>"},
		{"f (x y)", "gamma .<ID:f> .gamma ..<ID:x> ..<ID:y>"},
		{"a @ f b", "@ .<ID:a> .<ID:f> .<ID:b>"},
		{"1, 2, 3", "tau .<INT:1> .<INT:2> .<INT:3>"},
		{"x aug 1", "aug .<ID:x> .<INT:1>"},
		{"a -> b | c", "-> .<ID:a> .<ID:b> .<ID:c>"},
		{"a or b or c", "or .or ..<ID:a> ..<ID:b> .<ID:c>"},
		{"not a & b", "& .not ..<ID:a> .<ID:b>"},
		{"x gr 1", "gr .<ID:x> .<INT:1>"},
		{"x >= 1", "ge .<ID:x> .<INT:1>"},
		{"x < 1", "ls .<ID:x> .<INT:1>"},
		{"x eq y", "eq .<ID:x> .<ID:y>"},
		{"x ne y", "ne .<ID:x> .<ID:y>"},
	}

	for _, tc := range tests {
		got := dump(mustParse(t, tc.input))
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParserDefinitions(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"let x = 5 in x", "let .= ..<ID:x> ..<INT:5> .<ID:x>"},
		{"x where x = 5", "where .<ID:x> .= ..<ID:x> ..<INT:5>"},
		{"fn x y . x", "lambda .<ID:x> .<ID:y> .<ID:x>"},
		{"fn (a, b) . a", "lambda ., ..<ID:a> ..<ID:b> .<ID:a>"},
		{"fn () . 1", "lambda .<()> .<INT:1>"},
		{"let f x = x in f", "let .function_form ..<ID:f> ..<ID:x> ..<ID:x> .<ID:f>"},
		{"let rec f = f in f", "let .rec ..= ...<ID:f> ...<ID:f> .<ID:f>"},
		{"let a = 1 and b = 2 in a", "let .and ..= ...<ID:a> ...<INT:1> ..= ...<ID:b> ...<INT:2> .<ID:a>"},
		{"let a = 1 within b = a in b", "let .within ..= ...<ID:a> ...<INT:1> ..= ...<ID:b> ...<ID:a> .<ID:b>"},
		{"let (a = 1) in a", "let .= ..<ID:a> ..<INT:1> .<ID:a>"},
		{"let a, b = 1, 2 in a", "let .= .., ...<ID:a> ...<ID:b> ..tau ...<INT:1> ...<INT:2> .<ID:a>"},
	}

	for _, tc := range tests {
		got := dump(mustParse(t, tc.input))
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input      string
		msg        string
		incomplete bool
	}{
		{"", "empty program", true},
		{"let x = 5 in", "expected operand, got end of input", true},
		{"let x = 5", `expected "in", got end of input`, true},
		{"'abc", "unterminated string", true},
		{"let x = in 5", `expected operand, got "in"`, false},
		{"1 2 )", `unexpected ")" after expression`, false},
		{"fn . x", `expected bound variable after 'fn', got "."`, false},
		{"a @ 1 2", `expected identifier, got "1"`, false},
	}

	for _, tc := range tests {
		_, err := Parse(tc.input)
		if err == nil {
			t.Errorf("Parse(%q): expected error", tc.input)
			continue
		}
		if !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("Parse(%q) error = %q, want it to contain %q", tc.input, err, tc.msg)
		}
		if got := IsIncomplete(err); got != tc.incomplete {
			t.Errorf("IsIncomplete(Parse(%q)) = %v, want %v", tc.input, got, tc.incomplete)
		}
	}
}

func TestParserPositions(t *testing.T) {
	root := mustParse(t, "let x = 5\nin x")
	if root.Pos.Line != 1 || root.Pos.Column != 1 {
		t.Errorf("let pos = %s, want 1:1", root.Pos)
	}
	body := root.Child(1)
	if body.Pos.Line != 2 || body.Pos.Column != 4 {
		t.Errorf("body pos = %s, want 2:4", body.Pos)
	}
}
