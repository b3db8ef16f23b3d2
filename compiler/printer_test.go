package compiler

import (
	"strings"
	"testing"
)

func TestPrintPreOrder(t *testing.T) {
	root := mustParse(t, "let x = 'hi' in Print x")
	var sb strings.Builder
	if err := Print(&sb, root); err != nil {
		t.Fatal(err)
	}
	want := `let
.=
..<ID:x>
..<STR:'hi'>
.gamma
..<ID:Print>
..<ID:x>
`
	if got := sb.String(); got != want {
		t.Errorf("Print =\n%s\nwant\n%s", got, want)
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		node *Node
		want string
	}{
		{Ident("abc"), "<ID:abc>"},
		{NewLeaf(KindInteger, "7"), "<INT:7>"},
		{NewLeaf(KindString, "a b"), "<STR:'a b'>"},
		{NewNode(KindYStar), "<Y*>"},
		{NewNode(KindFcnForm), "function_form"},
		{NewNode(KindConditional), "->"},
		{NewNode(KindParen), "<()>"},
		{NewNode(KindAnd), "&"},
		{NewNode(KindSimultDef), "and"},
	}
	for _, tc := range tests {
		if got := tc.node.Label(); got != tc.want {
			t.Errorf("Label() = %q, want %q", got, tc.want)
		}
	}
}

func TestNodeCloneIndependent(t *testing.T) {
	orig := mustParse(t, "let x = (1, 2) in x")
	c := orig.Clone()
	if !c.Equal(orig) {
		t.Fatal("clone not equal to original")
	}
	c.Children[0].Children[0].Value = "y"
	c.Children[1].Kind = KindInteger
	if orig.Children[0].Children[0].Value != "x" || orig.Children[1].Kind != KindIdentifier {
		t.Error("mutating clone changed the original")
	}
	if c.Equal(orig) {
		t.Error("mutated clone still equal to original")
	}
}
