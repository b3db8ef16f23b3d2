package compiler

import (
	"bytes"
	"testing"
)

func TestTreeRoundTrip(t *testing.T) {
	programs := []string{
		"let rec fact n = (n eq 0) -> 1 | n * fact (n-1) in fact 5",
		"fn () . ''",
		"let a, b = 1, 2 within c = a @ f b in Print c",
	}

	for _, src := range programs {
		root := mustParse(t, src)
		data, err := EncodeTree(root)
		if err != nil {
			t.Fatalf("EncodeTree(%q): %v", src, err)
		}
		back, err := DecodeTree(data)
		if err != nil {
			t.Fatalf("DecodeTree(%q): %v", src, err)
		}
		if !back.Equal(root) {
			t.Errorf("round trip of %q changed the tree:\n%s\nvs\n%s", src, Sprint(root), Sprint(back))
		}
		if back.Pos.Line != root.Pos.Line || back.Pos.Column != root.Pos.Column {
			t.Errorf("round trip of %q lost position %s, got %s", src, root.Pos, back.Pos)
		}
	}
}

func TestEncodeTreeDeterministic(t *testing.T) {
	a, err := EncodeTree(mustParse(t, "let x = 1 and y = 2 in x + y"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeTree(mustParse(t, "let x = 1 and y = 2 in x + y"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}
}

func TestDecodeTreeRejects(t *testing.T) {
	encode := func(n *Node) []byte {
		data, err := treeEncMode.Marshal(toWire(n))
		if err != nil {
			t.Fatal(err)
		}
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"runtime kind", encode(NewNode(KindGamma, NewNode(KindYStar), Ident("f")))},
		{"empty identifier", encode(NewNode(KindGamma, Ident(""), Ident("x")))},
		{"payload on interior node", encode(&Node{Kind: KindGamma, Value: "x"})},
		{"unknown kind", func() []byte {
			data, err := treeEncMode.Marshal(wireNode{Kind: "frobnicate"})
			if err != nil {
				t.Fatal(err)
			}
			return data
		}()},
	}

	for _, tc := range tests {
		if _, err := DecodeTree(tc.data); err == nil {
			t.Errorf("%s: DecodeTree succeeded, want error", tc.name)
		}
	}
}

func TestDecodedTreeRuns(t *testing.T) {
	data, err := EncodeTree(mustParse(t, "let f x y = x + y in f 3 4"))
	if err != nil {
		t.Fatal(err)
	}
	root, err := DecodeTree(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := CompileTree(root); err != nil {
		t.Errorf("CompileTree(decoded): %v", err)
	}
}
