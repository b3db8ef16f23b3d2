package compiler

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Wire: CBOR interchange for raw trees
// ---------------------------------------------------------------------------

// wireNode is the serialized form of a Node. Kinds travel by display name
// so that encoded trees survive reordering of the Kind constants.
type wireNode struct {
	Kind     string     `cbor:"k"`
	Value    string     `cbor:"v,omitempty"`
	Children []wireNode `cbor:"c,omitempty"`
	Line     int        `cbor:"l,omitempty"`
	Column   int        `cbor:"col,omitempty"`
}

var (
	treeEncMode cbor.EncMode
	treeDecMode cbor.DecMode
	kindByName  = make(map[string]Kind, kindCount)
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR enc mode: %v", err))
	}
	treeEncMode = em

	// Each tree level costs two CBOR nesting levels (map, then array).
	dm, err := cbor.DecOptions{MaxNestedLevels: 65535, MaxArrayElements: 1 << 20}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("compiler: failed to create CBOR dec mode: %v", err))
	}
	treeDecMode = dm

	for k := KindInvalid + 1; k < kindCount; k++ {
		kindByName[k.String()] = k
	}
}

// EncodeTree serializes a raw tree to canonical CBOR.
func EncodeTree(root *Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("compiler: encode tree: nil tree")
	}
	return treeEncMode.Marshal(toWire(root))
}

// DecodeTree deserializes a raw tree. Only source-level kinds are
// accepted, and identifier, integer and string leaves must carry text.
func DecodeTree(data []byte) (*Node, error) {
	var w wireNode
	if err := treeDecMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("compiler: decode tree: %w", err)
	}
	root, err := fromWire(&w)
	if err != nil {
		return nil, fmt.Errorf("compiler: decode tree: %w", err)
	}
	return root, nil
}

func toWire(n *Node) wireNode {
	w := wireNode{
		Kind:   n.Kind.String(),
		Value:  n.Value,
		Line:   n.Pos.Line,
		Column: n.Pos.Column,
	}
	if len(n.Children) > 0 {
		w.Children = make([]wireNode, len(n.Children))
		for i, c := range n.Children {
			w.Children[i] = toWire(c)
		}
	}
	return w
}

func fromWire(w *wireNode) (*Node, error) {
	kind, ok := kindByName[w.Kind]
	if !ok || !kind.IsSourceKind() {
		return nil, fmt.Errorf("unknown node kind %q", w.Kind)
	}
	if kind.IsLeaf() != (w.Value != "" || kind == KindString) {
		return nil, fmt.Errorf("node %q: leaf text mismatch", w.Kind)
	}
	if kind.IsLeaf() && len(w.Children) > 0 {
		return nil, fmt.Errorf("leaf node %q has children", w.Kind)
	}
	n := &Node{
		Kind:  kind,
		Value: w.Value,
		Pos:   Position{Line: w.Line, Column: w.Column},
	}
	if len(w.Children) > 0 {
		n.Children = make([]*Node, len(w.Children))
		for i := range w.Children {
			c, err := fromWire(&w.Children[i])
			if err != nil {
				return nil, err
			}
			n.Children[i] = c
		}
	}
	return n, nil
}
