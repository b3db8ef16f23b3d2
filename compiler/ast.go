package compiler

import "fmt"

// ---------------------------------------------------------------------------
// AST: RPAL syntax trees, raw and standardized
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Kind tags a syntax tree node.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Leaves carrying text
	KindIdentifier
	KindInteger
	KindString

	// Literal leaves
	KindTrue
	KindFalse
	KindNil
	KindDummy

	// Sugared constructs, removed by standardization
	KindLet
	KindWhere
	KindWithin
	KindFcnForm
	KindSimultDef // "and"
	KindRec
	KindAt
	KindParen // "()" bound-variable placeholder

	// Constructs kept in standardized trees
	KindLambda
	KindGamma
	KindEqual
	KindComma
	KindTau
	KindConditional
	KindYStar

	// Operators
	KindAug
	KindOr
	KindAnd // "&"
	KindNot
	KindGr
	KindGe
	KindLs
	KindLe
	KindEq
	KindNe
	KindPlus
	KindMinus
	KindNeg
	KindMult
	KindDiv
	KindExp

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:     "<invalid>",
	KindIdentifier:  "<ID:%s>",
	KindInteger:     "<INT:%s>",
	KindString:      "<STR:'%s'>",
	KindTrue:        "<true>",
	KindFalse:       "<false>",
	KindNil:         "<nil>",
	KindDummy:       "<dummy>",
	KindLet:         "let",
	KindWhere:       "where",
	KindWithin:      "within",
	KindFcnForm:     "function_form",
	KindSimultDef:   "and",
	KindRec:         "rec",
	KindAt:          "@",
	KindParen:       "<()>",
	KindLambda:      "lambda",
	KindGamma:       "gamma",
	KindEqual:       "=",
	KindComma:       ",",
	KindTau:         "tau",
	KindConditional: "->",
	KindYStar:       "<Y*>",
	KindAug:         "aug",
	KindOr:          "or",
	KindAnd:         "&",
	KindNot:         "not",
	KindGr:          "gr",
	KindGe:          "ge",
	KindLs:          "ls",
	KindLe:          "le",
	KindEq:          "eq",
	KindNe:          "ne",
	KindPlus:        "+",
	KindMinus:       "-",
	KindNeg:         "neg",
	KindMult:        "*",
	KindDiv:         "/",
	KindExp:         "**",
}

// String returns the display name of the kind. Leaf kinds return their
// format pattern; use Node.Label for the rendered form.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsLeaf reports whether nodes of this kind carry a text payload.
func (k Kind) IsLeaf() bool {
	return k == KindIdentifier || k == KindInteger || k == KindString
}

// IsLiteral reports whether the kind denotes a constant value.
func (k Kind) IsLiteral() bool {
	switch k {
	case KindInteger, KindString, KindTrue, KindFalse, KindNil, KindDummy:
		return true
	}
	return false
}

// IsUnaryOp reports whether the kind is a one-operand primitive.
func (k Kind) IsUnaryOp() bool {
	return k == KindNeg || k == KindNot
}

// IsBinaryOp reports whether the kind is a two-operand primitive.
func (k Kind) IsBinaryOp() bool {
	switch k {
	case KindAug, KindOr, KindAnd, KindGr, KindGe, KindLs, KindLe, KindEq, KindNe,
		KindPlus, KindMinus, KindMult, KindDiv, KindExp:
		return true
	}
	return false
}

// IsSourceKind reports whether the kind may appear in a tree produced by
// the parser.
func (k Kind) IsSourceKind() bool {
	return k > KindInvalid && k < kindCount && k != KindYStar
}

// IsStandardKind reports whether the kind may appear in a standardized tree.
func (k Kind) IsStandardKind() bool {
	switch k {
	case KindLet, KindWhere, KindWithin, KindFcnForm, KindSimultDef, KindRec, KindAt, KindInvalid:
		return false
	}
	return k < kindCount
}

// Node is a syntax tree node. Children are owned and kept in source order.
type Node struct {
	Kind     Kind
	Value    string // payload for identifier, integer and string leaves
	Children []*Node
	Pos      Position
}

// NewNode creates an interior node with the given children.
func NewNode(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewLeaf creates a leaf node carrying text.
func NewLeaf(kind Kind, value string) *Node {
	return &Node{Kind: kind, Value: value}
}

// Ident is shorthand for an identifier leaf.
func Ident(name string) *Node {
	return NewLeaf(KindIdentifier, name)
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Label renders the per-kind display string: <ID:x>, <INT:3>, gamma, ...
func (n *Node) Label() string {
	if n.Kind.IsLeaf() {
		return fmt.Sprintf(n.Kind.String(), n.Value)
	}
	return n.Kind.String()
}

// Clone returns a structurally independent copy of the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Value: n.Value, Pos: n.Pos}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports whether two subtrees have the same shape, kinds and payloads.
// Positions are ignored.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.Value != o.Value || len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Walk calls fn for every node in pre-order with its depth. Returning false
// from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

func (n *Node) String() string {
	return n.Label()
}
