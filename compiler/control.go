package compiler

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Control structures: linearized lambda bodies for the CSE machine
// ---------------------------------------------------------------------------

// Instr is one element of a control structure body.
type Instr interface {
	Mnemonic() string
}

// Name looks up an identifier in the current environment.
type Name struct {
	Ident string
}

// Const pushes a literal. Int holds the value of integer literals.
type Const struct {
	Kind Kind // KindInteger, KindString, KindTrue, KindFalse, KindNil or KindDummy
	Text string
	Int  int64
}

// Operator applies a unary or binary primitive to the top of the stack.
type Operator struct {
	Kind Kind
}

// Apply is gamma: apply the value on top of the stack to the one below it.
type Apply struct{}

// Tuple is tau: collect Arity values into a tuple.
type Tuple struct {
	Arity int
}

// FixedPoint is the Y* marker.
type FixedPoint struct{}

// Lambda captures the current environment around a control structure.
type Lambda struct {
	Control *Control
}

// Branch is beta: pick Then or Else by the boolean on top of the stack.
type Branch struct {
	Then []Instr
	Else []Instr
}

func (n *Name) Mnemonic() string { return fmt.Sprintf("<ID:%s>", n.Ident) }
func (c *Const) Mnemonic() string { return (&Node{Kind: c.Kind, Value: c.Text}).Label() }
func (o *Operator) Mnemonic() string { return o.Kind.String() }
func (*Apply) Mnemonic() string { return "gamma" }
func (t *Tuple) Mnemonic() string { return fmt.Sprintf("tau(%d)", t.Arity) }
func (*FixedPoint) Mnemonic() string { return "<Y*>" }
func (l *Lambda) Mnemonic() string { return fmt.Sprintf("lambda δ%d %s", l.Control.Index, l.Control.boundVars()) }
func (*Branch) Mnemonic() string { return "beta" }

// Control is one control structure: the linearized body of the program or
// of one lambda. Body is a stack; its last element executes first.
type Control struct {
	Index  int
	Params []string // bound names; more than one for a tuple pattern, none for ()
	Tuple  bool     // Params came from a tuple pattern
	Body   []Instr
}

func (c *Control) boundVars() string {
	if c.Tuple {
		return "(" + strings.Join(c.Params, ", ") + ")"
	}
	if len(c.Params) == 0 {
		return "()"
	}
	return c.Params[0]
}

// Program is the set of control structures built from one tree. Controls
// are ordered by index; the root is always index 0.
type Program struct {
	Tree     *Node
	Controls []*Control
}

// Root returns the program's own control structure.
func (p *Program) Root() *Control {
	return p.Controls[0]
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

type pendingControl struct {
	ctl   *Control
	start *Node
}

type builder struct {
	controls []*Control
	queue    []pendingControl
}

// Build linearizes a standardized tree into control structures. Structures
// are created breadth first: every lambda met while linearizing one body is
// queued and numbered at that moment, and linearized after the current body
// is done.
func Build(root *Node) (*Program, error) {
	if root == nil {
		return nil, &BuildError{Msg: "nil tree"}
	}
	b := &builder{}
	b.enqueue(root, nil, false)
	for len(b.queue) > 0 {
		p := b.queue[0]
		b.queue = b.queue[1:]
		body, err := b.linearize(p.start, nil)
		if err != nil {
			return nil, err
		}
		p.ctl.Body = body
	}
	return &Program{Tree: root, Controls: b.controls}, nil
}

func (b *builder) enqueue(start *Node, params []string, tuple bool) *Control {
	ctl := &Control{Index: len(b.controls), Params: params, Tuple: tuple}
	b.controls = append(b.controls, ctl)
	b.queue = append(b.queue, pendingControl{ctl: ctl, start: start})
	return ctl
}

func (b *builder) linearize(n *Node, body []Instr) ([]Instr, error) {
	switch {
	case n.Kind == KindLambda:
		if len(n.Children) != 2 {
			return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("lambda with %d children", len(n.Children))}
		}
		params, tuple, err := boundNames(n.Children[0])
		if err != nil {
			return nil, err
		}
		ctl := b.enqueue(n.Children[1], params, tuple)
		return append(body, &Lambda{Control: ctl}), nil

	case n.Kind == KindConditional:
		if len(n.Children) != 3 {
			return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("conditional with %d children", len(n.Children))}
		}
		then, err := b.linearize(n.Children[1], nil)
		if err != nil {
			return nil, err
		}
		els, err := b.linearize(n.Children[2], nil)
		if err != nil {
			return nil, err
		}
		body = append(body, &Branch{Then: then, Else: els})
		return b.linearize(n.Children[0], body)

	case n.Kind == KindIdentifier:
		return append(body, &Name{Ident: n.Value}), nil

	case n.Kind.IsLiteral():
		c := &Const{Kind: n.Kind, Text: n.Value}
		if n.Kind == KindInteger {
			v, err := strconv.ParseInt(n.Value, 10, 64)
			if err != nil {
				return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("integer literal %s out of range", n.Value)}
			}
			c.Int = v
		}
		return append(body, c), nil

	case n.Kind == KindYStar:
		return append(body, &FixedPoint{}), nil

	case n.Kind == KindGamma:
		if len(n.Children) != 2 {
			return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("gamma with %d children", len(n.Children))}
		}
		body = append(body, &Apply{})

	case n.Kind == KindTau:
		body = append(body, &Tuple{Arity: len(n.Children)})

	case n.Kind.IsUnaryOp() || n.Kind.IsBinaryOp():
		want := 2
		if n.Kind.IsUnaryOp() {
			want = 1
		}
		if len(n.Children) != want {
			return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("%s with %d operands", n.Kind, len(n.Children))}
		}
		body = append(body, &Operator{Kind: n.Kind})

	default:
		return nil, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("unexpected %s node", n.Kind)}
	}

	var err error
	for _, child := range n.Children {
		if body, err = b.linearize(child, body); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// boundNames returns the names bound by a lambda's parameter node.
func boundNames(n *Node) (names []string, tuple bool, err error) {
	switch n.Kind {
	case KindIdentifier:
		return []string{n.Value}, false, nil
	case KindParen:
		return nil, false, nil
	case KindComma:
		names = make([]string, len(n.Children))
		for i, c := range n.Children {
			if c.Kind != KindIdentifier {
				return nil, false, &BuildError{Pos: c.Pos, Msg: fmt.Sprintf("tuple pattern element is %s, not an identifier", c.Kind)}
			}
			names[i] = c.Value
		}
		return names, true, nil
	}
	return nil, false, &BuildError{Pos: n.Pos, Msg: fmt.Sprintf("cannot bind %s", n.Kind)}
}

// ---------------------------------------------------------------------------
// Listing
// ---------------------------------------------------------------------------

// Dump writes a listing of every control structure, one instruction per
// line in the order they were linearized.
func (p *Program) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, c := range p.Controls {
		if c.Index == 0 {
			fmt.Fprintf(bw, "; δ%d\n", c.Index)
		} else {
			fmt.Fprintf(bw, "; δ%d %s\n", c.Index, c.boundVars())
		}
		dumpBody(bw, c.Body, "    ")
	}
	return bw.Flush()
}

func dumpBody(w *bufio.Writer, body []Instr, indent string) {
	for i, in := range body {
		fmt.Fprintf(w, "%s%4d  %s\n", indent, i, in.Mnemonic())
		if br, ok := in.(*Branch); ok {
			fmt.Fprintf(w, "%s      then:\n", indent)
			dumpBody(w, br.Then, indent+"        ")
			fmt.Fprintf(w, "%s      else:\n", indent)
			dumpBody(w, br.Else, indent+"        ")
		}
	}
}
