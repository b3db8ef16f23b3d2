package compiler

import "errors"

// ---------------------------------------------------------------------------
// Standardizer: rewrites a raw tree into canonical form
// ---------------------------------------------------------------------------

// Standardize rewrites the raw tree rooted at root in place so that only
// lambda, gamma, equality, conditional, tuple, fixed point, operators and
// leaves remain. Children are rewritten before their parent. Canonical
// trees pass through unchanged.
//
// A node whose shape breaks a rule's precondition aborts the rewrite with a
// *StandardizeError; the tree is left partially rewritten.
func Standardize(root *Node) error {
	if root == nil {
		return errors.New("standardize: nil tree")
	}
	return standardize(root)
}

func standardize(n *Node) error {
	for _, child := range n.Children {
		if err := standardize(child); err != nil {
			return err
		}
	}

	switch n.Kind {
	case KindLet:
		return rewriteLet(n)
	case KindWhere:
		return rewriteWhere(n)
	case KindFcnForm:
		return rewriteFcnForm(n)
	case KindLambda:
		return rewriteLambda(n)
	case KindAt:
		return rewriteAt(n)
	case KindWithin:
		return rewriteWithin(n)
	case KindSimultDef:
		return rewriteSimultDef(n)
	case KindRec:
		return rewriteRec(n)
	}
	return nil
}

// isBinding reports whether n is an equality node with a name and a value.
func isBinding(n *Node) bool {
	return n != nil && n.Kind == KindEqual && len(n.Children) == 2
}

// let X = E in B  =>  gamma (lambda X B) E
func rewriteLet(n *Node) error {
	if len(n.Children) != 2 {
		return malformed("let", n, "expected 2 children, got %d", len(n.Children))
	}
	eq, body := n.Children[0], n.Children[1]
	if !isBinding(eq) {
		return malformed("let", n, "left child is %s, not =", eq.Kind)
	}
	x, e := eq.Children[0], eq.Children[1]
	eq.Kind = KindLambda
	eq.Children = []*Node{x, body}
	n.Kind = KindGamma
	n.Children = []*Node{eq, e}
	return nil
}

// B where X = E  =>  let X = E in B
func rewriteWhere(n *Node) error {
	if len(n.Children) != 2 {
		return malformed("where", n, "expected 2 children, got %d", len(n.Children))
	}
	n.Children[0], n.Children[1] = n.Children[1], n.Children[0]
	n.Kind = KindLet
	if err := rewriteLet(n); err != nil {
		return malformed("where", n, "right child is %s, not =", n.Children[0].Kind)
	}
	return nil
}

// f V1 ... Vn = E  =>  f = lambda V1 (... lambda Vn E)
func rewriteFcnForm(n *Node) error {
	if len(n.Children) < 3 {
		return malformed("function_form", n, "expected name, parameters and body, got %d children", len(n.Children))
	}
	n.Children = []*Node{n.Children[0], lambdaChain(n.Pos, n.Children[1:])}
	n.Kind = KindEqual
	return nil
}

// lambda V1 ... Vn E  =>  lambda V1 (... lambda Vn E)
func rewriteLambda(n *Node) error {
	if len(n.Children) < 2 {
		return malformed("lambda", n, "expected parameter and body, got %d children", len(n.Children))
	}
	if len(n.Children) > 2 {
		n.Children = []*Node{n.Children[0], lambdaChain(n.Pos, n.Children[1:])}
	}
	return nil
}

// lambdaChain right-nests parameters around the last node, the body.
func lambdaChain(pos Position, nodes []*Node) *Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return nodeAt(pos, KindLambda, nodes[0], lambdaChain(pos, nodes[1:]))
}

// E1 @ N E2  =>  gamma (gamma N E1) E2
func rewriteAt(n *Node) error {
	if len(n.Children) != 3 {
		return malformed("@", n, "expected 3 children, got %d", len(n.Children))
	}
	e1, name, e2 := n.Children[0], n.Children[1], n.Children[2]
	n.Kind = KindGamma
	n.Children = []*Node{nodeAt(n.Pos, KindGamma, name, e1), e2}
	return nil
}

// X1 = E1 within X2 = E2  =>  X2 = gamma (lambda X1 E2) E1
func rewriteWithin(n *Node) error {
	if len(n.Children) != 2 || !isBinding(n.Children[0]) || !isBinding(n.Children[1]) {
		return malformed("within", n, "both children must be = bindings")
	}
	x1, e1 := n.Children[0].Children[0], n.Children[0].Children[1]
	x2, e2 := n.Children[1].Children[0], n.Children[1].Children[1]
	lambda := nodeAt(n.Pos, KindLambda, x1, e2)
	n.Kind = KindEqual
	n.Children = []*Node{x2, nodeAt(n.Pos, KindGamma, lambda, e1)}
	return nil
}

// X1 = E1 and ... and Xn = En  =>  , X1 ... Xn = tau E1 ... En
func rewriteSimultDef(n *Node) error {
	if len(n.Children) < 2 {
		return malformed("and", n, "expected at least 2 definitions, got %d", len(n.Children))
	}
	names := make([]*Node, len(n.Children))
	values := make([]*Node, len(n.Children))
	for i, def := range n.Children {
		if !isBinding(def) {
			return malformed("and", n, "definition %d is %s, not =", i+1, def.Kind)
		}
		names[i], values[i] = def.Children[0], def.Children[1]
	}
	n.Kind = KindEqual
	n.Children = []*Node{nodeAt(n.Pos, KindComma, names...), nodeAt(n.Pos, KindTau, values...)}
	return nil
}

// rec X = E  =>  X = gamma Y* (lambda X E)
func rewriteRec(n *Node) error {
	if len(n.Children) != 1 || !isBinding(n.Children[0]) {
		return malformed("rec", n, "child must be a = binding")
	}
	x, e := n.Children[0].Children[0], n.Children[0].Children[1]
	lambda := nodeAt(n.Pos, KindLambda, x, e)
	ystar := nodeAt(n.Pos, KindYStar)
	n.Kind = KindEqual
	n.Children = []*Node{x.Clone(), nodeAt(n.Pos, KindGamma, ystar, lambda)}
	return nil
}

// IsStandardized reports whether every node in the tree is of a kind that
// may appear after standardization and every lambda binds one parameter.
func IsStandardized(root *Node) bool {
	ok := true
	root.Walk(func(n *Node, _ int) bool {
		if !n.Kind.IsStandardKind() || (n.Kind == KindLambda && len(n.Children) != 2) {
			ok = false
		}
		return ok
	})
	return ok
}
