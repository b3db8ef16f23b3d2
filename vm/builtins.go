package vm

import (
	"io"
	"sort"
	"strconv"

	"github.com/chazu/rpal/compiler"
)

// ---------------------------------------------------------------------------
// Built-in functions
// ---------------------------------------------------------------------------

type builtinFunc func(m *Machine, args []Value) (Value, error)

type builtinDef struct {
	arity int
	fn    builtinFunc
	doc   string
}

var builtins = map[string]builtinDef{
	"Print":        {1, printBuiltin, "Print x writes x to the output and returns dummy."},
	"print":        {1, printBuiltin, "print x is Print x."},
	"Isinteger":    {1, isType(func(v Value) bool { _, ok := v.(Integer); return ok }), "Isinteger x is true when x is an integer."},
	"Istruthvalue": {1, isType(func(v Value) bool { _, ok := v.(Boolean); return ok }), "Istruthvalue x is true when x is true or false."},
	"Isstring":     {1, isType(func(v Value) bool { _, ok := v.(String); return ok }), "Isstring x is true when x is a string."},
	"Istuple":      {1, isType(func(v Value) bool { _, ok := v.(*Tuple); return ok }), "Istuple x is true when x is a tuple, including nil."},
	"Isfunction":   {1, isType(isFunction), "Isfunction x is true when x can be applied as a function."},
	"Isdummy":      {1, isType(func(v Value) bool { _, ok := v.(Dummy); return ok }), "Isdummy x is true when x is dummy."},
	"Stem":         {1, stem, "Stem s is the first character of s."},
	"Stern":        {1, stern, "Stern s is s without its first character."},
	"Conc":         {2, conc, "Conc a b joins two strings or two tuples."},
	"conc":         {2, conc, "conc a b is Conc a b."},
	"Order":        {1, order, "Order t is the number of elements of tuple t."},
	"Null":         {1, null, "Null t is true when t is nil."},
	"ItoS":         {1, itos, "ItoS n is the decimal string for integer n."},
}

// IsBuiltin reports whether name resolves to a built-in when no binding
// shadows it.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// BuiltinDoc returns the one-line description of a built-in.
func BuiltinDoc(name string) (string, bool) {
	def, ok := builtins[name]
	return def.doc, ok
}

// BuiltinNames returns the built-in names in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// callBuiltin adds arg to b's arguments and runs it once all are present.
func (m *Machine) callBuiltin(b *Builtin, arg Value) (Value, error) {
	def, ok := builtins[b.Name]
	if !ok {
		return nil, runtimeErrorf(b.Name, "unknown built-in")
	}
	args := append(append(make([]Value, 0, len(b.Args)+1), b.Args...), arg)
	if len(args) < def.arity {
		return &Builtin{Name: b.Name, Args: args}, nil
	}
	return def.fn(m, args)
}

func printBuiltin(m *Machine, args []Value) (Value, error) {
	if _, err := io.WriteString(m.out, args[0].String()); err != nil {
		return nil, runtimeErrorf("Print", "%v", err)
	}
	return Dummy{}, nil
}

func isType(pred func(Value) bool) builtinFunc {
	return func(_ *Machine, args []Value) (Value, error) {
		return Boolean(pred(args[0])), nil
	}
}

func isFunction(v Value) bool {
	switch v.(type) {
	case *Closure, *Eta, *Builtin, YStar:
		return true
	}
	return false
}

func stem(_ *Machine, args []Value) (Value, error) {
	s, ok := args[0].(String)
	if !ok {
		return nil, typeError("Stem", args[0])
	}
	if len(s) == 0 {
		return nil, runtimeErrorf("Stem", "empty string")
	}
	r := []rune(string(s))
	return String(r[:1]), nil
}

func stern(_ *Machine, args []Value) (Value, error) {
	s, ok := args[0].(String)
	if !ok {
		return nil, typeError("Stern", args[0])
	}
	if len(s) == 0 {
		return nil, runtimeErrorf("Stern", "empty string")
	}
	r := []rune(string(s))
	return String(r[1:]), nil
}

func conc(_ *Machine, args []Value) (Value, error) {
	switch a := args[0].(type) {
	case String:
		if b, ok := args[1].(String); ok {
			return a + b, nil
		}
	case *Tuple:
		if b, ok := args[1].(*Tuple); ok {
			elems := make([]Value, 0, len(a.Elems)+len(b.Elems))
			elems = append(elems, a.Elems...)
			elems = append(elems, b.Elems...)
			return Copy(&Tuple{Elems: elems}), nil
		}
	}
	return nil, typeError("Conc", args[0], args[1])
}

func order(_ *Machine, args []Value) (Value, error) {
	t, ok := args[0].(*Tuple)
	if !ok {
		return nil, typeError("Order", args[0])
	}
	return Integer(len(t.Elems)), nil
}

func null(_ *Machine, args []Value) (Value, error) {
	t, ok := args[0].(*Tuple)
	if !ok {
		return nil, typeError("Null", args[0])
	}
	return Boolean(len(t.Elems) == 0), nil
}

func itos(_ *Machine, args []Value) (Value, error) {
	n, ok := args[0].(Integer)
	if !ok {
		return nil, typeError("ItoS", args[0])
	}
	return String(strconv.FormatInt(int64(n), 10)), nil
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

func unaryOp(kind compiler.Kind, v Value) (Value, error) {
	switch kind {
	case compiler.KindNeg:
		if n, ok := v.(Integer); ok {
			return -n, nil
		}
	case compiler.KindNot:
		if b, ok := v.(Boolean); ok {
			return !b, nil
		}
	default:
		return nil, runtimeErrorf(kind.String(), "not a unary operator")
	}
	return nil, typeError(kind.String(), v)
}

func binaryOp(kind compiler.Kind, left, right Value) (Value, error) {
	op := kind.String()
	switch kind {
	case compiler.KindAug:
		t, ok := left.(*Tuple)
		if !ok {
			return nil, typeError(op, left, right)
		}
		elems := make([]Value, len(t.Elems), len(t.Elems)+1)
		copy(elems, t.Elems)
		return &Tuple{Elems: append(elems, right)}, nil

	case compiler.KindOr, compiler.KindAnd:
		a, ok1 := left.(Boolean)
		b, ok2 := right.(Boolean)
		if !ok1 || !ok2 {
			return nil, typeError(op, left, right)
		}
		if kind == compiler.KindOr {
			return a || b, nil
		}
		return a && b, nil

	case compiler.KindEq, compiler.KindNe:
		eq, ok := equalValues(left, right)
		if !ok {
			return nil, typeError(op, left, right)
		}
		if kind == compiler.KindNe {
			eq = !eq
		}
		return Boolean(eq), nil
	}

	a, ok1 := left.(Integer)
	b, ok2 := right.(Integer)
	if !ok1 || !ok2 {
		return nil, typeError(op, left, right)
	}
	switch kind {
	case compiler.KindGr:
		return Boolean(a > b), nil
	case compiler.KindGe:
		return Boolean(a >= b), nil
	case compiler.KindLs:
		return Boolean(a < b), nil
	case compiler.KindLe:
		return Boolean(a <= b), nil
	case compiler.KindPlus:
		return a + b, nil
	case compiler.KindMinus:
		return a - b, nil
	case compiler.KindMult:
		return a * b, nil
	case compiler.KindDiv:
		if b == 0 {
			return nil, runtimeErrorf(op, "division by zero")
		}
		return a / b, nil
	case compiler.KindExp:
		if b < 0 {
			return nil, runtimeErrorf(op, "negative exponent %d", b)
		}
		return ipow(a, b), nil
	}
	return nil, runtimeErrorf(op, "not a binary operator")
}

// equalValues compares two integers, strings or truthvalues. ok is false
// for any other pairing.
func equalValues(a, b Value) (eq, ok bool) {
	switch x := a.(type) {
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y, ok
	case String:
		y, ok := b.(String)
		return ok && x == y, ok
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x == y, ok
	}
	return false, false
}

func ipow(base, exp Integer) Integer {
	result := Integer(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
