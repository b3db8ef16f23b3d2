package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/rpal/compiler"
)

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

// Value is a runtime value. The set of implementations is closed: Integer,
// String, Boolean, Dummy, *Tuple, *Closure, *Eta, *Builtin and YStar.
type Value interface {
	// String renders the value the way Print writes it.
	String() string
	// TypeName names the value's type in diagnostics.
	TypeName() string
	value()
}

// Integer is a signed 64-bit integer.
type Integer int64

// String is text with escape sequences already expanded.
type String string

// Boolean is a truth value.
type Boolean bool

// Dummy is the value of dummy and the result of Print.
type Dummy struct{}

// YStar is the fixed-point combinator.
type YStar struct{}

// Tuple is an ordered sequence of values. The empty tuple is nil.
type Tuple struct {
	Elems []Value
}

// Closure is a control structure paired with the environment it was
// created in.
type Closure struct {
	Control *compiler.Control
	Env     *Env
}

// Eta is a closure produced by Y*. Applying it applies the closure to a
// copy of the eta itself, then applies the result to the argument.
//
// A non-zero Index selects one component of a recursive tuple: the
// unfolded closure must yield a tuple, and element Index of that tuple is
// applied to the argument. Selectors arise when a tuple pattern binds an
// eta, as with rec over simultaneous definitions.
type Eta struct {
	Closure *Closure
	Index   int
}

// Builtin is a named primitive function, possibly partially applied.
type Builtin struct {
	Name string
	Args []Value
}

func (Integer) value() {}
func (String) value() {}
func (Boolean) value() {}
func (Dummy) value() {}
func (YStar) value() {}
func (*Tuple) value() {}
func (*Closure) value() {}
func (*Eta) value() {}
func (*Builtin) value() {}

func (v Integer) String() string { return strconv.FormatInt(int64(v), 10) }
func (v String) String() string { return string(v) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }
func (Dummy) String() string { return "dummy" }
func (YStar) String() string { return "<Y*>" }

func (t *Tuple) String() string {
	if len(t.Elems) == 0 {
		return "nil"
	}
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c *Closure) String() string {
	return "[lambda closure: " + boundVars(c.Control) + ": " + strconv.Itoa(c.Control.Index) + "]"
}

func (e *Eta) String() string {
	return "[eta closure: " + boundVars(e.Closure.Control) + ": " + strconv.Itoa(e.Closure.Control.Index) + "]"
}

func (b *Builtin) String() string {
	return "[builtin: " + b.Name + "]"
}

func boundVars(c *compiler.Control) string {
	if len(c.Params) == 0 {
		return "()"
	}
	return strings.Join(c.Params, ", ")
}

func (Integer) TypeName() string { return "integer" }
func (String) TypeName() string { return "string" }
func (Boolean) TypeName() string { return "truthvalue" }
func (Dummy) TypeName() string { return "dummy" }
func (YStar) TypeName() string { return "Y*" }
func (*Tuple) TypeName() string { return "tuple" }
func (*Closure) TypeName() string { return "function" }
func (*Eta) TypeName() string { return "function" }
func (*Builtin) TypeName() string { return "function" }

// Nil returns a fresh empty tuple.
func Nil() *Tuple {
	return &Tuple{}
}

// NewTuple builds a tuple from its elements in order.
func NewTuple(elems ...Value) *Tuple {
	return &Tuple{Elems: elems}
}

// Unescape expands the escape sequences a string literal may carry:
// \n, \t, \\ and \'. Unknown escapes are kept as written.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '\\':
			sb.WriteByte('\\')
		case '\'':
			sb.WriteByte('\'')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
