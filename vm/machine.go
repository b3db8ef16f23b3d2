package vm

import (
	"fmt"
	"io"

	"github.com/tliron/commonlog"

	"github.com/chazu/rpal/compiler"
)

var log = commonlog.GetLogger("rpal.vm")

// ---------------------------------------------------------------------------
// CSE machine
// ---------------------------------------------------------------------------

// Options configure a Machine.
type Options struct {
	// Out receives everything Print writes. Defaults to io.Discard.
	Out io.Writer
	// MaxSteps bounds the number of control items executed. Zero means
	// no bound.
	MaxSteps int
}

// Machine evaluates one compiled program. It is single use and not safe
// for concurrent use.
type Machine struct {
	prog     *compiler.Program
	out      io.Writer
	maxSteps int

	env     *Env
	control []compiler.Instr
	stack   []Value
	steps   int
	envs    int
}

// envMarker restores the caller's environment when a closure body is done.
type envMarker struct {
	env *Env
}

func (m *envMarker) Mnemonic() string { return fmt.Sprintf("e%d", m.env.ID()) }

// NewMachine prepares prog for evaluation.
func NewMachine(prog *compiler.Program, opts Options) *Machine {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Machine{prog: prog, out: out, maxSteps: opts.MaxSteps}
}

// Run executes the program and returns its final value.
func Run(prog *compiler.Program, out io.Writer) (Value, error) {
	return NewMachine(prog, Options{Out: out}).Run()
}

// Steps returns the number of control items executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// Run executes control structure 0 in a fresh root environment until the
// control stack is empty.
func (m *Machine) Run() (result Value, err error) {
	if m.prog == nil || len(m.prog.Controls) == 0 {
		return nil, runtimeErrorf("run", "empty program")
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, runtimeErrorf("internal", "%v", r)
		}
	}()

	m.env = m.newEnv(nil)
	m.control = append(m.control, m.prog.Root().Body...)

	for len(m.control) > 0 {
		if m.maxSteps > 0 && m.steps >= m.maxSteps {
			return nil, runtimeErrorf("run", "step limit of %d exceeded", m.maxSteps)
		}
		m.steps++
		in := m.control[len(m.control)-1]
		m.control = m.control[:len(m.control)-1]
		if err := m.step(in); err != nil {
			log.Debugf("stopped after %d steps: %s", m.steps, err)
			return nil, err
		}
	}

	if len(m.stack) != 1 {
		return nil, runtimeErrorf("run", "%d values left on the stack", len(m.stack))
	}
	log.Debugf("finished in %d steps, %d environments", m.steps, m.envs)
	return m.stack[0], nil
}

func (m *Machine) newEnv(parent *Env) *Env {
	e := NewEnv(m.envs, parent)
	m.envs++
	return e
}

func (m *Machine) push(v Value) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop(op string) Value {
	if len(m.stack) == 0 {
		panic(fmt.Sprintf("%s: value stack underflow", op))
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// pushBody schedules body so that its last instruction runs first.
func (m *Machine) pushBody(body []compiler.Instr) {
	m.control = append(m.control, body...)
}

func (m *Machine) step(in compiler.Instr) error {
	switch in := in.(type) {
	case *compiler.Name:
		if v, ok := m.env.Lookup(in.Ident); ok {
			m.push(v)
			return nil
		}
		if _, ok := builtins[in.Ident]; ok {
			m.push(&Builtin{Name: in.Ident})
			return nil
		}
		return runtimeErrorf("lookup", "unbound identifier %q", in.Ident)

	case *compiler.Const:
		m.push(constValue(in))

	case *compiler.Lambda:
		m.push(&Closure{Control: in.Control, Env: m.env})

	case *compiler.FixedPoint:
		m.push(YStar{})

	case *compiler.Branch:
		v := m.pop("beta")
		b, ok := v.(Boolean)
		if !ok {
			return runtimeErrorf("->", "condition is %s, not truthvalue", v.TypeName())
		}
		if b {
			m.pushBody(in.Then)
		} else {
			m.pushBody(in.Else)
		}

	case *compiler.Tuple:
		elems := make([]Value, in.Arity)
		for i := range elems {
			elems[i] = m.pop("tau")
		}
		m.push(&Tuple{Elems: elems})

	case *compiler.Operator:
		if in.Kind.IsUnaryOp() {
			v, err := unaryOp(in.Kind, m.pop(in.Kind.String()))
			if err != nil {
				return err
			}
			m.push(v)
			return nil
		}
		left := m.pop(in.Kind.String())
		right := m.pop(in.Kind.String())
		v, err := binaryOp(in.Kind, left, right)
		if err != nil {
			return err
		}
		m.push(v)

	case *compiler.Apply:
		rator := m.pop("gamma")
		rand := m.pop("gamma")
		return m.apply(rator, rand)

	case *envMarker:
		m.env = in.env

	default:
		return runtimeErrorf("step", "unknown control item %T", in)
	}
	return nil
}

func constValue(c *compiler.Const) Value {
	switch c.Kind {
	case compiler.KindInteger:
		return Integer(c.Int)
	case compiler.KindString:
		return String(Unescape(c.Text))
	case compiler.KindTrue:
		return Boolean(true)
	case compiler.KindFalse:
		return Boolean(false)
	case compiler.KindNil:
		return Nil()
	}
	return Dummy{}
}

// apply applies rator to rand.
func (m *Machine) apply(rator, rand Value) error {
	switch f := rator.(type) {
	case *Closure:
		env := m.newEnv(f.Env)
		if err := bindParams(env, f.Control, rand); err != nil {
			return err
		}
		m.control = append(m.control, &envMarker{env: m.env})
		m.pushBody(f.Control.Body)
		m.env = env

	case YStar:
		c, ok := rand.(*Closure)
		if !ok {
			return runtimeErrorf("Y*", "argument is %s, not a lambda closure", rand.TypeName())
		}
		m.push(&Eta{Closure: c})

	case *Eta:
		if f.Index > 0 {
			// Unfold to a tuple, select the component, apply it to rand.
			m.control = append(m.control, &compiler.Apply{}, &compiler.Apply{}, &compiler.Apply{})
			m.push(rand)
			m.push(Integer(f.Index))
			m.push(&Eta{Closure: Copy(f.Closure).(*Closure)})
			m.push(Copy(f.Closure))
			return nil
		}
		// Apply the closure to the eta, then the result to rand.
		m.control = append(m.control, &compiler.Apply{}, &compiler.Apply{})
		m.push(rand)
		m.push(Copy(f))
		m.push(Copy(f.Closure))

	case *Tuple:
		i, ok := rand.(Integer)
		if !ok {
			return runtimeErrorf("tuple selection", "index is %s, not integer", rand.TypeName())
		}
		if i < 1 || int(i) > len(f.Elems) {
			return runtimeErrorf("tuple selection", "index %d out of range for tuple of %d", i, len(f.Elems))
		}
		m.push(Copy(f.Elems[i-1]))

	case *Builtin:
		v, err := m.callBuiltin(f, rand)
		if err != nil {
			return err
		}
		m.push(v)

	default:
		return runtimeErrorf("gamma", "cannot apply %s %s", rator.TypeName(), rator)
	}
	return nil
}

// bindParams binds a closure's parameters in env. A tuple pattern takes a
// tuple argument of matching length apart positionally.
func bindParams(env *Env, c *compiler.Control, arg Value) error {
	switch {
	case len(c.Params) == 0:
		return nil
	case !c.Tuple:
		env.Bind(c.Params[0], arg)
		return nil
	}
	if eta, ok := arg.(*Eta); ok && eta.Index == 0 {
		// Each name selects its component once the eta is applied.
		for i, name := range c.Params {
			env.Bind(name, &Eta{Closure: eta.Closure, Index: i + 1})
		}
		return nil
	}
	t, ok := arg.(*Tuple)
	if !ok {
		return runtimeErrorf("gamma", "cannot bind %s to (%s)", arg.TypeName(), boundVars(c))
	}
	if len(t.Elems) != len(c.Params) {
		return runtimeErrorf("gamma", "cannot bind tuple of %d to %d names (%s)", len(t.Elems), len(c.Params), boundVars(c))
	}
	for i, name := range c.Params {
		env.Bind(name, t.Elems[i])
	}
	return nil
}
