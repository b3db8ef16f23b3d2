package vm

// Env is one scope frame. Lookups that miss delegate to the parent.
type Env struct {
	id     int
	parent *Env
	vars   map[string]Value
}

// NewEnv creates an empty frame under parent, which may be nil for the
// root environment.
func NewEnv(id int, parent *Env) *Env {
	return &Env{id: id, parent: parent, vars: make(map[string]Value)}
}

// ID returns the frame's creation number; the root is 0.
func (e *Env) ID() int {
	return e.id
}

// Parent returns the enclosing frame, or nil for the root.
func (e *Env) Parent() *Env {
	return e.parent
}

// Bind stores a copy of v under name in this frame.
func (e *Env) Bind(name string, v Value) {
	e.vars[name] = Copy(v)
}

// Lookup returns a copy of the value bound to name in this frame or the
// nearest ancestor that binds it.
func (e *Env) Lookup(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return Copy(v), true
		}
	}
	return nil, false
}
