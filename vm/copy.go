package vm

// Copy returns a value that shares no mutable structure with v. Tuples,
// etas and partially applied built-ins are copied element by element.
// A closure copy shares its control structure and captured environment,
// which are never mutated once built.
func Copy(v Value) Value {
	switch v := v.(type) {
	case *Tuple:
		if len(v.Elems) == 0 {
			return &Tuple{}
		}
		elems := make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = Copy(e)
		}
		return &Tuple{Elems: elems}
	case *Closure:
		return &Closure{Control: v.Control, Env: v.Env}
	case *Eta:
		return &Eta{Closure: Copy(v.Closure).(*Closure), Index: v.Index}
	case *Builtin:
		b := &Builtin{Name: v.Name}
		if len(v.Args) > 0 {
			b.Args = make([]Value, len(v.Args))
			for i, a := range v.Args {
				b.Args[i] = Copy(a)
			}
		}
		return b
	}
	// Integer, String, Boolean, Dummy and YStar are immutable.
	return v
}
