package vm

import (
	"github.com/chazu/rpal/compiler"
)

// Eval compiles src and runs it with opts.
func Eval(src string, opts Options) (Value, error) {
	prog, err := compiler.Compile(src)
	if err != nil {
		return nil, err
	}
	return NewMachine(prog, opts).Run()
}
