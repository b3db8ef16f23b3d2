package server

import (
	"errors"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/rpal/compiler"
	"github.com/chazu/rpal/store"
	"github.com/chazu/rpal/vm"
)

var log = commonlog.GetLogger("rpal.server")

// Runner compiles and evaluates programs, consulting a result cache when
// one is configured. It is not safe for concurrent use; Worker owns it.
type Runner struct {
	// MaxSteps bounds each run. Zero means no bound.
	MaxSteps int
	// Cache, when set, answers repeated programs without running them. An
	// entry that took more than MaxSteps is ignored, so the program runs
	// and fails against the budget as it would uncached.
	Cache *store.Cache
}

// Result is the outcome of one run.
type Result struct {
	Output string // everything the program printed
	Value  string // the final value as Print would render it
	Steps  int
	Cached bool
}

// Evaluate parses and runs src.
func (r *Runner) Evaluate(src string) (*Result, error) {
	root, err := compiler.Parse(src)
	if err != nil {
		return nil, err
	}
	return r.EvaluateTree(root)
}

// EvaluateTree runs a raw tree. The tree is standardized in place. When
// evaluation fails at run time the returned Result still carries the
// output printed before the failure.
func (r *Runner) EvaluateTree(root *compiler.Node) (*Result, error) {
	var key string
	if r.Cache != nil {
		k, err := store.Key(root)
		if err != nil {
			return nil, err
		}
		key = k
		e, err := r.Cache.Get(key)
		switch {
		case err == nil && (r.MaxSteps <= 0 || e.Steps <= r.MaxSteps):
			return &Result{Output: e.Output, Value: e.Result, Steps: e.Steps, Cached: true}, nil
		case err == nil:
			log.Debugf("cached run took %d steps, over the limit of %d", e.Steps, r.MaxSteps)
		case !errors.Is(err, store.ErrNotFound):
			log.Warningf("cache lookup failed: %s", err)
		}
	}

	prog, err := compiler.CompileTree(root)
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	m := vm.NewMachine(prog, vm.Options{Out: &out, MaxSteps: r.MaxSteps})
	v, err := m.Run()
	res := &Result{Output: out.String(), Steps: m.Steps()}
	if err != nil {
		return res, err
	}
	res.Value = v.String()

	if r.Cache != nil {
		entry := store.Entry{Output: res.Output, Result: res.Value, Steps: res.Steps}
		if err := r.Cache.Put(key, entry); err != nil {
			log.Warningf("cache store failed: %s", err)
		}
	}
	return res, nil
}

// ErrorKind names the stage that produced err: "syntax", "standardize",
// "build", "runtime" or "internal".
func ErrorKind(err error) string {
	var (
		se *compiler.SyntaxError
		st *compiler.StandardizeError
		be *compiler.BuildError
		re *vm.RuntimeError
	)
	switch {
	case errors.As(err, &se):
		return "syntax"
	case errors.As(err, &st):
		return "standardize"
	case errors.As(err, &be):
		return "build"
	case errors.As(err, &re):
		return "runtime"
	}
	return "internal"
}
