package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	"github.com/chazu/rpal/compiler"
	"github.com/chazu/rpal/manifest"
	"github.com/chazu/rpal/server"
	"github.com/chazu/rpal/vm"
)

const (
	historyFile = ".rpal_history"
	promptMain  = "rpal> "
	promptCont  = "  ... "
)

// replState holds the REPL toggles set with meta-commands.
type replState struct {
	ast, st, cs bool
}

func runREPL(cfg *manifest.Manifest, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "RPAL REPL (type ':quit' to exit, ':help' for commands)")
	fmt.Fprintln(stdout)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completeWord)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	cache, err := openCache(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: cache disabled: %v\n", err)
	}
	if cache != nil {
		defer cache.Close()
	}
	runner := &server.Runner{MaxSteps: cfg.Run.MaxSteps, Cache: cache}

	var state replState
	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(stdout)
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := handleREPLCommand(&state, trimmed, stdout); quit {
				return 0
			}
			continue
		}

		evalAndPrint(runner, &state, code, stdout, stderr)
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}
	return 0
}

// readByParseProbe keeps reading lines while the input so far only fails
// to parse because it ends early.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := compiler.Parse(src); compiler.IsIncomplete(perr) && strings.TrimSpace(line) != "" {
			continue
		}
		return src, true
	}
}

// handleREPLCommand handles REPL meta-commands. It reports whether the
// REPL should exit.
func handleREPLCommand(state *replState, cmd string, out io.Writer) bool {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?     Show this help")
		fmt.Fprintln(out, "  :ast              Toggle printing the syntax tree")
		fmt.Fprintln(out, "  :st               Toggle printing the standardized tree")
		fmt.Fprintln(out, "  :cs               Toggle printing the control structures")
		fmt.Fprintln(out, "  :builtins         List built-in functions")
		fmt.Fprintln(out, "  :quit, :q         Exit REPL")
		fmt.Fprintln(out, "An empty line ends an incomplete program.")
	case ":ast":
		state.ast = !state.ast
		fmt.Fprintf(out, "ast: %v\n", state.ast)
	case ":st":
		state.st = !state.st
		fmt.Fprintf(out, "st: %v\n", state.st)
	case ":cs":
		state.cs = !state.cs
		fmt.Fprintf(out, "cs: %v\n", state.cs)
	case ":builtins":
		for _, name := range vm.BuiltinNames() {
			doc, _ := vm.BuiltinDoc(name)
			fmt.Fprintf(out, "  %-13s %s\n", name, doc)
		}
	case ":quit", ":q":
		return true
	default:
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return false
}

// evalAndPrint runs one program and shows its output and final value.
func evalAndPrint(r *server.Runner, state *replState, src string, stdout, stderr io.Writer) {
	root, err := compiler.Parse(src)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return
	}
	if state.ast {
		compiler.Print(stdout, root)
	}
	if state.st || state.cs {
		prog, err := compiler.CompileTree(root.Clone())
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return
		}
		if state.st {
			compiler.Print(stdout, prog.Tree)
		}
		if state.cs {
			prog.Dump(stdout)
		}
	}

	res, err := r.EvaluateTree(root)
	if res != nil && res.Output != "" {
		fmt.Fprintln(stdout, res.Output)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return
	}
	fmt.Fprintf(stdout, "=> %s\n", res.Value)
}

// completeWord offers built-in names and reserved words for the last word
// on the line.
func completeWord(line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) + 1
	prefix := line[start:]
	if prefix == "" {
		return nil
	}

	var out []string
	for _, name := range vm.BuiltinNames() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, line[:start]+name)
		}
	}
	for _, kw := range compiler.ReservedWords() {
		if strings.HasPrefix(kw, prefix) {
			out = append(out, line[:start]+kw)
		}
	}
	sort.Strings(out)
	return out
}
