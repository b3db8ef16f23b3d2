package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/rpal/compiler"
	"github.com/chazu/rpal/manifest"
	"github.com/chazu/rpal/server"
	"github.com/chazu/rpal/store"
)

var log = commonlog.GetLogger("rpal.cli")

type options struct {
	ast, st, cs, noout bool
	interactive        bool
	serve, lsp         bool
	port, grpcPort     int
	config, cache      string
	emitAST, loadAST   string
	maxSteps           int
	verbose            bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	var o options
	fs := flag.NewFlagSet("rpal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&o.ast, "ast", false, "Print the abstract syntax tree before running")
	fs.BoolVar(&o.st, "st", false, "Print the standardized tree before running")
	fs.BoolVar(&o.cs, "cs", false, "Print the control structures before running")
	fs.BoolVar(&o.noout, "noout", false, "Do not evaluate the program")
	fs.BoolVar(&o.interactive, "i", false, "Start interactive REPL")
	fs.BoolVar(&o.serve, "serve", false, "Start evaluation service (Connect HTTP/JSON + gRPC)")
	fs.IntVar(&o.port, "port", 0, "Connect port for -serve (default from rpal.toml)")
	fs.IntVar(&o.grpcPort, "grpc-port", 0, "gRPC port for -serve (default from rpal.toml)")
	fs.BoolVar(&o.lsp, "lsp", false, "Start language server on stdio")
	fs.StringVar(&o.config, "config", "", "Path to rpal.toml (default: nearest one above the working directory)")
	fs.StringVar(&o.cache, "cache", "", "Result cache database; enables caching")
	fs.StringVar(&o.emitAST, "emit-ast", "", "Write the syntax tree as CBOR to `file`")
	fs.StringVar(&o.loadAST, "load-ast", "", "Run a CBOR syntax tree from `file` instead of source")
	fs.IntVar(&o.maxSteps, "max-steps", -1, "Step budget per run, 0 for none (default from rpal.toml)")
	fs.BoolVar(&o.verbose, "v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rpal [options] [file]\n\n")
		fmt.Fprintf(stderr, "Runs an RPAL program and prints its output.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  rpal prog.rpal            # Run a program\n")
		fmt.Fprintf(stderr, "  rpal -ast -noout prog.rpal  # Print its syntax tree only\n")
		fmt.Fprintf(stderr, "  rpal -i                   # Start REPL\n")
		fmt.Fprintf(stderr, "  rpal -serve -port 8080    # Serve evaluations on :8080\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return &o, fs.Args(), nil
}

// run is the whole CLI; it returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	configureLogging(cfg, o.verbose)

	switch {
	case o.lsp:
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return 1
		}
		return 0

	case o.serve:
		if err := serve(cfg, o); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0

	case o.interactive || (len(paths) == 0 && o.loadAST == ""):
		if o.interactive || isTerminal(stdin) {
			return runREPL(cfg, stdout, stderr)
		}
		// Program on standard input.
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return runProgram(cfg, o, string(data), nil, stdout, stderr)
	}

	if o.loadAST != "" {
		data, err := os.ReadFile(o.loadAST)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		root, err := compiler.DecodeTree(data)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return runProgram(cfg, o, "", root, stdout, stderr)
	}

	if len(paths) > 1 {
		fmt.Fprintf(stderr, "Error: expected one program, got %d\n", len(paths))
		return 2
	}
	src, err := os.ReadFile(paths[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return runProgram(cfg, o, string(src), nil, stdout, stderr)
}

// loadConfig reads -config, or the nearest rpal.toml, and applies the
// flags that override it.
func loadConfig(o *options) (*manifest.Manifest, error) {
	var (
		cfg *manifest.Manifest
		err error
	)
	if o.config != "" {
		var data []byte
		data, err = os.ReadFile(o.config)
		if err != nil {
			return nil, err
		}
		cfg, err = manifest.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.config, err)
		}
		cfg.Dir, err = filepath.Abs(filepath.Dir(o.config))
	} else {
		cfg, err = manifest.LoadOrDefault(".")
	}
	if err != nil {
		return nil, err
	}

	if o.cache != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Path = o.cache
	}
	if o.maxSteps >= 0 {
		cfg.Run.MaxSteps = o.maxSteps
	}
	if o.port > 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", o.port)
	}
	if o.grpcPort > 0 {
		cfg.Server.GRPCAddr = fmt.Sprintf(":%d", o.grpcPort)
	}
	return cfg, nil
}

func configureLogging(cfg *manifest.Manifest, verbose bool) {
	verbosity := cfg.Verbosity()
	if verbose {
		verbosity = 2
	}
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(verbosity, path)
}

// openCache opens the configured cache, or returns nil when caching is off.
func openCache(cfg *manifest.Manifest) (*store.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return store.Open(cfg.CachePath())
}

// runProgram prints whatever trees were asked for and then evaluates the
// program, writing its output followed by a newline. Exactly one of src
// and root is used.
func runProgram(cfg *manifest.Manifest, o *options, src string, root *compiler.Node, stdout, stderr io.Writer) int {
	if root == nil {
		var err error
		root, err = compiler.Parse(src)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
	}

	if o.emitAST != "" {
		data, err := compiler.EncodeTree(root)
		if err == nil {
			err = os.WriteFile(o.emitAST, data, 0644)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		log.Infof("wrote syntax tree to %s", o.emitAST)
	}

	if o.ast {
		compiler.Print(stdout, root)
	}
	if o.st || o.cs {
		prog, err := compiler.CompileTree(root.Clone())
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		if o.st {
			compiler.Print(stdout, prog.Tree)
		}
		if o.cs {
			prog.Dump(stdout)
		}
	}
	if o.noout {
		return 0
	}

	cache, err := openCache(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if cache != nil {
		defer cache.Close()
	}

	r := &server.Runner{MaxSteps: cfg.Run.MaxSteps, Cache: cache}
	res, err := r.EvaluateTree(root)
	if err != nil {
		if res != nil {
			io.WriteString(stdout, res.Output)
		}
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, res.Output)
	if res.Cached {
		log.Debugf("answered from cache %s", cache.Path())
	}
	return 0
}

func serve(cfg *manifest.Manifest, o *options) error {
	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	srv := server.New(server.WithMaxSteps(cfg.Run.MaxSteps), server.WithCache(cache))
	defer srv.Stop()

	errc := make(chan error, 2)
	go func() { errc <- srv.ListenAndServeGRPC(cfg.Server.GRPCAddr) }()
	go func() { errc <- srv.ListenAndServe(cfg.Server.Addr) }()
	return <-errc
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
