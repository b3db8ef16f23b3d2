package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"google.golang.org/grpc"

	"github.com/chazu/rpal/store"
)

// RpalServer hosts the evaluation service. It serves Connect (HTTP/JSON
// and binary protobuf) on one listener and native gRPC on another.
type RpalServer struct {
	worker *Worker
	eval   *EvalService
	mux    *http.ServeMux
	grpc   *grpc.Server

	mu   sync.Mutex
	http *http.Server
}

// ServerOption configures an RpalServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxSteps int
	cache    *store.Cache
}

// WithMaxSteps bounds every evaluation to n machine steps.
func WithMaxSteps(n int) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithCache answers repeated programs from c.
func WithCache(c *store.Cache) ServerOption {
	return func(cfg *serverConfig) { cfg.cache = c }
}

// New creates an RpalServer.
func New(opts ...ServerOption) *RpalServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewWorker(&Runner{MaxSteps: cfg.maxSteps, Cache: cfg.cache})
	s := &RpalServer{
		worker: worker,
		eval:   NewEvalService(worker),
		mux:    http.NewServeMux(),
		grpc:   grpc.NewServer(),
	}

	for path, handler := range s.eval.Handlers() {
		s.mux.Handle(path, handler)
	}
	s.eval.RegisterGRPC(s.grpc)

	return s
}

// Handler returns the Connect HTTP handler.
func (s *RpalServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the Connect server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *RpalServer) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	fmt.Printf("RPAL evaluation service listening on %s\n", addr)
	fmt.Printf("  Connect (HTTP/JSON): http://%s%s\n", addr, EvaluateProcedure)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServeGRPC starts the gRPC server on the given address.
func (s *RpalServer) ListenAndServeGRPC(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	fmt.Printf("  gRPC (binary):       grpc://%s\n", lis.Addr())
	return s.ServeGRPC(lis)
}

// ServeGRPC serves gRPC on lis until Stop is called.
func (s *RpalServer) ServeGRPC(lis net.Listener) error {
	log.Infof("gRPC listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down both listeners and the worker.
func (s *RpalServer) Stop() {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Warningf("http shutdown: %s", err)
		}
	}
	s.grpc.Stop()
	s.worker.Stop()
}
