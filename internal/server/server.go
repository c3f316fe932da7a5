// Package server exposes the agent over HTTP: task submission, sandboxed
// file reads, and stored run inspection.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dataworks/internal/logging"
	"dataworks/internal/store"
	"dataworks/internal/tools/fileio"
	"dataworks/internal/trace"
)

// Runner executes one task to completion.
type Runner interface {
	Run(ctx context.Context, task trace.Task) *trace.RunResult
}

// Server holds the HTTP surface and its collaborators.
type Server struct {
	addr    string
	runner  Runner
	sandbox *fileio.Sandbox
	runs    *store.RunStore
	mux     *http.ServeMux
}

// New wires the routes. The run store may be nil; run persistence and
// the /runs endpoints are then disabled.
func New(addr string, runner Runner, sandbox *fileio.Sandbox, runs *store.RunStore) *Server {
	s := &Server{
		addr:    addr,
		runner:  runner,
		sandbox: sandbox,
		runs:    runs,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /run", s.handleRun)
	s.mux.HandleFunc("POST /run", s.handleRun)
	s.mux.HandleFunc("GET /read", s.handleRead)
	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve runs the HTTP server until ctx is canceled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Server("listening on %s", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logging.Server("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
