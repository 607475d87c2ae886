// Package server is the HTTP host shell: it serves the live page, one-shot
// graphs, the streamed load protocol and node selection.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/matsen/cloudscope/internal/topology"
	"github.com/matsen/cloudscope/internal/viewer"
	"github.com/matsen/cloudscope/internal/viz"
	"golang.org/x/sync/errgroup"
)

// Options configures a Server.
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration

	// MaxNodes rejects larger requests before any work; 0 means
	// topology.DefaultMaxNodes.
	MaxNodes int

	// Generation defaults for requests that omit parameters.
	Nodes     int
	ChunkSize int
	Seed      *uint64 // nil means unseeded

	// MaxChunksPerSecond paces streamed chunks; 0 means unlimited.
	MaxChunksPerSecond float64

	Live   viz.LiveOptions
	Logger *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Addr:            "127.0.0.1:8080",
		ShutdownTimeout: 5 * time.Second,
		MaxNodes:        topology.DefaultMaxNodes,
		Nodes:           topology.DefaultNodeCount,
		ChunkSize:       topology.DefaultChunkSize,
		Live:            viz.DefaultLiveOptions(),
	}
}

// Server serves the cloudscope HTTP API.
type Server struct {
	opts      Options
	logger    *slog.Logger
	router    chi.Router
	selection viewer.Selection
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultOptions().ShutdownTimeout
	}
	if opts.MaxNodes < 1 {
		opts.MaxNodes = topology.DefaultMaxNodes
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = topology.DefaultChunkSize
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/stream", s.handleStream)
		r.Post("/select", s.handleSelect)
		r.Get("/selection", s.handleSelection)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully
// within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ctx := ctxlog.WithLogger(r.Context(), logger)

		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logger.InfoContext(ctx, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
