// Package server exposes generated endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/getmockd/collmock/pkg/dataset"
	"github.com/getmockd/collmock/pkg/httputil"
	"github.com/getmockd/collmock/pkg/logging"
	"github.com/getmockd/collmock/pkg/metrics"
	"github.com/getmockd/collmock/pkg/resolver"
	"github.com/getmockd/collmock/pkg/routetable"
)

// endpoints maps each served route to the collection owning it.
type endpoints struct {
	owners      map[routetable.Route]string
	collections int
}

// Server routes requests under the mount prefix to generated endpoints.
type Server struct {
	Options Options

	resolver *resolver.Resolver
	metrics  *metrics.Metrics
	log      *slog.Logger
	state    func() string

	current atomic.Pointer[endpoints]
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithState sets the function reporting the rebuild state on /healthz.
func WithState(fn func() string) Option {
	return func(s *Server) { s.state = fn }
}

// New returns a server answering from res. It serves nothing until Update
// is called.
func New(opts Options, res *resolver.Resolver, options ...Option) *Server {
	s := &Server{Options: opts, resolver: res}
	for _, o := range options {
		o(s)
	}
	s.log = logging.OrNop(s.log)
	s.current.Store(&endpoints{owners: map[routetable.Route]string{}})
	s.router = s.routes()
	return s
}

// Update replaces the served endpoints with those of snap.
func (s *Server) Update(snap *dataset.Snapshot) {
	next := &endpoints{owners: make(map[routetable.Route]string, len(snap.Stubs))}
	for _, stub := range snap.Stubs {
		next.owners[stub.Route] = stub.Collection
	}
	next.collections = len(snap.Tables)
	s.current.Store(next)
	s.log.Debug("endpoints updated", "endpoints", len(next.owners), "pass", snap.PassID)
}

// Endpoints returns the number of routes currently served.
func (s *Server) Endpoints() int {
	return len(s.current.Load().owners)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	mount := s.resolver.Mount()
	if mount == "" {
		r.Handle("/*", http.HandlerFunc(s.serveMock))
	} else {
		r.Handle(mount, http.HandlerFunc(s.serveMock))
		r.Handle(mount+"/*", http.HandlerFunc(s.serveMock))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) serveMock(w http.ResponseWriter, req *http.Request) {
	route := s.resolver.RouteOf(req.URL.Path)
	owner, ok := s.current.Load().owners[route]
	if !ok {
		s.resolver.NotFound(w, req)
		return
	}
	s.resolver.ServeCollection(w, req, owner)
}

type health struct {
	Status      string `json:"status"`
	State       string `json:"state"`
	Collections int    `json:"collections"`
	Endpoints   int    `json:"endpoints"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	state := "idle"
	if s.state != nil {
		state = s.state()
	}
	cur := s.current.Load()
	httputil.WriteOK(w, health{
		Status:      "ok",
		State:       state,
		Collections: cur.collections,
		Endpoints:   len(cur.owners),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		s.log.Debug("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(req.Context()))
	})
}

// HTTPServer returns an http.Server configured from Options.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.Options.ListenAddress,
		ReadTimeout:       s.Options.ReadTimeout,
		ReadHeaderTimeout: s.Options.ReadHeaderTimeout,
		WriteTimeout:      s.Options.WriteTimeout,
		Handler:           s.router,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Options.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Options.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := s.HTTPServer()
	s.log.Info("mock server listening", "addr", ln.Addr().String(), "mount", s.resolver.Mount())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.Options.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("mock server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
