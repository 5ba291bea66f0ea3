package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/provider"
	"github.com/roach88/sap/internal/registry"
	"github.com/roach88/sap/internal/runner"
)

// MaxPortAttempts is how many ports past the requested one AutoPort tries.
const MaxPortAttempts = 20

// DefaultInitialFetchTimeout bounds RequireInitialFetch when no timeout is
// given.
const DefaultInitialFetchTimeout = 30 * time.Second

// Config configures a Server.
type Config struct {
	Provider provider.Provider

	// Interval and RunImmediately configure the runner.
	Interval       time.Duration
	RunImmediately bool

	// RefreshToken, when set, must be passed as ?token= to /refresh.
	RefreshToken string

	// Registry receives the endpoint when ListenOptions.Register is set.
	Registry *registry.File

	// CycleSink and RequestSink receive runner and lazy-load outcomes.
	CycleSink   runner.CycleSink
	RequestSink lazyload.RequestSink

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// TracerProvider, if set, supplies the runner and protocol tracers.
	TracerProvider trace.TracerProvider

	// IDGenerator stamps lazy-load requests. Default: UUIDv7.
	IDGenerator lazyload.IDGenerator

	// Now defaults to time.Now.
	Now func() time.Time
}

// ListenOptions control Start.
type ListenOptions struct {
	Host string
	Port int

	// AutoPort tries up to MaxPortAttempts following ports when Port is
	// taken.
	AutoPort bool

	// Register appends localhost:<port> to the registry after binding.
	Register bool

	// RequireInitialFetch delays binding until the first cycle succeeds or
	// InitialFetchTimeout elapses.
	RequireInitialFetch bool
	InitialFetchTimeout time.Duration
}

// Server serves one provider.
type Server struct {
	info     provider.Info
	runner   *runner.Runner
	proto    *lazyload.Protocol
	logger   *slog.Logger
	token    string
	registry *registry.File
	router   *chi.Mux

	mu       sync.Mutex
	http     *http.Server
	addr     net.Addr
	serveErr chan error
	stopped  bool
}

// New builds a Server. The runner is created but not started.
func New(cfg Config) (*Server, error) {
	if cfg.Provider == nil {
		return nil, errors.New("server: provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	info := cfg.Provider.Info()

	runCfg := runner.Config{
		Interval:       cfg.Interval,
		RunImmediately: cfg.RunImmediately,
		Logger:         logger.With("component", "runner"),
		Sink:           cfg.CycleSink,
		Now:            cfg.Now,
	}
	protoOpts := []lazyload.Option{lazyload.WithLogger(logger.With("component", "lazyload"))}
	if cfg.TracerProvider != nil {
		runCfg.Tracer = cfg.TracerProvider.Tracer(runner.TracerName)
		protoOpts = append(protoOpts, lazyload.WithTracer(cfg.TracerProvider.Tracer(lazyload.TracerName)))
	}
	if cfg.RequestSink != nil {
		protoOpts = append(protoOpts, lazyload.WithSink(cfg.RequestSink))
	}
	if cfg.IDGenerator != nil {
		protoOpts = append(protoOpts, lazyload.WithIDGenerator(cfg.IDGenerator))
	}
	if cfg.Now != nil {
		protoOpts = append(protoOpts, lazyload.WithNow(cfg.Now))
	}

	proto, err := lazyload.NewProtocol(info.Scopes, cfg.Provider.Query(), protoOpts...)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		info:     info,
		runner:   runner.New(cfg.Provider.Fetch, runCfg),
		proto:    proto,
		logger:   logger,
		token:    cfg.RefreshToken,
		registry: cfg.Registry,
	}
	s.router = s.routes()

	logger.Info("provider configured",
		"name", info.Name,
		"version", info.Version,
		"lazy_types", scopeTypes(info.Scopes),
	)
	return s, nil
}

// Handler returns the HTTP handler, without h2c.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Runner returns the server's runner.
func (s *Server) Runner() *runner.Runner {
	return s.runner
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start starts the runner, optionally waits for the first snapshot, binds,
// registers and begins serving in the background. It returns the bound
// port.
//
// An initial fetch that times out is logged and serving proceeds with the
// empty snapshot.
func (s *Server) Start(ctx context.Context, opts ListenOptions) (int, error) {
	s.mu.Lock()
	if s.http != nil || s.stopped {
		s.mu.Unlock()
		return 0, errors.New("server: already started")
	}
	s.mu.Unlock()

	s.logger.Info("starting server", "host", opts.Host, "port", opts.Port, "auto_port", opts.AutoPort)
	if err := s.runner.Start(); err != nil {
		return 0, fmt.Errorf("server: %w", err)
	}

	if opts.RequireInitialFetch {
		if err := s.awaitInitialFetch(ctx, opts.InitialFetchTimeout); err != nil {
			s.runner.Stop(0)
			return 0, err
		}
	}

	ln, err := listen(opts.Host, opts.Port, opts.AutoPort)
	if err != nil {
		s.runner.Stop(0)
		return 0, fmt.Errorf("server: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	s.logger.Info("server bound", "addr", ln.Addr().String())

	if opts.Register && s.registry != nil {
		entry := net.JoinHostPort("localhost", strconv.Itoa(port))
		added, err := s.registry.Register(entry)
		if err != nil {
			s.logger.Warn("registry update failed", "entry", entry, "error", err)
		} else {
			s.logger.Info("registered endpoint", "entry", entry, "added", added, "path", s.registry.Path())
		}
	}

	srv := &http.Server{
		Handler:           h2c.NewHandler(s.router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	s.mu.Lock()
	s.http = srv
	s.addr = ln.Addr()
	s.serveErr = errCh
	s.mu.Unlock()

	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
		close(errCh)
	}()

	s.logger.Info("server started", "port", port)
	return port, nil
}

// Done delivers the serve loop's terminal error (nil after a clean Stop).
// It returns nil before Start.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}

// Stop shuts down HTTP, then stops the runner. Each step is bounded by
// timeout; zero or less waits indefinitely. Stop is idempotent.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	srv := s.http
	s.mu.Unlock()

	s.logger.Info("stopping server", "timeout", timeout)

	var errs []error
	if srv != nil {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := s.runner.Stop(timeout); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

func (s *Server) awaitInitialFetch(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultInitialFetchTimeout
	}
	s.logger.Info("waiting for initial fetch", "timeout", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.runner.Ready():
		s.logger.Info("initial fetch completed")
	case <-timer.C:
		s.logger.Warn("initial fetch timeout reached, serving empty snapshot")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// listen binds host:port, or with autoPort the first free port among
// port..port+MaxPortAttempts.
func listen(host string, port int, autoPort bool) (net.Listener, error) {
	attempts := 1
	if autoPort && port != 0 {
		attempts += MaxPortAttempts
	}
	var lastErr error
	for i := range attempts {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port+i)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func scopeTypes(scopes []lazyload.Scope) []string {
	types := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		types = append(types, sc.Type)
	}
	return types
}

// requestLogger logs each request at debug level with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
