package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/korima-app/korima/internal/briefing"
	"github.com/korima-app/korima/internal/credential"
	"github.com/korima-app/korima/internal/google"
	"github.com/korima-app/korima/internal/instrumentation"
)

const (
	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout leaves room for the Calendar and token endpoint
	// round trips behind a single request.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the keep-alive timeout.
	DefaultIdleTimeout = 120 * time.Second

	// MCPEndpointPath is where the MCP streamable HTTP handler is mounted.
	MCPEndpointPath = "/mcp"
)

// AuthFlow runs the Google authorization code flow.
type AuthFlow interface {
	AuthorizationURL() (string, error)
	Exchange(ctx context.Context, cb google.Callback) (*credential.Credential, error)
}

// Briefer produces the daily briefing.
type Briefer interface {
	Daily(ctx context.Context) (*briefing.Briefing, error)
}

// Config configures a Server.
type Config struct {
	// FrontendURL receives the browser after a successful login. Its origin is
	// the only one allowed by CORS.
	FrontendURL string

	Auth      AuthFlow
	Briefings Briefer
	Store     credential.Store

	// Account defaults to credential.DefaultAccount.
	Account string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	Debug   bool
}

// Server is the public HTTP API.
type Server struct {
	auth        AuthFlow
	briefings   Briefer
	store       credential.Store
	account     string
	frontendURL string
	health      *HealthChecker
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	handler     http.Handler
	httpServer  *http.Server
}

// New creates a Server from cfg.
func New(cfg Config) (*Server, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth flow is required")
	}
	if cfg.Briefings == nil {
		return nil, fmt.Errorf("briefing service is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	origin, err := originOf(cfg.FrontendURL)
	if err != nil {
		return nil, err
	}
	if cfg.Account == "" {
		cfg.Account = credential.DefaultAccount
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		auth:        cfg.Auth,
		briefings:   cfg.Briefings,
		store:       cfg.Store,
		account:     cfg.Account,
		frontendURL: cfg.FrontendURL,
		health:      NewHealthChecker(cfg.Store, cfg.Account),
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/auth/google", s.handleAuthURL)
	mux.HandleFunc("GET /api/auth/google/callback", s.handleCallback)
	mux.HandleFunc("GET /api/daily-briefing", s.handleDailyBriefing)
	s.health.RegisterHealthEndpoints(mux)
	if cfg.MCPHandler != nil {
		mux.Handle(MCPEndpointPath, cfg.MCPHandler)
	}

	// Outermost first: recovery, tracing, access log, CORS, routes.
	var h http.Handler = newCORS(origin, cfg.Debug, s.logger).Handler(mux)
	h = accessLogMiddleware(s.logger, s.metrics, h)
	h = tracingMiddleware(h)
	h = recoverMiddleware(s.logger, h)
	s.handler = h

	s.httpServer = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the server's health checker.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Start listens on addr and serves until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains in-flight requests. It is
// safe to call before Start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
