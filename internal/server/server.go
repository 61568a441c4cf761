package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kaigibot/kaigibot/internal/agent"
	"github.com/kaigibot/kaigibot/internal/chat"
	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/instrumentation"
	"github.com/kaigibot/kaigibot/internal/tools"
)

const (
	// DefaultReadHeaderTimeout is the default read header timeout for the HTTP server.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout is the default write timeout for the HTTP server.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the default idle timeout for the HTTP server.
	DefaultIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout is the default timeout for graceful server shutdown.
	DefaultShutdownTimeout = 30 * time.Second

	// handleTimeout bounds background processing of one inbound event.
	// Slack expects the HTTP response within 3 seconds, so events are
	// acknowledged immediately and handled on their own deadline.
	handleTimeout = 120 * time.Second
)

// Config holds the dependencies and settings for the HTTP server.
type Config struct {
	// Addr is the address to bind to (e.g., ":3000").
	Addr string

	// SigningSecret verifies that inbound requests come from Slack.
	SigningSecret string

	Agent      *agent.Agent
	ChatClient *chat.Client
	Presenter  *chat.Presenter
	Tokens     *google.TokenService
	Resolver   tools.ServiceResolver
	Metrics    *instrumentation.Metrics
	Logger     *slog.Logger
}

// Server is the inbound HTTP surface: Slack events and interactions plus
// the Google OAuth callback.
type Server struct {
	addr          string
	signingSecret string

	agent      *agent.Agent
	chatClient *chat.Client
	presenter  *chat.Presenter
	tokens     *google.TokenService
	resolver   tools.ServiceResolver
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	health     *HealthChecker

	httpServer *http.Server
	now        func() time.Time
}

// New creates the server. It does not start listening.
func New(cfg Config) (*Server, error) {
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.Agent == nil || cfg.ChatClient == nil || cfg.Presenter == nil {
		return nil, fmt.Errorf("agent, chat client, and presenter are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}

	return &Server{
		addr:          cfg.Addr,
		signingSecret: cfg.SigningSecret,
		agent:         cfg.Agent,
		chatClient:    cfg.ChatClient,
		presenter:     cfg.Presenter,
		tokens:        cfg.Tokens,
		resolver:      cfg.Resolver,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		health:        NewHealthChecker(),
		now:           time.Now,
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /slack/events", s.instrument("/slack/events", s.handleEvents))
	mux.Handle("POST /slack/interactive", s.instrument("/slack/interactive", s.handleInteractive))
	mux.Handle("GET /oauth/google/callback", s.instrument("/oauth/google/callback", s.handleOAuthCallback))

	s.health.RegisterHealthEndpoints(mux)

	return mux
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(path string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, recorder.status, time.Since(started))
	})
}
