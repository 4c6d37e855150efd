// Package server exposes the turn pipeline and conversation storage over
// HTTP. Answers stream as server-sent events, one JSON object per data line.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/zero-day-ai/cortex/internal/conversation"
	"github.com/zero-day-ai/cortex/internal/turn"
	"github.com/zero-day-ai/cortex/internal/types"
)

// Config holds the listener settings.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gte=0"`
	HealthTimeout   time.Duration `mapstructure:"health_timeout" yaml:"health_timeout" validate:"gte=0"`
	// AllowedOrigins enables CORS for browser front ends. "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
}

// DefaultConfig returns the server settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		HealthTimeout:   5 * time.Second,
	}
}

// Asker runs a turn and streams its events.
type Asker interface {
	Handle(ctx context.Context, req turn.Request) <-chan turn.Event
}

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) types.HealthStatus

// Server routes HTTP requests to the turn handler and the conversation store.
type Server struct {
	cfg    Config
	asker  Asker
	store  conversation.Store
	checks map[string]HealthCheck
	logger *slog.Logger
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// New builds a Server that answers questions through asker and serves
// conversation history from store.
func New(cfg Config, asker Asker, store conversation.Store, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		asker:  asker,
		store:  store,
		checks: make(map[string]HealthCheck),
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
	s.mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("POST /api/conversations/{id}", s.handleSaveConversation)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.cors(s.mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// In-flight turns see their request context cancelled and are not persisted.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: s.cfg.ReadTimeout,
		IdleTimeout: s.cfg.IdleTimeout,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
