// Package httpapi serves the agent's admin API: login, session status,
// the subscription table, and publishing through the live session.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/plantops/edgeagent-go/pkg/session"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8081".
	Addr string

	// SecretKey signs bearer tokens. Required unless NoAuth is set.
	SecretKey string

	// NoAuth disables authentication; development only.
	NoAuth bool

	// Version is reported by the status endpoint.
	Version string
}

// Validate checks the server configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address cannot be empty")
	}
	if !c.NoAuth && c.SecretKey == "" {
		return errors.New("secret key required unless no-auth mode is enabled")
	}
	return nil
}

// Server is the admin API's HTTP server.
type Server struct {
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
	log        zerolog.Logger
}

// NewServer creates a server over the agent's session.
func NewServer(sess session.Session, cfg Config, log zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jwtAuth := NewJWTAuth(cfg.SecretKey)
	s := &Server{
		handlers:   NewHandlers(sess, jwtAuth, cfg.Version),
		middleware: NewMiddleware(jwtAuth, cfg.NoAuth, log),
		log:        log,
	}

	s.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        s.routes(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return s, nil
}

// Start serves until Stop. It blocks; run it on its own goroutine.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("admin API listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the routed handler, for serving the API through an
// externally managed listener such as httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// routes wires the endpoint handlers behind the middleware chain.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	with := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.ContentType(handler))))
	}

	mux.Handle("/api/v1/auth/login", with(s.handlers.Login))
	mux.Handle("/api/v1/status", with(s.middleware.AuthRequired(s.handlers.Status)))
	mux.Handle("/api/v1/subscriptions", with(s.middleware.AuthRequired(s.handlers.Subscriptions)))
	mux.Handle("/api/v1/publish", with(s.middleware.AuthRequired(s.handlers.Publish)))

	return mux
}
