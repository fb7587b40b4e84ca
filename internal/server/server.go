// Package server exposes the honeypot over HTTP: the message endpoint,
// session inspection, health and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/ratelimit"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

const (
	// maxBodyBytes bounds a message request. Text is capped far lower.
	maxBodyBytes = 256 << 10
	// readTimeout bounds the short routes.
	readTimeout = 10 * time.Second
)

// Handler is the part of the orchestrator the server drives.
type Handler interface {
	Handle(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
	Session(ctx context.Context, id string) (*session.Session, error)
}

// HealthCheck reports a component's health. A nil error is healthy.
type HealthCheck func(ctx context.Context) error

// Server holds the HTTP dependencies.
type Server struct {
	router    *chi.Mux
	handler   Handler
	verifier  auth.Verifier
	callers   *ratelimit.CallerLimiter
	ipRPM     int
	checks    map[string]HealthCheck
	schema    *gojsonschema.Schema
	startTime time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithCallerLimiter applies per-key and global request rates after auth.
func WithCallerLimiter(l *ratelimit.CallerLimiter) Option {
	return func(s *Server) { s.callers = l }
}

// WithIPRateLimit limits requests per client IP per minute. Zero disables it.
func WithIPRateLimit(rpm int) Option {
	return func(s *Server) { s.ipRPM = rpm }
}

// WithHealthCheck adds a component to GET /health?detail=true.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// NewServer builds a Server. verifier guards every route except health,
// ping and metrics.
func NewServer(handler Handler, verifier auth.Verifier, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		handler:   handler,
		verifier:  verifier,
		checks:    make(map[string]HealthCheck),
		schema:    messageSchema,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured router.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(honeypototel.MiddlewareWithStatus())
	if s.ipRPM > 0 {
		r.Use(IPRateLimit(s.ipRPM, time.Minute))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ping", s.handlePing)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.verifier))
		r.Use(CallerRateLimit(s.callers))

		// The orchestrator bounds its own AI work; no router timeout here.
		r.Post("/", s.handleMessage)
		r.Post("/v1/messages", s.handleMessage)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(readTimeout))
			r.Get("/v1/sessions/{id}", s.handleSession)
		})
	})
	return r
}
