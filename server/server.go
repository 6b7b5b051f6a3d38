// Package server is the HTTP surface of the gateway and of the service: a
// ServeMux with "METHOD /path" routes wrapped in middleware chains.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/jrsteele09/go-tenant-guard/leads"
	"github.com/jrsteele09/go-tenant-guard/token"
	"github.com/rs/zerolog"
)

// Middleware wraps a handler. Chains are built with ChainMiddleware.
type Middleware = func(http.HandlerFunc) http.HandlerFunc

type Server struct {
	env     string // Environment (e.g., "DEV", "production")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	logger  zerolog.Logger
	limiter *RateLimiter

	verifier  *auth.Verifier
	sessions  *auth.SessionService
	gate      *entitlement.Gate
	licenses  *entitlement.Admin
	leads     *leads.Store
	jwks      JWKSProvider
	readiness map[string]ReadinessCheck
}

// JWKSProvider publishes the verification keys. *token.KeyPairSigner
// satisfies it.
type JWKSProvider interface {
	JWKS() (*token.JWKS, error)
}

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

func newServer(cfg config.Config, logger zerolog.Logger) *Server {
	return &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		logger:  logger,
		limiter: NewRateLimiter(cfg.GetRateLimitPerMinute(), nil),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// RateLimiter returns the per-client limiter, nil when rate limiting is off.
func (s *Server) RateLimiter() *RateLimiter {
	return s.limiter
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

// ANSI colours for the DEV route listing.
var methodColours = map[string]string{
	http.MethodGet:    "\033[32m",
	http.MethodPost:   "\033[34m",
	http.MethodPut:    "\033[36m",
	http.MethodDelete: "\033[33m",
}

const (
	colourOther = "\033[90m"
	colourReset = "\033[0m"
)

func (s *Server) logRoute(method, path string) {
	colour, ok := methodColours[method]
	if !ok {
		colour = colourOther
	}
	s.logger.Debug().Msgf("[%s %-7s%s] %s", colour, method, colourReset, path)
}
