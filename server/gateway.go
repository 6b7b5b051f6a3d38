package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/jrsteele09/go-tenant-guard/auth"
	"github.com/jrsteele09/go-tenant-guard/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GatewayDeps are the collaborators of the edge process.
type GatewayDeps struct {
	Verifier  *auth.Verifier
	Upstream  *url.URL
	Transport http.RoundTripper // nil uses http.DefaultTransport
}

// NewGateway builds the edge: stateless token verification in front of a
// reverse proxy to the upstream service. Requests are forwarded unchanged.
func NewGateway(cfg config.Config, deps GatewayDeps, logger zerolog.Logger) (*Server, error) {
	if deps.Verifier == nil {
		return nil, errors.New("[NewGateway] verifier is required")
	}
	if deps.Upstream == nil || deps.Upstream.Host == "" {
		return nil, errors.New("[NewGateway] upstream url is required")
	}

	s := newServer(cfg, logger)
	s.verifier = deps.Verifier
	s.initGatewayRoutes(s.newReverseProxy(deps.Upstream, deps.Transport), auth.NewPublicRoutes(cfg.GetPublicRoutes()))
	s.logRoutes()
	return s, nil
}

func (s *Server) newReverseProxy(upstream *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("upstream request failed")
			auth.WriteError(w, http.StatusBadGateway, auth.CodeBadGateway, "upstream unavailable")
		},
	}
}

// edgeMiddleware is the chain in front of the proxy. Security headers come
// from the upstream response.
func (s *Server) edgeMiddleware(public auth.PublicRoutes) []Middleware {
	return []Middleware{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
		s.RateLimitMiddleware,
		auth.EdgeMiddleware(s.verifier, public, s.logger),
	}
}
