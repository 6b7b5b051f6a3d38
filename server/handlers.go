package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jrsteele09/go-tenant-guard/auth"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
)

const (
	maxBodyBytes   = 1 << 20
	readinessLimit = 2 * time.Second
)

// decodeJSON reads a JSON body into v. An empty body is an error unless
// optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid request body")
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, err error) {
	auth.WriteError(w, http.StatusBadRequest, auth.CodeBadRequest, err.Error())
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("request failed")
	auth.WriteError(w, http.StatusInternalServerError, auth.CodeInternal, "internal error")
}

// HealthHandler reports liveness only.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyHandler runs every readiness check. Failure details are logged, not
// returned.
func (s *Server) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessLimit)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(s.readiness))
		for name, check := range s.readiness {
			if err := check(ctx); err != nil {
				s.logger.Warn().Err(err).Str("check", name).Msg("readiness check failed")
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		overall := "ok"
		if status != http.StatusOK {
			overall = "unavailable"
		}
		auth.WriteJSON(w, status, map[string]any{"status": overall, "checks": checks})
	}
}

func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.jwks == nil {
			auth.WriteError(w, http.StatusNotFound, auth.CodeNotFound, "no public keys published")
			return
		}
		jwks, err := s.jwks.JWKS()
		if err != nil {
			s.writeInternal(w, r, "jwks", err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		auth.WriteJSON(w, http.StatusOK, jwks)
	}
}
