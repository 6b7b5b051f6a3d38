package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-guard/auth"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/leads"
)

type leadRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type leadsResponse struct {
	Leads []leads.Lead `json:"leads"`
}

func (s *Server) ListLeadsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.leads.List(r.Context())
		if err != nil {
			s.writeInternal(w, r, "list leads", err)
			return
		}
		if list == nil {
			list = []leads.Lead{}
		}
		auth.WriteJSON(w, http.StatusOK, leadsResponse{Leads: list})
	}
}

// CreateLeadHandler stores a lead for the tenant in the request context,
// tagged with source, and answers with status.
func (s *Server) CreateLeadHandler(source string, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req leadRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeBadRequest(w, err)
			return
		}
		lead, err := s.leads.Add(r.Context(), leads.Lead{Name: req.Name, Email: req.Email, Source: source})
		switch {
		case err == nil:
			auth.WriteJSON(w, status, lead)
		case apperrors.Is(err, apperrors.ErrInvalidInput):
			writeBadRequest(w, err)
		default:
			s.writeInternal(w, r, "create lead", err)
		}
	}
}
