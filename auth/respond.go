package auth

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Error codes written in APIError.Code.
const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeModuleNotEntitled = "MODULE_NOT_ENTITLED"
	CodeBadRequest        = "BAD_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	CodeUnavailable       = "SERVICE_UNAVAILABLE"
	CodeBadGateway        = "BAD_GATEWAY"
	CodeInternal          = "INTERNAL_ERROR"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// WriteError writes a structured error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, APIError{Code: code, Message: message})
}

// WriteUnauthorized writes the single response used for every
// authentication failure, whatever its cause.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

func WriteForbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, CodeForbidden, "insufficient authority")
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
