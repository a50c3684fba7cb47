package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/model"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	}
	WriteJSON(w, statusCode, response)
}

// WriteBadRequest writes a 400 Bad Request response
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

// WriteForbidden writes a 403 Forbidden response
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

// WriteInternalError writes a 500 Internal Server Error response
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}

// WriteDomainError maps the domain sentinel errors onto status codes and
// machine-readable reasons. Business rejections carry a reason so clients can
// tell "not yet shared" apart from "gone"; an unhealthy store is 503, never
// 404, so callers do not mistake an outage for absence.
func WriteDomainError(w http.ResponseWriter, err error) {
	var reason string
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrSessionInactive):
		status, reason = http.StatusConflict, "session_inactive"
	case errors.Is(err, model.ErrNoPendingUpdate):
		status, reason = http.StatusNotFound, "no_pending_update"
	case errors.Is(err, model.ErrSyncNotAllowed):
		status, reason = http.StatusForbidden, "sync_not_allowed"
	case errors.Is(err, model.ErrStorageUnavailable):
		status, reason = http.StatusServiceUnavailable, "storage_unavailable"
	}
	WriteJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: err.Error(),
		Reason:  reason,
	})
}
