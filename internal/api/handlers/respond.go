package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/wonny/divsage/internal/contracts"
)

// Request headers. Owner identity arrives from the authenticating
// proxy; the service itself performs no authentication.
const (
	headerOwner         = "X-Owner-ID"
	headerCorrelationID = "X-Correlation-ID"
)

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// ownerFrom extracts the owner identity, writing a 401 when absent
func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(headerOwner)
	if owner == "" {
		respondError(w, http.StatusUnauthorized, "missing "+headerOwner+" header")
		return "", false
	}
	return owner, true
}

// correlationFrom returns the caller's correlation id or a fresh one
func correlationFrom(r *http.Request) string {
	if id := r.Header.Get(headerCorrelationID); id != "" {
		return id
	}
	return uuid.NewString()
}

// statusForKind maps the pipeline error taxonomy to HTTP status codes
func statusForKind(kind contracts.ErrorKind) int {
	switch kind {
	case contracts.ErrInvalidConstraints:
		return http.StatusBadRequest
	case contracts.ErrRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case contracts.ErrTimeout:
		return http.StatusGatewayTimeout
	case contracts.ErrNoStructuredOutput, contracts.ErrInvalidModelOutput, contracts.ErrUpstreamUnavailable:
		return http.StatusBadGateway
	case contracts.ErrPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
