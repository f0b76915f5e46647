// Package web holds the JSON response helpers shared by every HTTP handler.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/georgemunganga/materialive/internal/apperr"
)

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Error writes err using the HTTP status for its apperr kind.
func Error(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	Respond(w, StatusFor(kind), map[string]string{
		"error":   string(kind),
		"message": apperr.Message(err),
	})
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindUpstreamSyncFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads a JSON request body into v, reporting malformed bodies as
// invalid input.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidInput("malformed request body: %v", err)
	}
	return nil
}
