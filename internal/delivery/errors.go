package delivery

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookfinder/internal/openlibrary"
)

// ErrorEnvelope is the structured error body of every failed API call.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes.
const (
	CodeBadRequest = "bad_request"
	CodeNotFound   = "not_found"
	CodeUpstream   = "upstream_error"
	CodeInternal   = "internal_error"
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeUpstreamError maps client errors to statuses: invalid ids are the
// caller's fault, a missing work is a 404, anything else is the upstream's.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var (
		te *openlibrary.TransportError
		pe *openlibrary.ParseError
	)
	switch {
	case errors.Is(err, openlibrary.ErrInvalidID):
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid work id", err.Error())
	case openlibrary.IsNotFound(err):
		WriteError(w, http.StatusNotFound, CodeNotFound, "work not found", nil)
	case errors.As(err, &te):
		WriteError(w, http.StatusBadGateway, CodeUpstream, "open library request failed", err.Error())
	case errors.As(err, &pe):
		WriteError(w, http.StatusBadGateway, CodeUpstream, "open library returned an unexpected response", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, CodeInternal, "request failed", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
