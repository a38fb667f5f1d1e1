package httputil

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response. RequestID echoes the
// X-Request-ID header so a client can quote it in a support ticket.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, status int, message string, details map[string]string) {
	_ = WriteJSON(w, status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: w.Header().Get(RequestIDHeader),
	})
}

func WriteError(w http.ResponseWriter, status int, err error) {
	writeErr(w, status, err.Error(), nil)
}

func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	writeErr(w, status, message, nil)
}

// WriteValidationError writes a 400 with per-field details
func WriteValidationError(w http.ResponseWriter, message string, details map[string]string) {
	writeErr(w, http.StatusBadRequest, message, details)
}

// WriteInternalError writes a generic 500. The cause is logged by the caller, never sent.
func WriteInternalError(w http.ResponseWriter) {
	writeErr(w, http.StatusInternalServerError, "internal error", nil)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusBadRequest, message, nil)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusUnauthorized, message, nil)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusForbidden, message, nil)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusNotFound, message, nil)
}

func WriteConflict(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusConflict, message, nil)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	writeErr(w, http.StatusTooManyRequests, message, nil)
}
