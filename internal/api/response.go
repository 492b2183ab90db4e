package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/andrapra-work/rag-system-api/internal/auth"
	"github.com/andrapra-work/rag-system-api/internal/llm"
	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy so headers are only sent after successful
// encoding; an encode failure still produces a clean 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeServiceError maps a service-layer error onto an HTTP status.
// Unknown errors become an opaque 500; their detail stays in the logs.
func writeServiceError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", auth.ErrInvalidCredentials.Error(), logger)
	case errors.Is(err, auth.ErrWrongPassword):
		writeError(w, http.StatusBadRequest, "wrong_password", auth.ErrWrongPassword.Error(), logger)
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email_taken", "email is already registered", logger)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found", logger)
	case errors.Is(err, llm.ErrUpstream):
		logger.Error("upstream model request failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "language model provider unavailable", logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
