package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/rag"
)

const maxSearchLimit = 20

// answerer runs the retrieval and answer pipeline.
type answerer interface {
	SearchAndAnswer(ctx context.Context, userID, clientID uuid.UUID, query string, limit int, threshold float64) (*rag.Answer, error)
}

type searchHandler struct {
	rag    answerer
	logger log.Logger
}

// searchRequest is the body for a knowledge query. limit and threshold
// are optional overrides of the retrieval defaults.
type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

func (h *searchHandler) query(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required", h.logger)
		return
	}
	if req.Limit < 0 || req.Limit > maxSearchLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 20", h.logger)
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		writeError(w, http.StatusBadRequest, "invalid_threshold", "threshold must be between 0 and 1", h.logger)
		return
	}

	answer, err := h.rag.SearchAndAnswer(r.Context(), user.ID, user.ClientID, req.Query, req.Limit, req.Threshold)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, answer, h.logger)
}
