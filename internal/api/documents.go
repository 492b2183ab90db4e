package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// Pagination bounds for document listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	MaxPage         = 100000
)

// documentIngester creates and updates documents through the embedding
// pipeline.
type documentIngester interface {
	ProcessDocument(ctx context.Context, clientID uuid.UUID, title, content string, metadata map[string]any) (*store.Document, error)
	UpdateDocument(ctx context.Context, documentID, clientID uuid.UUID, upd store.DocumentUpdate) (*store.Document, error)
}

// documentReader covers the read and delete paths, which bypass the
// embedding pipeline entirely.
type documentReader interface {
	GetDocument(ctx context.Context, documentID, clientID uuid.UUID) (*store.Document, error)
	ListDocuments(ctx context.Context, clientID uuid.UUID, page, pageSize int) (*store.DocumentPage, error)
	DeleteDocument(ctx context.Context, documentID, clientID uuid.UUID) error
}

type documentHandler struct {
	ingester documentIngester
	docs     documentReader
	logger   log.Logger
}

type createDocumentRequest struct {
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

func (h *documentHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "title is required", h.logger)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "content is required", h.logger)
		return
	}

	doc, err := h.ingester.ProcessDocument(r.Context(), user.ClientID, req.Title, req.Content, req.Metadata)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, doc, h.logger)
}

// list returns a page of the tenant's documents.
// Query parameters: page (default 1), page_size (default 10, max 100).
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	page := parseIntParam(r, "page", 1, 1, MaxPage)
	pageSize := parseIntParam(r, "page_size", DefaultPageSize, 1, MaxPageSize)

	result, err := h.docs.ListDocuments(r.Context(), user.ClientID, page, pageSize)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

// mine returns every document belonging to the caller's tenant without
// pagination bookkeeping, for small corpora and quick inspection.
func (h *documentHandler) mine(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	docs := make([]store.Document, 0)
	for page := 1; ; page++ {
		result, err := h.docs.ListDocuments(r.Context(), user.ClientID, page, MaxPageSize)
		if err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		docs = append(docs, result.Data...)
		if int64(page) >= result.TotalPages {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs}, h.logger)
}

func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document id must be a UUID", h.logger)
		return
	}

	doc, err := h.docs.GetDocument(r.Context(), documentID, user.ClientID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, doc, h.logger)
}

func (h *documentHandler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document id must be a UUID", h.logger)
		return
	}

	var upd store.DocumentUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		writeError(w, http.StatusBadRequest, "missing_title", "title must not be empty", h.logger)
		return
	}
	if upd.Content != nil && strings.TrimSpace(*upd.Content) == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "content must not be empty", h.logger)
		return
	}

	doc, err := h.ingester.UpdateDocument(r.Context(), documentID, user.ClientID, upd)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, doc, h.logger)
}

func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	documentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document id must be a UUID", h.logger)
		return
	}

	if err := h.docs.DeleteDocument(r.Context(), documentID, user.ClientID); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
