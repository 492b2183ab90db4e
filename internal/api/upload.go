package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/bulk"
	"github.com/andrapra-work/rag-system-api/internal/log"
)

// bulkIngester runs bulk document ingestion from an uploaded file.
type bulkIngester interface {
	ProcessCSV(ctx context.Context, clientID uuid.UUID, r io.Reader) (*bulk.Result, error)
	ProcessJSON(ctx context.Context, clientID uuid.UUID, r io.Reader) (*bulk.Result, error)
}

type uploadHandler struct {
	bulk          bulkIngester
	maxUploadSize int64
	logger        log.Logger
}

func (h *uploadHandler) csv(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, ".csv", h.bulk.ProcessCSV)
}

func (h *uploadHandler) json(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, ".json", h.bulk.ProcessJSON)
}

type ingestFunc func(ctx context.Context, clientID uuid.UUID, r io.Reader) (*bulk.Result, error)

// handle reads the multipart "file" part, checks its extension, and
// hands the stream to the ingester. The whole request body is capped at
// maxUploadSize.
func (h *uploadHandler) handle(w http.ResponseWriter, r *http.Request, wantExt string, ingest ingestFunc) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "uploaded file exceeds the size limit", h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_form", "expected multipart form data", h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "a file form field is required", h.logger)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), wantExt) {
		writeError(w, http.StatusBadRequest, "invalid_file_type", "file must be a "+wantExt+" file", h.logger)
		return
	}

	result, err := ingest(r.Context(), user.ClientID, file)
	if err != nil {
		// Ingest errors at this level mean the file itself was unusable.
		writeError(w, http.StatusBadRequest, "invalid_file", err.Error(), h.logger)
		return
	}

	h.logger.Info("bulk upload finished",
		"client_id", user.ClientID,
		"filename", header.Filename,
		"total", result.TotalDocuments,
		"failed", result.FailedDocuments,
	)
	writeJSON(w, http.StatusOK, result, h.logger)
}
