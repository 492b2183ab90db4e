package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// CreateDocument persists a document row with its embedding.
// The embedding length must equal the configured dimensionality; this is
// checked before the insert so an invalid vector never reaches the database.
func (s *Store) CreateDocument(ctx context.Context, clientID uuid.UUID, title, content string, embedding []float32, metadata map[string]any) (*Document, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d floats, got %d",
			ErrEmbeddingDimension, s.dimensions, len(embedding))
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	var (
		d       Document
		rawMeta []byte
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (client_id, title, content, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, client_id, title, content, metadata, created_at, updated_at`,
		clientID, title, content, vec, metadataJSON,
	).Scan(&d.ID, &d.ClientID, &d.Title, &d.Content, &rawMeta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	d.Metadata = unmarshalMetadata(s, d.ID, rawMeta)

	s.logger.Debug("created document",
		"document_id", d.ID,
		"client_id", clientID,
		"content_length", len(content),
	)
	return &d, nil
}

// GetDocument returns a single document scoped to the given tenant.
func (s *Store) GetDocument(ctx context.Context, documentID, clientID uuid.UUID) (*Document, error) {
	var (
		d       Document
		rawMeta []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, client_id, title, content, metadata, created_at, updated_at
		 FROM documents WHERE id = $1 AND client_id = $2`,
		documentID, clientID,
	).Scan(&d.ID, &d.ClientID, &d.Title, &d.Content, &rawMeta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying document: %w", err)
	}
	d.Metadata = unmarshalMetadata(s, d.ID, rawMeta)
	return &d, nil
}

// ListDocuments returns a page of the tenant's documents ordered by
// creation time, newest first.
func (s *Store) ListDocuments(ctx context.Context, clientID uuid.UUID, page, pageSize int) (*DocumentPage, error) {
	page, pageSize = normalizePagination(page, pageSize)

	var total int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE client_id = $1`, clientID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, client_id, title, content, metadata, created_at, updated_at
		 FROM documents
		 WHERE client_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		clientID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0, pageSize)
	for rows.Next() {
		var (
			d       Document
			rawMeta []byte
		)
		if err := rows.Scan(&d.ID, &d.ClientID, &d.Title, &d.Content, &rawMeta, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		d.Metadata = unmarshalMetadata(s, d.ID, rawMeta)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading document rows: %w", err)
	}

	return &DocumentPage{
		Data:       docs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// UpdateDocument applies a partial update to a document within the
// tenant scope. Returns ErrNotFound when the row does not exist or
// belongs to another tenant.
func (s *Store) UpdateDocument(ctx context.Context, documentID, clientID uuid.UUID, upd DocumentUpdate) (*Document, error) {
	sets := make([]string, 0, 3)
	args := []any{documentID, clientID}

	if upd.Title != nil {
		args = append(args, *upd.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if upd.Content != nil {
		args = append(args, *upd.Content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
	}
	if upd.Metadata != nil {
		metadataJSON, err := json.Marshal(upd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata: %w", err)
		}
		args = append(args, metadataJSON)
		sets = append(sets, fmt.Sprintf("metadata = $%d", len(args)))
	}
	if upd.Embedding != nil {
		if len(upd.Embedding) != s.dimensions {
			return nil, fmt.Errorf("%w: expected %d floats, got %d",
				ErrEmbeddingDimension, s.dimensions, len(upd.Embedding))
		}
		args = append(args, pgvector.NewVector(upd.Embedding))
		sets = append(sets, fmt.Sprintf("embedding = $%d", len(args)))
	}
	if len(sets) == 0 {
		return s.GetDocument(ctx, documentID, clientID)
	}

	query := fmt.Sprintf(
		`UPDATE documents SET %s
		 WHERE id = $1 AND client_id = $2
		 RETURNING id, client_id, title, content, metadata, created_at, updated_at`,
		strings.Join(sets, ", "),
	)

	var (
		d       Document
		rawMeta []byte
	)
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&d.ID, &d.ClientID, &d.Title, &d.Content, &rawMeta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating document: %w", err)
	}
	d.Metadata = unmarshalMetadata(s, d.ID, rawMeta)
	return &d, nil
}

// DeleteDocument removes a document within the tenant scope.
func (s *Store) DeleteDocument(ctx context.Context, documentID, clientID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE id = $1 AND client_id = $2`,
		documentID, clientID,
	)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted document", "document_id", documentID, "client_id", clientID)
	return nil
}

// SearchDocuments executes the match_documents function: tenant-scoped
// cosine similarity search, capped at limit rows, restricted to results
// at or above threshold.
func (s *Store) SearchDocuments(ctx context.Context, embedding []float32, clientID uuid.UUID, limit int, threshold float64) ([]SearchResult, error) {
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: expected %d floats, got %d",
			ErrEmbeddingDimension, s.dimensions, len(embedding))
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, metadata, similarity
		 FROM match_documents($1, $2, $3, $4)`,
		vec, clientID, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, limit)
	for rows.Next() {
		var (
			r       SearchResult
			rawMeta []byte
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &rawMeta, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		r.Metadata = unmarshalMetadata(s, r.ID, rawMeta)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return results, nil
}

// unmarshalMetadata parses a JSONB column. A malformed value degrades to
// an empty map rather than failing the whole read.
func unmarshalMetadata(s *Store, id uuid.UUID, raw []byte) map[string]any {
	metadata := map[string]any{}
	if len(raw) == 0 {
		return metadata
	}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		s.logger.Warn("failed to parse metadata", "document_id", id, "error", err)
		return map[string]any{}
	}
	return metadata
}

// normalizePagination clamps page and pageSize to sane values.
func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// totalPages computes ceil(total / pageSize).
func totalPages(total int64, pageSize int) int64 {
	if total == 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
