package store

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity record. client_id is the tenant the user belongs to.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	ClientID     uuid.UUID
	CreatedAt    time.Time
}

// Document is a tenant-scoped content record with its embedding vector.
type Document struct {
	ID        uuid.UUID      `json:"id"`
	ClientID  uuid.UUID      `json:"client_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DocumentUpdate describes a partial update; nil fields are left unchanged.
// Embedding is set internally when the content changes and never comes
// from request bodies.
type DocumentUpdate struct {
	Title     *string        `json:"title,omitempty"`
	Content   *string        `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"-"`
}

// SearchResult is one row returned by the match_documents function.
type SearchResult struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Similarity float64        `json:"similarity"`
}

// DocumentPage is a page of documents plus pagination bookkeeping.
type DocumentPage struct {
	Data       []Document `json:"data"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int64      `json:"total_pages"`
}
