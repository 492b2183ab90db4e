// Package rag orchestrates retrieval-augmented generation: it turns
// text into embeddings, persists documents, and answers questions from
// a tenant's own corpus.
package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/llm"
	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// Default retrieval parameters. Queries use a small, high-precision
// window: five candidates, cosine similarity at least 0.3.
const (
	DefaultSearchLimit     = 5
	DefaultSearchThreshold = 0.3
)

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer generates an answer to a query grounded in the given documents.
type Completer interface {
	Complete(ctx context.Context, query string, docs []llm.ContextDocument) (string, error)
}

// DocumentStore is the subset of the persistence layer the RAG service needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, clientID uuid.UUID, title, content string, embedding []float32, metadata map[string]any) (*store.Document, error)
	UpdateDocument(ctx context.Context, documentID, clientID uuid.UUID, upd store.DocumentUpdate) (*store.Document, error)
	SearchDocuments(ctx context.Context, embedding []float32, clientID uuid.UUID, limit int, threshold float64) ([]store.SearchResult, error)
	LogQuery(ctx context.Context, userID, clientID uuid.UUID, query string, embedding []float32) error
}

// Service wires the embedder, completer, and store together.
type Service struct {
	embedder  Embedder
	completer Completer
	docs      DocumentStore
	logger    log.Logger
}

// Answer is the result of a search query: the generated answer plus the
// documents it was grounded in, in descending similarity order.
type Answer struct {
	Answer  string               `json:"answer"`
	Sources []store.SearchResult `json:"sources"`
}

func NewService(embedder Embedder, completer Completer, docs DocumentStore, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Service{embedder: embedder, completer: completer, docs: docs, logger: logger}
}

// ProcessDocument embeds the content and stores the document under the
// given tenant.
func (s *Service) ProcessDocument(ctx context.Context, clientID uuid.UUID, title, content string, metadata map[string]any) (*store.Document, error) {
	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding document: %w", err)
	}
	return s.docs.CreateDocument(ctx, clientID, title, content, embedding, metadata)
}

// UpdateDocument applies a partial update. When the content changes the
// document is re-embedded so similarity search never sees a stale vector.
func (s *Service) UpdateDocument(ctx context.Context, documentID, clientID uuid.UUID, upd store.DocumentUpdate) (*store.Document, error) {
	if upd.Content != nil {
		embedding, err := s.embedder.Embed(ctx, *upd.Content)
		if err != nil {
			return nil, fmt.Errorf("re-embedding document: %w", err)
		}
		upd.Embedding = embedding
	}
	return s.docs.UpdateDocument(ctx, documentID, clientID, upd)
}

// SearchAndAnswer embeds the query, retrieves the closest documents for
// the tenant, and generates an answer grounded in them. When retrieval
// comes back empty the model is never called; the canned refusal is
// returned instead. Only a successfully answered query is logged, and
// the log write is best-effort: it never fails the request.
func (s *Service) SearchAndAnswer(ctx context.Context, userID, clientID uuid.UUID, query string, limit int, threshold float64) (*Answer, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if threshold <= 0 {
		threshold = DefaultSearchThreshold
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.docs.SearchDocuments(ctx, embedding, clientID, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	if len(results) == 0 {
		s.logger.Debug("no documents matched query", "client_id", clientID)
		return &Answer{Answer: llm.RefusalAnswer, Sources: []store.SearchResult{}}, nil
	}

	contextDocs := make([]llm.ContextDocument, len(results))
	for i, r := range results {
		contextDocs[i] = llm.ContextDocument{
			Title:      r.Title,
			Content:    r.Content,
			Similarity: r.Similarity,
		}
	}

	answer, err := s.completer.Complete(ctx, query, contextDocs)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	if err := s.docs.LogQuery(ctx, userID, clientID, query, embedding); err != nil {
		s.logger.Warn("failed to log query", "client_id", clientID, "error", err)
	}

	s.logger.Debug("answered query",
		"client_id", clientID,
		"sources", len(results),
		"answer_length", len(answer),
	)
	return &Answer{Answer: answer, Sources: results}, nil
}
