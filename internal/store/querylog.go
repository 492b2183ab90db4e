package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// LogQuery appends a query-log row. Callers treat this as best-effort;
// the RAG orchestrator swallows any error returned here.
func (s *Store) LogQuery(ctx context.Context, userID, clientID uuid.UUID, query string, embedding []float32) error {
	if len(embedding) != s.dimensions {
		return fmt.Errorf("%w: expected %d floats, got %d",
			ErrEmbeddingDimension, s.dimensions, len(embedding))
	}

	vec := pgvector.NewVector(embedding)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO query_logs (user_id, client_id, query, embedding)
		 VALUES ($1, $2, $3, $4)`,
		userID, clientID, query, vec,
	)
	if err != nil {
		return fmt.Errorf("logging query: %w", err)
	}
	return nil
}
