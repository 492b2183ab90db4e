// Package store implements the credential store: users, documents with
// vector embeddings, and query logs, all backed by PostgreSQL + pgvector.
//
// Every document and query-log operation is scoped by tenant (client_id).
// Vector similarity search is delegated to the match_documents SQL
// function; no ranking logic lives in-process.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// Store provides access to the credential store tables.
// Store is safe for concurrent use by multiple goroutines; the underlying
// pool handles connection management.
type Store struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

// New creates a Store.
//
// dimensions is the required embedding vector length; CreateDocument and
// LogQuery reject vectors of any other length before touching the database.
func New(pool *pgxpool.Pool, dimensions int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:       pool,
		dimensions: dimensions,
		logger:     logger,
	}
}

// NewPool creates a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Pool exposes the underlying pool for readiness probes.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
