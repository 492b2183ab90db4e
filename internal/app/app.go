// Package app wires configuration, storage, the model client, and the
// domain services into a running application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andrapra-work/rag-system-api/internal/auth"
	"github.com/andrapra-work/rag-system-api/internal/bulk"
	"github.com/andrapra-work/rag-system-api/internal/config"
	"github.com/andrapra-work/rag-system-api/internal/llm"
	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/observability"
	"github.com/andrapra-work/rag-system-api/internal/rag"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

// App holds the initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool  *pgxpool.Pool
	Store *store.Store
	LLM   *llm.Client

	Auth *auth.Service
	RAG  *rag.Service
	Bulk *bulk.Service

	otelCleanup func()
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			a.Close()
		}
	}()

	a.otelCleanup = observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, logger)

	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	a.Pool = pool
	a.Store = store.New(pool, cfg.EmbeddingDimensions, logger)

	a.LLM = llm.New(llm.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		CompletionModel:     cfg.CompletionModel,
	}, logger)

	tokenExpiry := time.Duration(cfg.TokenExpiryMinutes) * time.Minute
	a.Auth = auth.NewService(a.Store, cfg.JWTSecret, tokenExpiry, logger)
	a.RAG = rag.NewService(a.LLM, a.LLM, a.Store, logger)
	a.Bulk = bulk.NewService(a.RAG, cfg.BatchSize, logger)

	logger.Info("application initialized",
		"environment", cfg.Environment,
		"embedding_model", cfg.EmbeddingModel,
		"completion_model", cfg.CompletionModel,
	)
	return a, nil
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
}
