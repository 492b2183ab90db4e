// Package llm wraps the hosted OpenAI API for embedding generation and
// chat completion. Both operations are direct delegations: upstream
// errors propagate unchanged to the caller, with no local retry or
// fallback.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config holds the model selection for the client.
type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	CompletionModel     string
}

// Client calls the hosted embedding and chat-completion APIs.
// Client is safe for concurrent use.
type Client struct {
	api             openai.Client
	embeddingModel  string
	completionModel string
	logger          *slog.Logger
}

// New creates a Client. Extra request options (base URL, HTTP client)
// are appended after the API key, which lets tests point the client at a
// local server.
func New(cfg Config, logger *slog.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	requestOpts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)

	return &Client{
		api:             openai.NewClient(requestOpts...),
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		logger:          logger,
	}
}

// Embed converts text to an embedding vector using the configured model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w: %w", ErrUpstream, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned by %s", c.embeddingModel)
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}

	c.logger.Debug("created embedding", "model", c.embeddingModel, "dimensions", len(embedding))
	return embedding, nil
}
