package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

// RefusalAnswer is the fixed literal returned when the retrieved context
// cannot answer the question. The system prompt instructs the model to
// use this exact phrase, and the orchestrator returns it verbatim when
// retrieval finds nothing at all.
const RefusalAnswer = "I don't have enough information to answer that question."

// Deterministic completion parameters: bounded output, low randomness.
const (
	completionTemperature      = 0.5
	completionMaxTokens        = 500
	completionPresencePenalty  = 0.1
	completionFrequencyPenalty = 0.1
)

// ContextDocument is one retrieved document handed to the model as context.
type ContextDocument struct {
	Title      string
	Content    string
	Similarity float64
}

// Complete asks the chat model to answer the query using only the
// supplied context documents.
func (c *Client) Complete(ctx context.Context, query string, docs []ContextDocument) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.completionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(buildUserPrompt(query, docs)),
		},
		Temperature:      openai.Float(completionTemperature),
		MaxTokens:        openai.Int(completionMaxTokens),
		PresencePenalty:  openai.Float(completionPresencePenalty),
		FrequencyPenalty: openai.Float(completionFrequencyPenalty),
	})
	if err != nil {
		return "", fmt.Errorf("generating completion: %w: %w", ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned by %s", c.completionModel)
	}

	answer := resp.Choices[0].Message.Content
	c.logger.Debug("generated completion",
		"model", c.completionModel,
		"context_documents", len(docs),
		"answer_length", len(answer),
	)
	return answer, nil
}
