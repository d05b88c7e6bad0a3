package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

const (
	defaultAttempts = 3
	defaultBackoff  = 300 * time.Millisecond
)

// Config selects and configures a model provider. Keys match the CLI flags.
type Config struct {
	Provider       string `mapstructure:"embedding-provider"` // "openai", "gemini" or "none"
	BaseURL        string `mapstructure:"llm-url"`
	APIKey         string `mapstructure:"llm-key"`
	Model          string `mapstructure:"llm-model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api        *openai.Client
	model      string
	embedModel string
	attempts   int
	backoff    time.Duration
}

// New creates a new LLM client. modelName is used for completions and
// embeddingModel for embeddings.
func New(baseURL, apiKey, modelName, embeddingModel string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	return &Client{
		api:        openai.NewClientWithConfig(config),
		model:      modelName,
		embedModel: embeddingModel,
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
	}
}

// EmbeddingModel returns the name of the embedding model.
func (c *Client) EmbeddingModel() string {
	return c.embedModel
}

// Embed returns the embedding vector of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retry(ctx, c.attempts, c.backoff, func() error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return fmt.Errorf("embedding API call: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errors.New("embedding API returned no vectors")
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	return vec, err
}

// Complete sends a single-turn chat request and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}
	var out string
	err := retry(ctx, c.attempts, c.backoff, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    msgs,
			Temperature: temperature,
		})
		if err != nil {
			return fmt.Errorf("LLM API call: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("LLM returned no choices")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		slog.Debug("LLM response", "raw", out)
		return nil
	})
	return out, err
}

// Ping checks that the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// retry runs fn up to attempts times, sleeping attempt×backoff between
// failures. It stops early when ctx is done.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		slog.Debug("retrying model call", "attempt", attempt, "error", lastErr)
		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return lastErr
}
