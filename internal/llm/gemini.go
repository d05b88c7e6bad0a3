package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiEmbeddingModel is used when no Gemini model is configured.
const DefaultGeminiEmbeddingModel = "text-embedding-004"

// Gemini produces embeddings with the Google Generative AI API.
type Gemini struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
}

// NewGemini opens a client. Close releases it.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiEmbeddingModel
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: cl, model: cl.EmbeddingModel(model), name: model}, nil
}

// EmbeddingModel returns the name of the embedding model.
func (g *Gemini) EmbeddingModel() string {
	return g.name
}

// Embed returns the embedding vector of text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retry(ctx, defaultAttempts, defaultBackoff, func() error {
		resp, err := g.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return fmt.Errorf("gemini embed: %w", err)
		}
		if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return errors.New("gemini embed: empty embedding")
		}
		vec = resp.Embedding.Values
		return nil
	})
	return vec, err
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}
