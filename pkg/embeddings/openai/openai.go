// Package openai implements pkg/embeddings's Embedder on the OpenAI
// embeddings API.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/recall/pkg/embeddings"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = "text-embedding-3-small"

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for a compatible server.
	BaseURL string

	Model string

	// Dimensions requests shortened embeddings from models that support it.
	Dimensions int
}

// Embedder wraps the go-openai client.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions int
}

// NewEmbedder creates an OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai embedder requires an API key (OPENAI_API_KEY)")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := embeddings.CheckText(text); err != nil {
		return nil, err
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model:      goopenai.EmbeddingModel(e.model),
		Input:      []string{text},
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", embeddings.ErrUnavailable, err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: openai returned no embeddings", embeddings.ErrUnavailable)
	}

	if e.dimensions > 0 {
		if err := embeddings.CheckDimensions(resp.Data[0].Embedding, uint(e.dimensions)); err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
	}

	return resp.Data[0].Embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
