// Package gemini implements pkg/embeddings's Embedder on the Google
// generative AI embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/papercomputeco/recall/pkg/embeddings"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = "gemini-embedding-001"

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	APIKey string
	Model  string

	// Dimensions, when set, is the vector length every Embed call must
	// return.
	Dimensions uint

	// ClientOptions are appended after the API key, e.g. option.WithEndpoint.
	ClientOptions []option.ClientOption
}

// Embedder wraps a genai embedding model.
type Embedder struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	dimensions uint
}

// NewEmbedder creates a client for the configured model.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedder requires an API key (GOOGLE_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.ClientOptions...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Embedder{
		client:     client,
		model:      client.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := embeddings.CheckText(text); err != nil {
		return nil, err
	}

	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", embeddings.ErrUnavailable, err)
	}

	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: gemini returned an empty embedding", embeddings.ErrUnavailable)
	}

	if err := embeddings.CheckDimensions(resp.Embedding.Values, e.dimensions); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	return resp.Embedding.Values, nil
}

// Close closes the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
