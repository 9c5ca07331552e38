// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"

	"github.com/papercomputeco/recall/pkg/embeddings"
	"github.com/papercomputeco/recall/pkg/embeddings/gemini"
	"github.com/papercomputeco/recall/pkg/embeddings/ollama"
	"github.com/papercomputeco/recall/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint

	// APIKey falls back to the provider's environment variable when empty.
	APIKey string

	// ClientOptions are passed to the Gemini client.
	ClientOptions []option.ClientOption
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})

	case "gemini":
		return gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:        firstNonEmpty(o.APIKey, os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY")),
			Model:         o.Model,
			Dimensions:    o.Dimensions,
			ClientOptions: o.ClientOptions,
		})

	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     firstNonEmpty(o.APIKey, os.Getenv("OPENAI_API_KEY")),
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: int(o.Dimensions),
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
