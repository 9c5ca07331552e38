// Package embeddings turns text into fixed-length vectors via an external
// provider.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnavailable is returned when the provider cannot produce an
	// embedding: network failures, non-success statuses, malformed or empty
	// responses, and timeouts.
	ErrUnavailable = errors.New("embedding unavailable")

	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("cannot embed empty text")
)

// Embedder provides text embedding capabilities. Implementations do not
// retry and do not cache.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// CheckText rejects blank input before a provider call is made.
func CheckText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// CheckDimensions rejects a provider vector whose length differs from want.
// A zero want accepts any length.
func CheckDimensions(vec []float32, want uint) error {
	if want != 0 && uint(len(vec)) != want {
		return fmt.Errorf("%w: provider returned %d dimensions, configured %d", ErrUnavailable, len(vec), want)
	}
	return nil
}

// nativeDimensions lists models whose output size cannot be requested
// through their client and is therefore fixed.
var nativeDimensions = map[string]map[string]uint{
	"gemini": {
		"gemini-embedding-001": 3072,
		"text-embedding-004":   768,
		"embedding-001":        768,
	},
	"ollama": {
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	},
}

// NativeDimensions reports the fixed output size of a provider's model, when
// known.
func NativeDimensions(provider, model string) (uint, bool) {
	dims, ok := nativeDimensions[provider][strings.TrimPrefix(model, "models/")]
	return dims, ok
}

// timeoutEmbedder bounds every Embed call.
type timeoutEmbedder struct {
	Embedder
	timeout time.Duration
}

// WithTimeout wraps e so each Embed call runs under its own deadline.
// A non-positive timeout returns e unchanged.
func WithTimeout(e Embedder, timeout time.Duration) Embedder {
	if timeout <= 0 || e == nil {
		return e
	}
	return &timeoutEmbedder{Embedder: e, timeout: timeout}
}

func (t *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Embedder.Embed(ctx, text)
}
