package llm

import "context"

// Model is a chat-capable language model.
type Model interface {
	// Name returns the provider name (e.g., "gemini", "openai").
	Name() string

	// Chat sends req and returns the complete response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Close releases any resources held by the model client.
	Close() error
}
