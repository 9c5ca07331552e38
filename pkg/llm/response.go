package llm

import (
	"time"
)

// ChatResponse represents a provider-agnostic chat completion response.
type ChatResponse struct {
	// Model that generated the response
	Model string `json:"model"`

	// Response timestamp
	CreatedAt time.Time `json:"created_at,omitzero"`

	// The assistant's response message
	Message Message `json:"message"`

	// Stop reason (e.g., "stop", "length", "end_turn")
	StopReason string `json:"stop_reason,omitempty"`

	// Token usage
	Usage *Usage `json:"usage,omitempty"`
}

// Usage contains token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}
