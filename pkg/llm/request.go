package llm

// ChatRequest represents a provider-agnostic chat completion request.
type ChatRequest struct {
	// Model name (e.g., "gemini-2.0-flash", "claude-3-5-sonnet-latest")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// System instruction (providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Clone returns a copy whose messages can be modified without touching r.
func (r *ChatRequest) Clone() *ChatRequest {
	if r == nil {
		return &ChatRequest{}
	}
	c := *r
	c.Messages = make([]Message, len(r.Messages))
	for i, m := range r.Messages {
		c.Messages[i] = Message{
			Role:    m.Role,
			Content: append([]ContentBlock(nil), m.Content...),
		}
	}
	return &c
}

// LastUserText returns the text of the last message when it is a user
// message, and "" otherwise.
func (r *ChatRequest) LastUserText() string {
	if len(r.Messages) == 0 {
		return ""
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return ""
	}
	return last.GetText()
}

// SetLastUserText replaces the content of the last message when it is a user
// message, or appends a new user message otherwise.
func (r *ChatRequest) SetLastUserText(text string) {
	if n := len(r.Messages); n > 0 && r.Messages[n-1].Role == RoleUser {
		r.Messages[n-1] = NewTextMessage(RoleUser, text)
		return
	}
	r.Messages = append(r.Messages, NewTextMessage(RoleUser, text))
}
