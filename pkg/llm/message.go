package llm

import "strings"

// Roles used in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks so providers with block
// based APIs map onto it directly.
type Message struct {
	Role    string         `json:"role"`    // "user", "assistant"
	Content []ContentBlock `json:"content"` // Array of content blocks
}

// ContentBlock represents a single piece of content within a message.
type ContentBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var result string
	for _, block := range m.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	return result
}

// FirstText returns the first text block that is not blank, or "".
func (m *Message) FirstText() string {
	for _, block := range m.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text
		}
	}
	return ""
}
